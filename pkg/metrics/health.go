package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the body of /health and /ready
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// Check reports a component's health on demand. A nil error is healthy.
type Check func() error

// HealthChecker holds component states and checks
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	checks     map[string]Check
	critical   []string
	startTime  time.Time
	version    string
}

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		checks:     make(map[string]Check),
		critical:   []string{"storage", "api"},
		startTime:  time.Now(),
	}
}

var healthChecker = newHealthChecker()

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// SetCriticalComponents replaces the components readiness waits for
func SetCriticalComponents(names ...string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.critical = append([]string(nil), names...)
}

// RegisterComponent records a component's health
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent updates the health status of a component
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

// RegisterCheck attaches a check that is run on every health query and
// overrides the recorded state of the component.
func RegisterCheck(name string, check Check) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.checks[name] = check
}

// snapshot runs checks and returns the current component states
func (h *HealthChecker) snapshot() map[string]ComponentHealth {
	h.mu.RLock()
	checks := make(map[string]Check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	for name, check := range checks {
		if err := check(); err != nil {
			UpdateComponent(name, false, err.Error())
		} else {
			UpdateComponent(name, true, "")
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]ComponentHealth, len(h.components))
	for name, comp := range h.components {
		out[name] = comp
	}
	return out
}

// GetHealth returns the overall health status
func GetHealth() HealthStatus {
	components := healthChecker.snapshot()

	status := "healthy"
	view := make(map[string]string, len(components))
	for name, comp := range components {
		if !comp.Healthy {
			status = "unhealthy"
			view[name] = "unhealthy: " + comp.Message
		} else {
			view[name] = "healthy"
		}
	}

	return healthChecker.status(status, "", view)
}

// GetReadiness reports ready once every critical component is healthy
func GetReadiness() HealthStatus {
	components := healthChecker.snapshot()

	healthChecker.mu.RLock()
	critical := append([]string(nil), healthChecker.critical...)
	healthChecker.mu.RUnlock()
	sort.Strings(critical)

	status := "ready"
	message := ""
	view := make(map[string]string, len(critical))
	for _, name := range critical {
		comp, exists := components[name]
		switch {
		case !exists:
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			view[name] = "not registered"
		case !comp.Healthy:
			status = "not_ready"
			message = "waiting for " + name
			view[name] = "not ready: " + comp.Message
		default:
			view[name] = "ready"
		}
	}

	return healthChecker.status(status, message, view)
}

func (h *HealthChecker) status(status, message string, components map[string]string) HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// HealthHandler serves /health
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()
		code := http.StatusOK
		if health.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, health)
	}
}

// ReadyHandler serves /ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()
		code := http.StatusOK
		if readiness.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, readiness)
	}
}

// LivenessHandler serves /live; it answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(healthChecker.startTime).String(),
		})
	}
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/primeslot/primeslot/pkg/auth"
	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/log"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/metrics"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/storage"
)

// Config configures the HTTP server
type Config struct {
	RequestTimeout       time.Duration
	CORSOrigin           string
	ExposeInternalErrors bool
	LoginRatePerSecond   float64
	LoginBurst           int
	// SecureCookies marks the admin session cookie Secure. Off for plain
	// HTTP development setups.
	SecureCookies bool
	// TrustProxyHeaders rewrites the client address from X-Forwarded-For
	// and X-Real-IP. Off, the login limiter keys on the TCP peer.
	TrustProxyHeaders bool
}

// Deps are the services the API serves
type Deps struct {
	Store        storage.Store
	Catalog      *catalog.Service
	Roster       *roster.Service
	Meetings     *meeting.Service
	Availability *availability.Engine
	Admins       *auth.Admins
	Sessions     *auth.SessionManager
	Resolver     *auth.Resolver
}

// Server is the primeslot HTTP API
type Server struct {
	cfg     Config
	deps    Deps
	limiter *rateLimiter
	logger  zerolog.Logger
	now     func() time.Time
	router  chi.Router
	http    *http.Server
}

// NewServer creates the API server and its routes
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.LoginRatePerSecond <= 0 {
		cfg.LoginRatePerSecond = 1
	}
	if cfg.LoginBurst <= 0 {
		cfg.LoginBurst = 5
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
		logger:  log.WithComponent("api"),
		now:     time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	r.Use(cors(s.cfg.CORSOrigin))
	r.Use(s.instrument)

	s.mountHealth(r)

	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/login", s.adminLogin)
		r.Post("/admin/logout", s.adminLogout)
		r.Get("/admin/me", s.adminMe)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/events", s.listEvents)
				r.Post("/events", s.createEvent)
				r.Get("/events/summary", s.eventSummary)
				r.Get("/events/{id}", s.getEvent)
				r.Patch("/events/{id}", s.updateEvent)

				r.Get("/events/{id}/members", s.listEventMembers)
				r.Post("/events/{id}/members", s.linkMember)
				r.Post("/events/{id}/members/import", s.importMembers)
				r.Get("/events/{id}/members/{memberId}", s.getLink)
				r.Patch("/events/{id}/members/{memberId}", s.patchLink)
				r.Delete("/events/{id}/members/{memberId}", s.unlinkMember)

				r.Get("/events/{id}/meetings/summary", s.meetingSummary)
				r.Get("/events/{id}/meetings/{meetingId}", s.getMeeting)
				r.Patch("/events/{id}/meetings/{meetingId}", s.patchMeeting)
				r.Delete("/events/{id}/meetings/{meetingId}", s.deleteMeeting)

				r.Get("/meetings", s.listMeetings)

				r.Get("/members", s.listMembers)
				r.Post("/members", s.createMember)
				r.Get("/members/{id}", s.getMember)
				r.Patch("/members/{id}", s.updateMember)
				r.Delete("/members/{id}", s.deleteMember)
				r.Post("/members/{id}/approve", s.approveMember)
			})

			r.Get("/me", s.me)
			r.Post("/members/availability", s.pairAvailability)
			r.Post("/members/{id}/meetings/request", s.requestMeeting)
			r.Post("/members/{id}/meetings/{meetingId}/respond", s.respondMeeting)
			r.Patch("/members/{id}/meetings/{meetingId}/respond", s.respondMeeting)
			r.Get("/members/{id}/meetings/pending", s.pendingMeetings)
			r.Get("/members/{id}/calendar", s.calendar)
			r.Get("/members/{id}/notifications", s.notifications)
		})
	})

	return r
}

// Start listens on addr and serves until Shutdown
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metrics.RegisterComponent("api", true, "")
	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	metrics.UpdateComponent("api", false, "shutting down")
	s.limiter.stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

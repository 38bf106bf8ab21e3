package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inventory metrics, refreshed by the Collector
	EventsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "primeslot_events_total",
			Help: "Total number of events by status",
		},
		[]string{"status"},
	)

	MembersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "primeslot_members_total",
			Help: "Total number of members",
		},
	)

	MeetingsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "primeslot_meetings_total",
			Help: "Total number of meetings by status",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "primeslot_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Domain metrics
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "primeslot_operation_duration_seconds",
			Help:    "Duration of domain operations, including their store transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	MeetingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_meeting_transitions_total",
			Help: "Meeting status transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_import_rows_total",
			Help: "Imported member rows by outcome",
		},
		[]string{"outcome"},
	)

	DomainEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_domain_events_total",
			Help: "Published domain events by type",
		},
		[]string{"type"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "primeslot_reconciliation_duration_seconds",
			Help:    "Time taken by one mirror reconciliation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	MirrorRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_mirror_repairs_total",
			Help: "Denormalized records rewritten or removed by the reconciler",
		},
		[]string{"kind"},
	)

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "primeslot_admin_login_attempts_total",
			Help: "Admin login attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(MembersTotal)
	prometheus.MustRegister(MeetingsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(MeetingTransitions)
	prometheus.MustRegister(ImportRows)
	prometheus.MustRegister(DomainEvents)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(MirrorRepairs)
	prometheus.MustRegister(LoginAttempts)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

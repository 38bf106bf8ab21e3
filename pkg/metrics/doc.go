/*
Package metrics exposes Prometheus metrics and health endpoints for
primeslot.

# Metrics

All metrics use the primeslot_ prefix and are registered with the default
registry in init; Handler serves them at /metrics.

	Inventory (gauges, refreshed every 15s by Collector):
	  primeslot_events_total{status}
	  primeslot_members_total
	  primeslot_meetings_total{status}

	API:
	  primeslot_api_requests_total{method,route,status}
	  primeslot_api_request_duration_seconds{route}
	  primeslot_admin_login_attempts_total{result}

	Domain:
	  primeslot_operation_duration_seconds{operation}
	  primeslot_meeting_transitions_total{from,to}
	  primeslot_import_rows_total{outcome}
	  primeslot_domain_events_total{type}

	Reconciler:
	  primeslot_reconciliation_duration_seconds
	  primeslot_mirror_repairs_total{kind}

Operation timings use Timer:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, "meeting.respond")

# Health

Components report their state with RegisterComponent/UpdateComponent or
attach a Check that is evaluated on every query. /health is unhealthy if
any component is; /ready waits for the critical components (storage and
api by default); /live always answers 200.
*/
package metrics

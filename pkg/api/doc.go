/*
Package api serves the primeslot HTTP API.

Routes are mounted on a chi router under /api, with the health endpoints
/health, /ready, /live and the Prometheus scrape endpoint /metrics at the
root. Every response is JSON; failures carry an {"error": message} body
whose status code comes from apperr.HTTPStatus.

# Middleware

Requests pass through, in order: request id, real client IP, access log,
panic recovery, the request timeout, CORS (OPTIONS preflight answers
204), and per-route Prometheus instrumentation. Routes other than admin
login, logout and me then resolve the caller with auth.Resolver.

# Authorization

Catalog, member and link management, imports, meeting administration and
the meetings listing are admin-only. Members may request meetings as the
requester, respond to meetings they take part in, and read their own
calendar, pending meetings and notifications. Pair availability is open
to either member of the pair.

Admin login is rate limited per client IP with golang.org/x/time/rate.
*/
package api

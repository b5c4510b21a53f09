// Package api hosts the optional ops HTTP server, middleware, and REST
// handlers for operator access during a digest run. Notable routes:
//   - GET /healthz / readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs and /v1/runs/{id}[/articles] for run progress via the
//     RunRepository interface.
package api

// Package http provides the gin handlers of the tool dispatcher API.
//
// Endpoints:
//   - Health: / and /health
//   - Tools: GET /tools (?category=, ?q=&limit=), POST /tools/execute
//   - Sessions: GET /sessions, POST /sessions/stop, DELETE /sessions/:id
//   - Metrics: GET /metrics (Prometheus text format)
//
// Tool failures are reported in the result body with status 200; only
// malformed requests (400), unknown tools (404) and dispatcher errors (500)
// change the status code.
//
// Example Usage:
//
//	handlers := http.NewHandlers(registry, supervisor, metrics, promRegistry, logger)
//	handlers.Register(router)
package http

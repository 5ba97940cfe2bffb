/*
Package monitoring provides Prometheus metrics for the dispatcher.

# Metrics

HTTP:
  - devext_http_requests_total{method,path,status}
  - devext_http_request_duration_seconds{method,path}

Tools:
  - devext_tool_calls_total{tool,status}
  - devext_tool_duration_seconds{tool}

Sessions (Metrics implements session.Observer):
  - devext_sessions_launched_total
  - devext_sessions_active
  - devext_sessions_completed_total{cause}
  - devext_session_duration_seconds

WebSocket:
  - devext_ws_connections
  - devext_ws_messages_total{type}

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))
	sup := session.NewSupervisor(session.WithObserver(metrics))
*/
package monitoring

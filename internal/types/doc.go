// Package types provides the wire-level data structures shared by the
// tool dispatcher, the HTTP API and the WebSocket stream.
//
// Core Types:
//   - Service, Tool, Parameter: tool catalogue published on /tools
//   - Context: per-call metadata handed to providers
//   - Result: standard tool result (structured Data plus rendered Text)
//
// Request Types:
//   - ExecuteRequest: POST /tools/execute body
//   - StopRequest: POST /sessions/stop body
//   - WSMessage: session lifecycle events on /stream
package types

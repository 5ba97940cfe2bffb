// Package ws streams extension session lifecycle events over WebSocket.
//
// The Hub is registered as a session.Observer; every launch and completion
// is pushed to all connected subscribers as a types.WSMessage.
//
// Message Types (Server → Client):
//   - system: sent once after connecting
//   - session_launched: Data carries the session snapshot
//   - session_completed: Data carries cause, exit code, duration and text
//   - pong: reply to a client ping
//   - error: malformed or unknown client message
//
// Message Types (Client → Server):
//   - ping: keep-alive
//
// Only loopback origins (or clients sending no Origin) may connect.
//
// Example Usage:
//
//	hub := ws.NewHub(metrics, logger)
//	sup := session.NewSupervisor(session.WithObserver(hub))
//	router.GET("/stream", hub.HandleConnection)
package ws

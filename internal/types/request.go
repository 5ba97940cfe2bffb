package types

// ExecuteRequest represents a tool execution request
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// StopRequest asks the supervisor to stop a session; empty SessionID means current.
type StopRequest struct {
	SessionID string `json:"session_id"`
}

// WSMessage is pushed to WebSocket subscribers
type WSMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/coxlong/zap/internal/pool"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandOpenWindow    CommandType = "OPEN_WINDOW"
	CommandReleaseWindow CommandType = "RELEASE_WINDOW"
	CommandGetPoolState  CommandType = "GET_POOL_STATE"
	CommandGetStatus     CommandType = "GET_STATUS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OpenWindowPayload is the OPEN_WINDOW request. With Wait set the daemon
// answers only after the window has been configured and shown.
type OpenWindowPayload struct {
	pool.OpenWindowOptions
	Wait bool `json:"wait,omitempty"`
}

// OpenWindowData is returned by OPEN_WINDOW.
type OpenWindowData struct {
	WindowID   uint32 `json:"window_id"`
	Lease      string `json:"lease"`
	Configured bool   `json:"configured,omitempty"`
}

// ReleaseWindowPayload is the RELEASE_WINDOW request.
type ReleaseWindowPayload struct {
	WindowID uint32 `json:"window_id"`
}

// PoolStateData is returned by GET_POOL_STATE.
type PoolStateData struct {
	Initialized bool `json:"initialized"`
	pool.State
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning   bool        `json:"daemon_running"`
	UptimeSeconds   int64       `json:"uptime_seconds"`
	PoolInitialized bool        `json:"pool_initialized"`
	Pool            *pool.State `json:"pool,omitempty"`
	MinIdle         int         `json:"min_idle,omitempty"`
	MaxTotal        int         `json:"max_total,omitempty"`
	TTLSeconds      int64       `json:"ttl_seconds,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

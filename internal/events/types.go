package events

import (
	"time"

	"github.com/sigil-protocol/sigil-scan/internal/scanner"
)

// EventType represents the type of event broadcast to clients.
type EventType string

const (
	// EventTypeFinding is emitted when a scan produces a hit.
	EventTypeFinding EventType = "finding"
	// EventTypeRequest is emitted for every scan request handled.
	EventTypeRequest EventType = "request"
	// EventTypeConnection is emitted when clients connect or disconnect.
	EventTypeConnection EventType = "connection"
)

// Event is the envelope sent to connected clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data"`
}

// FindingEvent describes one scan hit.
type FindingEvent struct {
	Pattern  string            `json:"pattern"`
	Severity scanner.Severity  `json:"severity"`
	Category string            `json:"category,omitempty"`
	Blocked  bool              `json:"blocked"`
	Warned   bool              `json:"warned"`
	AllHits  []scanner.Finding `json:"all_hits,omitempty"`
	ClientIP string            `json:"client_ip,omitempty"`
}

// RequestEvent describes one handled scan request.
type RequestEvent struct {
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
}

// ConnectionEvent describes a hub connection change.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected" or "disconnected"
	ClientID string `json:"client_id"`
}

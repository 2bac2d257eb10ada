package event

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event type discriminants. The set is closed on the server side but the
// router treats unknown types as a no-op for forward compatibility.
const (
	TypeSessionCreated = "session.created"
	TypeSessionUpdated = "session.updated"
	TypeSessionStatus  = "session.status"

	TypeMessageUpdated     = "message.updated"
	TypeMessagePartUpdated = "message.part.updated"
	TypeMessagePartRemoved = "message.part.removed"

	TypePermissionAsked   = "permission.asked"
	TypePermissionReplied = "permission.replied"

	TypeQuestionAsked    = "question.asked"
	TypeQuestionReplied  = "question.replied"
	TypeQuestionRejected = "question.rejected"

	TypeServerConnected = "server.connected"
	TypeServerHeartbeat = "server.heartbeat"
)

// Event is the unit of transport. Properties stay opaque to the
// ordering and dedup layers; only the router narrows them.
type Event struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
	EventID    string          `json:"eventId"`
	Sequence   int64           `json:"sequence"`
	SessionID  string          `json:"sessionID,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	Directory  string          `json:"directory,omitempty"`
}

// NewID returns a fresh ULID for synthesized identifiers.
func NewID() string {
	return ulid.Make().String()
}

// Now returns the current wall clock in epoch milliseconds, the unit the
// wire format uses for timestamps.
func Now() int64 {
	return time.Now().UnixMilli()
}

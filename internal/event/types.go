package event

import "encoding/json"

// Session status kinds stored client-side.
type StatusKind string

const (
	StatusIdle  StatusKind = "idle"
	StatusBusy  StatusKind = "busy"
	StatusRetry StatusKind = "retry"
)

// Status is the mapped session status. Attempt, Message and Next are
// only meaningful for StatusRetry.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Attempt int        `json:"attempt,omitempty"`
	Message string     `json:"message,omitempty"`
	Next    int64      `json:"next,omitempty"`
}

// Session is the session record. Sessions are created lazily by the
// first event referencing an unknown id and never deleted by this layer.
type Session struct {
	ID        string `json:"id"`
	Directory string `json:"directory,omitempty"`
	Status    Status `json:"status"`
}

// Message is the message record. Existence of a message gates the
// release of buffered parts for it.
type Message struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	SessionID string       `json:"sessionID,omitempty"`
	ParentID  string       `json:"parentID,omitempty"`
	Model     string       `json:"model,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Time      *MessageTime `json:"time,omitempty"`
}

type MessageTime struct {
	Created   int64 `json:"created,omitempty"`
	Completed int64 `json:"completed,omitempty"`
}

// Part is a message fragment. Parts always carry their owning message
// and session; they may arrive before the message exists.
type Part struct {
	ID        string          `json:"id"`
	MessageID string          `json:"messageID"`
	SessionID string          `json:"sessionID"`
	Type      string          `json:"type,omitempty"`
	Text      string          `json:"text,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	CallID    string          `json:"callID,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Permission is a pending permission prompt derived from permission.asked.
type Permission struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"sessionID"`
	MessageID   string   `json:"messageID"`
	CallID      string   `json:"callID,omitempty"`
	Title       string   `json:"title,omitempty"`
	Patterns    []string `json:"patterns,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Question is a pending question prompt derived from question.asked.
// Only the first question of the payload is surfaced.
type Question struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionID"`
	MessageID string   `json:"messageID"`
	Text      string   `json:"text,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// Reply carries the resolution of a permission or question prompt.
type Reply struct {
	RequestID string   `json:"requestID"`
	Reply     string   `json:"reply,omitempty"`
	Answers   []string `json:"answers,omitempty"`
}

// PartRef names a part for removal.
type PartRef struct {
	SessionID string `json:"sessionID,omitempty"`
	MessageID string `json:"messageID"`
	PartID    string `json:"partID"`
}

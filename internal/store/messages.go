package store

import (
	"sync"

	"github.com/harunnryd/seiri/internal/event"
)

// MessageStore is the typed container for message records.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]*event.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]*event.Message),
	}
}

func (s *MessageStore) Upsert(msg *event.Message) {
	if msg == nil || msg.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.messages[msg.ID]; ok {
		if msg.SessionID == "" {
			msg.SessionID = existing.SessionID
		}
		if msg.ParentID == "" {
			msg.ParentID = existing.ParentID
		}
	}
	s.messages[msg.ID] = msg
}

// GetByID returns a copy of the record so callers never alias the
// stored struct.
func (s *MessageStore) GetByID(id string) (*event.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	copied := *msg
	return &copied, true
}

// ResolveSessionID walks the parent chain until a message with a session
// id is found. Bounded to avoid cycles in malformed input.
func (s *MessageStore) ResolveSessionID(messageID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := messageID
	for depth := 0; depth < 16; depth++ {
		msg, ok := s.messages[id]
		if !ok {
			return ""
		}
		if msg.SessionID != "" {
			return msg.SessionID
		}
		if msg.ParentID == "" || msg.ParentID == id {
			return ""
		}
		id = msg.ParentID
	}
	return ""
}

// List returns copies. Safe to encode or render while the stream keeps
// routing events.
func (s *MessageStore) List(sessionID string) []*event.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*event.Message
	for _, msg := range s.messages {
		if sessionID == "" || msg.SessionID == sessionID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	return out
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

package pending

import (
	"log/slog"
	"sync"

	"github.com/harunnryd/seiri/internal/event"
)

const DefaultMaxPerMessage = 256

// Store holds parts whose owning message has not been created yet,
// keyed by message id. Within one message the list keeps arrival order,
// deduplicated by part id: a later part with the same id replaces the
// earlier one in place. Cross-message ordering is irrelevant since
// release is triggered independently per message.
//
// Each list is capped; on overflow the oldest held part is dropped,
// mirroring the ordering buffer's bounded-memory policy. A message that
// never arrives therefore cannot grow its list without bound.
type Store struct {
	mu            sync.Mutex
	byMessage     map[string][]*event.Part
	maxPerMessage int
}

type Stats struct {
	Messages int `json:"messages"`
	Parts    int `json:"parts"`
}

func NewStore(maxPerMessage int) *Store {
	if maxPerMessage <= 0 {
		maxPerMessage = DefaultMaxPerMessage
	}
	return &Store{
		byMessage:     make(map[string][]*event.Part),
		maxPerMessage: maxPerMessage,
	}
}

// Hold buffers a part for a not-yet-created message, replacing any
// previously held part with the same id in place.
func (s *Store) Hold(messageID string, part *event.Part) {
	if messageID == "" || part == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byMessage[messageID]
	for i, held := range list {
		if held.ID == part.ID {
			list[i] = part
			return
		}
	}

	if len(list) >= s.maxPerMessage {
		slog.Warn("Pending parts overflow, dropping oldest",
			"message_id", messageID,
			"part_id", list[0].ID,
			"cap", s.maxPerMessage)
		list = list[1:]
	}
	s.byMessage[messageID] = append(list, part)
}

// Drain returns and removes the full held list for a message, in arrival
// order. Empty when nothing is held.
func (s *Store) Drain(messageID string) []*event.Part {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.byMessage[messageID]
	if !ok {
		return nil
	}
	delete(s.byMessage, messageID)
	return list
}

// Held reports whether any parts are held for the message.
func (s *Store) Held(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.byMessage[messageID]) > 0
}

// DropSession removes every held part belonging to the session, deleting
// lists that become empty.
func (s *Store) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for messageID, list := range s.byMessage {
		kept := list[:0]
		for _, part := range list {
			if part.SessionID != sessionID {
				kept = append(kept, part)
			}
		}
		if len(kept) == 0 {
			delete(s.byMessage, messageID)
		} else {
			s.byMessage[messageID] = kept
		}
	}
}

func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Messages: len(s.byMessage)}
	for _, list := range s.byMessage {
		stats.Parts += len(list)
	}
	return stats
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMessage = make(map[string][]*event.Part)
}

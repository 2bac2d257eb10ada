package store

import (
	"sync"

	"github.com/harunnryd/seiri/internal/event"
)

// PartStore is the typed container for message parts, keyed by owning
// message. Upserts are idempotent by part id; within a message, first
// arrival fixes the display order.
type PartStore struct {
	mu        sync.RWMutex
	byMessage map[string][]*event.Part
}

func NewPartStore() *PartStore {
	return &PartStore{
		byMessage: make(map[string][]*event.Part),
	}
}

func (s *PartStore) Upsert(part *event.Part) {
	if part == nil || part.ID == "" || part.MessageID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byMessage[part.MessageID]
	for i, existing := range list {
		if existing.ID == part.ID {
			list[i] = part
			return
		}
	}
	s.byMessage[part.MessageID] = append(list, part)
}

// Remove deletes the named part. Unknown ids are a no-op.
func (s *PartStore) Remove(partID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.byMessage[messageID]
	if !ok {
		return
	}
	for i, existing := range list {
		if existing.ID == partID {
			s.byMessage[messageID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.byMessage[messageID]) == 0 {
		delete(s.byMessage, messageID)
	}
}

// GetByID returns a copy of the record so callers never alias the
// stored struct.
func (s *PartStore) GetByID(partID, messageID string) (*event.Part, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.byMessage[messageID] {
		if existing.ID == partID {
			copied := *existing
			return &copied, true
		}
	}
	return nil, false
}

// List returns copies, in display order. Safe to encode or render while
// the stream keeps routing events.
func (s *PartStore) List(messageID string) []*event.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byMessage[messageID]
	out := make([]*event.Part, 0, len(list))
	for _, part := range list {
		copied := *part
		out = append(out, &copied)
	}
	return out
}

func (s *PartStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, list := range s.byMessage {
		count += len(list)
	}
	return count
}

package store

import (
	"sort"
	"sync"

	"github.com/harunnryd/seiri/internal/event"
)

// SessionStore is the typed container for session records. Sessions are
// created lazily on first reference and never deleted here; deletion is
// an external concern.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*event.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*event.Session),
	}
}

// Upsert inserts or replaces a session record by id.
func (s *SessionStore) Upsert(sess *event.Session) {
	if sess == nil || sess.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[sess.ID]; ok {
		// Preserve fields the update did not carry.
		if sess.Directory == "" {
			sess.Directory = existing.Directory
		}
	}
	s.sessions[sess.ID] = sess
}

// GetByID returns a copy of the record; writes go through Upsert and
// SetStatus only, so readers never alias a mutating struct.
func (s *SessionStore) GetByID(id string) (*event.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	copied := *sess
	return &copied, true
}

// SetStatus applies a status to an existing session. Unknown ids are a
// no-op; callers create the session first when that matters.
func (s *SessionStore) SetStatus(id string, status event.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.Status = status
}

// List returns copies, sorted by id. Safe to encode or render while the
// stream keeps routing events.
func (s *SessionStore) List() []*event.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*event.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		copied := *sess
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

package store

import (
	"sort"
	"sync"

	"github.com/harunnryd/seiri/internal/event"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
	RequestAnswered RequestStatus = "answered"
	RequestRejected RequestStatus = "rejected"
)

// PermissionRequest is a permission prompt awaiting approval.
type PermissionRequest struct {
	event.Permission
	Status RequestStatus `json:"status"`
}

// PermissionStore queues permission prompts and resolves them by id.
// Resolving an unknown id is a silent no-op: the request may have timed
// out or been resolved through another path.
type PermissionStore struct {
	mu       sync.RWMutex
	requests map[string]*PermissionRequest
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{
		requests: make(map[string]*PermissionRequest),
	}
}

func (s *PermissionStore) Add(perm *event.Permission) {
	if perm == nil || perm.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[perm.ID] = &PermissionRequest{
		Permission: *perm,
		Status:     RequestPending,
	}
}

// Resolve marks a pending request approved or denied. Reports whether a
// pending request with that id existed.
func (s *PermissionStore) Resolve(id string, approved bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != RequestPending {
		return false
	}
	if approved {
		req.Status = RequestApproved
	} else {
		req.Status = RequestDenied
	}
	return true
}

func (s *PermissionStore) GetByID(id string) (*PermissionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	return req, ok
}

func (s *PermissionStore) Pending() []*PermissionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*PermissionRequest
	for _, req := range s.requests {
		if req.Status == RequestPending {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QuestionRequest is a question prompt awaiting an answer.
type QuestionRequest struct {
	event.Question
	Status  RequestStatus `json:"status"`
	Answers []string      `json:"answers,omitempty"`
}

// QuestionStore queues question prompts and resolves them by id with an
// answer payload or a rejection marker.
type QuestionStore struct {
	mu       sync.RWMutex
	requests map[string]*QuestionRequest
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{
		requests: make(map[string]*QuestionRequest),
	}
}

func (s *QuestionStore) Add(q *event.Question) {
	if q == nil || q.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[q.ID] = &QuestionRequest{
		Question: *q,
		Status:   RequestPending,
	}
}

// Answer records the answer payload for a pending request.
func (s *QuestionStore) Answer(id string, answers []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != RequestPending {
		return false
	}
	req.Status = RequestAnswered
	req.Answers = answers
	return true
}

// Reject marks a pending request rejected.
func (s *QuestionStore) Reject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != RequestPending {
		return false
	}
	req.Status = RequestRejected
	return true
}

func (s *QuestionStore) GetByID(id string) (*QuestionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	return req, ok
}

func (s *QuestionStore) Pending() []*QuestionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*QuestionRequest
	for _, req := range s.requests {
		if req.Status == RequestPending {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

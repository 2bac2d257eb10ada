package ordering

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/seiri/internal/event"
)

const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxQueueSize = 100
)

// Buffer reconstructs a strictly increasing per-session sequence from a
// possibly out-of-order stream. Memory and staleness are both bounded:
// when a session holds more than maxQueueSize events, or a gap stays
// open longer than timeout, the held events are force-flushed in
// ascending order and the missing sequences are presumed lost. That is a
// deliberate, observable policy rather than silent data loss.
//
// Staleness is evaluated lazily on Add and via FlushStaleSession; no
// background timer runs inside the buffer.
type Buffer struct {
	mu           sync.Mutex
	sessions     map[string]*sessionState
	timeout      time.Duration
	maxQueueSize int
	now          func() time.Time
}

type sessionState struct {
	cursor      int64
	established bool
	held        map[int64]*event.Event
	gapStart    time.Time
}

// SessionStats is a read-only snapshot of one session's ordering state.
type SessionStats struct {
	Cursor      int64         `json:"cursor"`
	Established bool          `json:"established"`
	HeldCount   int           `json:"held_count"`
	GapAge      time.Duration `json:"gap_age"`
}

func NewBuffer(timeout time.Duration, maxQueueSize int) *Buffer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	}
	return &Buffer{
		sessions:     make(map[string]*sessionState),
		timeout:      timeout,
		maxQueueSize: maxQueueSize,
		now:          time.Now,
	}
}

// Add submits one event and returns the events now eligible for
// application, in ascending sequence order. Events without a session id
// have no ordering domain and pass through immediately.
func (b *Buffer) Add(evt *event.Event) []*event.Event {
	if evt == nil {
		return nil
	}
	if evt.SessionID == "" {
		return []*event.Event{evt}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.sessions[evt.SessionID]
	if !ok {
		state = &sessionState{held: make(map[int64]*event.Event)}
		b.sessions[evt.SessionID] = state
	}

	// First event for the session establishes the cursor.
	if !state.established {
		state.established = true
		state.cursor = evt.Sequence
	}

	var emitted []*event.Event
	switch {
	case evt.Sequence == state.cursor:
		emitted = append(emitted, evt)
		state.cursor++
		emitted = append(emitted, b.drain(state)...)

	case evt.Sequence < state.cursor:
		// Superseded by ordering alone, even if never seen before.
		slog.Debug("Dropping stale event",
			"session_id", evt.SessionID,
			"sequence", evt.Sequence,
			"cursor", state.cursor)
		return nil

	default:
		state.held[evt.Sequence] = evt
		if state.gapStart.IsZero() {
			state.gapStart = b.now()
		}
	}

	// Overflow and staleness are checked on every submission, not only
	// on the path that held the event.
	if len(state.held) > b.maxQueueSize || b.gapExpired(state) {
		emitted = append(emitted, b.flush(evt.SessionID, state)...)
	}
	return emitted
}

// drain pops the contiguous run starting at the cursor.
func (b *Buffer) drain(state *sessionState) []*event.Event {
	var emitted []*event.Event
	for {
		next, ok := state.held[state.cursor]
		if !ok {
			break
		}
		delete(state.held, state.cursor)
		emitted = append(emitted, next)
		state.cursor++
	}

	if len(state.held) == 0 {
		state.gapStart = time.Time{}
	} else {
		// Whatever remains is a fresh gap.
		state.gapStart = b.now()
	}
	return emitted
}

func (b *Buffer) gapExpired(state *sessionState) bool {
	return !state.gapStart.IsZero() && b.now().Sub(state.gapStart) > b.timeout
}

// flush emits every held event in ascending sequence order, accepting
// the gap, and advances the cursor past the highest emitted sequence.
func (b *Buffer) flush(sessionID string, state *sessionState) []*event.Event {
	if len(state.held) == 0 {
		return nil
	}

	seqs := make([]int64, 0, len(state.held))
	for seq := range state.held {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	emitted := make([]*event.Event, 0, len(seqs))
	for _, seq := range seqs {
		emitted = append(emitted, state.held[seq])
	}

	slog.Warn("Forced ordering flush",
		"session_id", sessionID,
		"released", len(emitted),
		"cursor", state.cursor,
		"highest", seqs[len(seqs)-1])

	state.cursor = seqs[len(seqs)-1] + 1
	state.held = make(map[int64]*event.Event)
	state.gapStart = time.Time{}
	return emitted
}

// StaleSessions returns the ids of sessions whose gap has been open
// longer than the timeout, sorted for deterministic sweeps.
func (b *Buffer) StaleSessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []string
	for sessionID, state := range b.sessions {
		if b.gapExpired(state) {
			out = append(out, sessionID)
		}
	}
	sort.Strings(out)
	return out
}

// FlushStaleSession force-flushes one session if its gap has been open
// longer than the timeout and returns the released events. A session
// whose gap closed since it was reported stale returns nothing, so
// callers may safely re-check after taking their own locks.
func (b *Buffer) FlushStaleSession(sessionID string) []*event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.sessions[sessionID]
	if !ok || !b.gapExpired(state) {
		return nil
	}
	return b.flush(sessionID, state)
}

// GetStats returns a snapshot for one session, or false if the session
// has no ordering state.
func (b *Buffer) GetStats(sessionID string) (SessionStats, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.sessions[sessionID]
	if !ok {
		return SessionStats{}, false
	}
	return b.snapshot(state), true
}

// GetAllStats returns snapshots for every tracked session.
func (b *Buffer) GetAllStats() map[string]SessionStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]SessionStats, len(b.sessions))
	for sessionID, state := range b.sessions {
		out[sessionID] = b.snapshot(state)
	}
	return out
}

func (b *Buffer) snapshot(state *sessionState) SessionStats {
	stats := SessionStats{
		Cursor:      state.cursor,
		Established: state.established,
		HeldCount:   len(state.held),
	}
	if !state.gapStart.IsZero() {
		stats.GapAge = b.now().Sub(state.gapStart)
	}
	return stats
}

// ClearSession drops all buffering state for one session without
// emitting held events. Callers needing the held events must flush
// first.
func (b *Buffer) ClearSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

// Clear drops all buffering state for every session.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = make(map[string]*sessionState)
}

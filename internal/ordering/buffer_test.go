package ordering

import (
	"math/rand"
	"testing"
	"time"

	"github.com/harunnryd/seiri/internal/event"
)

func evt(sessionID string, seq int64) *event.Event {
	return &event.Event{
		Type:      event.TypeMessageUpdated,
		EventID:   "evt_" + sessionID + "_" + string(rune('a'+seq%26)),
		SessionID: sessionID,
		Sequence:  seq,
	}
}

func seqs(events []*event.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.Sequence)
	}
	return out
}

func TestAdd_InOrderPassthrough(t *testing.T) {
	b := NewBuffer(time.Second, 10)

	for i := int64(0); i < 5; i++ {
		got := b.Add(evt("ses_1", i))
		if len(got) != 1 || got[0].Sequence != i {
			t.Fatalf("expected immediate emit of seq %d, got %v", i, seqs(got))
		}
	}
}

func TestAdd_NoSessionBypassesOrdering(t *testing.T) {
	b := NewBuffer(time.Second, 10)

	e := &event.Event{Type: event.TypeServerHeartbeat, EventID: "evt_hb", Sequence: 99}
	got := b.Add(e)
	if len(got) != 1 || got[0] != e {
		t.Fatal("events without a session id must pass through immediately")
	}
	if len(b.GetAllStats()) != 0 {
		t.Fatal("bypass must not create session state")
	}
}

func TestAdd_FirstEventEstablishesCursor(t *testing.T) {
	b := NewBuffer(time.Second, 10)

	got := b.Add(evt("ses_1", 42))
	if len(got) != 1 || got[0].Sequence != 42 {
		t.Fatalf("expected emit of seq 42, got %v", seqs(got))
	}

	stats, ok := b.GetStats("ses_1")
	if !ok || !stats.Established || stats.Cursor != 43 {
		t.Fatalf("expected cursor 43, got %+v", stats)
	}
}

func TestAdd_ReordersGap(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	b.Add(evt("ses_1", 1))

	if got := b.Add(evt("ses_1", 3)); len(got) != 0 {
		t.Fatalf("seq 3 must be held, got %v", seqs(got))
	}

	got := b.Add(evt("ses_1", 2))
	want := []int64{2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, seqs(got))
	}
	for i, e := range got {
		if e.Sequence != want[i] {
			t.Fatalf("expected %v, got %v", want, seqs(got))
		}
	}
}

func TestAdd_DropsStale(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	b.Add(evt("ses_1", 5))

	if got := b.Add(evt("ses_1", 4)); got != nil {
		t.Fatalf("seq below cursor must be dropped, got %v", seqs(got))
	}
	if got := b.Add(evt("ses_1", 5)); got != nil {
		t.Fatalf("seq below advanced cursor must be dropped, got %v", seqs(got))
	}
}

func TestAdd_OverflowForcesFlush(t *testing.T) {
	b := NewBuffer(time.Hour, 2)

	b.Add(evt("ses_1", 0))

	b.Add(evt("ses_1", 2))
	b.Add(evt("ses_1", 3))

	// Third held event exceeds the cap; everything is released ascending
	// and the cursor jumps past the highest.
	got := b.Add(evt("ses_1", 7))
	want := []int64{2, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("expected flush %v, got %v", want, seqs(got))
	}
	for i, e := range got {
		if e.Sequence != want[i] {
			t.Fatalf("expected flush %v, got %v", want, seqs(got))
		}
	}

	stats, _ := b.GetStats("ses_1")
	if stats.Cursor != 8 || stats.HeldCount != 0 {
		t.Fatalf("expected cursor 8 with empty hold, got %+v", stats)
	}

	// The presumed-lost sequence is stale if it finally shows up.
	if late := b.Add(evt("ses_1", 4)); late != nil {
		t.Fatalf("late arrival below flushed cursor must be dropped, got %v", seqs(late))
	}
}

func TestAdd_TimeoutForcesFlush(t *testing.T) {
	now := time.Now()
	b := NewBuffer(5*time.Second, 100)
	b.now = func() time.Time { return now }

	b.Add(evt("ses_1", 0))
	b.Add(evt("ses_1", 2))

	// Gap still fresh: another out-of-order arrival stays held.
	now = now.Add(3 * time.Second)
	if got := b.Add(evt("ses_1", 3)); len(got) != 0 {
		t.Fatalf("gap not yet stale, got %v", seqs(got))
	}

	now = now.Add(3 * time.Second)
	got := b.Add(evt("ses_1", 5))
	want := []int64{2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("expected timeout flush %v, got %v", want, seqs(got))
	}
}

func TestFlushStaleSession(t *testing.T) {
	now := time.Now()
	b := NewBuffer(5*time.Second, 100)
	b.now = func() time.Time { return now }

	b.Add(evt("ses_1", 0))
	b.Add(evt("ses_1", 2))
	b.Add(evt("ses_2", 0))
	b.Add(evt("ses_2", 2))

	if got := b.StaleSessions(); len(got) != 0 {
		t.Fatalf("nothing stale yet, got %v", got)
	}
	if got := b.FlushStaleSession("ses_1"); len(got) != 0 {
		t.Fatalf("fresh gap must not flush, got %v", seqs(got))
	}

	now = now.Add(6 * time.Second)
	stale := b.StaleSessions()
	if len(stale) != 2 || stale[0] != "ses_1" || stale[1] != "ses_2" {
		t.Fatalf("expected both sessions stale, got %v", stale)
	}

	for _, sessionID := range stale {
		got := b.FlushStaleSession(sessionID)
		if len(got) != 1 || got[0].Sequence != 2 {
			t.Fatalf("session %s: expected held seq 2 released, got %v", sessionID, seqs(got))
		}
		stats, _ := b.GetStats(sessionID)
		if stats.HeldCount != 0 || stats.Cursor != 3 {
			t.Fatalf("session %s not flushed: %+v", sessionID, stats)
		}
	}

	// A second flush finds nothing; the gap is gone.
	if got := b.FlushStaleSession("ses_1"); got != nil {
		t.Fatalf("repeat flush must be empty, got %v", seqs(got))
	}
	if got := b.FlushStaleSession("ses_unknown"); got != nil {
		t.Fatalf("unknown session must be empty, got %v", seqs(got))
	}
}

func TestAdd_PermutationRecoversOrder(t *testing.T) {
	b := NewBuffer(time.Hour, 100)

	rng := rand.New(rand.NewSource(1))
	rest := rng.Perm(19)

	var applied []int64
	applied = append(applied, seqs(b.Add(evt("ses_1", 0)))...)
	for _, n := range rest {
		applied = append(applied, seqs(b.Add(evt("ses_1", int64(n+1))))...)
	}

	if len(applied) != 20 {
		t.Fatalf("expected all 20 events applied, got %d", len(applied))
	}
	for i, seq := range applied {
		if seq != int64(i) {
			t.Fatalf("application order broken at %d: %v", i, applied)
		}
	}
}

func TestClearSession_ScopedToSession(t *testing.T) {
	b := NewBuffer(time.Minute, 10)

	b.Add(evt("ses_1", 0))
	b.Add(evt("ses_1", 2))
	b.Add(evt("ses_2", 0))
	b.Add(evt("ses_2", 2))

	b.ClearSession("ses_1")

	if _, ok := b.GetStats("ses_1"); ok {
		t.Fatal("ses_1 state must be gone")
	}
	stats, ok := b.GetStats("ses_2")
	if !ok || stats.HeldCount != 1 {
		t.Fatalf("ses_2 state must be intact, got %+v", stats)
	}

	// A cleared session re-establishes from its next event.
	got := b.Add(evt("ses_1", 10))
	if len(got) != 1 || got[0].Sequence != 10 {
		t.Fatalf("expected re-established emit, got %v", seqs(got))
	}
}

func TestClear_DropsEverything(t *testing.T) {
	b := NewBuffer(time.Minute, 10)
	b.Add(evt("ses_1", 0))
	b.Add(evt("ses_2", 0))

	b.Clear()

	if len(b.GetAllStats()) != 0 {
		t.Fatal("expected no session state after clear")
	}
}

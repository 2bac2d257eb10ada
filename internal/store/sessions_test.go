package store

import (
	"encoding/json"
	"testing"

	"github.com/harunnryd/seiri/internal/event"
)

func TestSessionStore_UpsertPreservesDirectory(t *testing.T) {
	s := NewSessionStore()

	s.Upsert(&event.Session{ID: "ses_1", Directory: "/work/proj"})
	s.Upsert(&event.Session{ID: "ses_1", Status: event.Status{Kind: event.StatusBusy}})

	sess, ok := s.GetByID("ses_1")
	if !ok {
		t.Fatal("session missing")
	}
	if sess.Directory != "/work/proj" {
		t.Fatalf("directory lost on update: %q", sess.Directory)
	}
	if sess.Status.Kind != event.StatusBusy {
		t.Fatalf("status not applied: %v", sess.Status.Kind)
	}
}

func TestSessionStore_SetStatusUnknownIsNoop(t *testing.T) {
	s := NewSessionStore()

	s.SetStatus("ses_missing", event.Status{Kind: event.StatusBusy})

	if s.Len() != 0 {
		t.Fatal("setting status on unknown id must not create a session")
	}
}

func TestSessionStore_ListSorted(t *testing.T) {
	s := NewSessionStore()
	s.Upsert(&event.Session{ID: "ses_c"})
	s.Upsert(&event.Session{ID: "ses_a"})
	s.Upsert(&event.Session{ID: "ses_b"})

	got := s.List()
	if len(got) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(got))
	}
	for i, want := range []string{"ses_a", "ses_b", "ses_c"} {
		if got[i].ID != want {
			t.Fatalf("list not sorted: got %s at %d", got[i].ID, i)
		}
	}
}

func TestSessionStore_ReadsIsolatedFromWrites(t *testing.T) {
	s := NewSessionStore()
	s.Upsert(&event.Session{ID: "ses_1", Status: event.Status{Kind: event.StatusIdle}})

	// A returned record is a copy: later writes must not show through.
	sess, _ := s.GetByID("ses_1")
	s.SetStatus("ses_1", event.Status{Kind: event.StatusBusy})
	if sess.Status.Kind != event.StatusIdle {
		t.Fatalf("GetByID must not alias the stored record, saw %v", sess.Status.Kind)
	}
	listed := s.List()
	s.SetStatus("ses_1", event.Status{Kind: event.StatusIdle})
	if listed[0].Status.Kind != event.StatusBusy {
		t.Fatalf("List must not alias the stored record, saw %v", listed[0].Status.Kind)
	}

	// Encoding a listing while statuses keep changing must be safe.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.SetStatus("ses_1", event.Status{Kind: event.StatusBusy})
			s.SetStatus("ses_1", event.Status{Kind: event.StatusIdle})
		}
	}()
	for i := 0; i < 500; i++ {
		if _, err := json.Marshal(s.List()); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
	}
	<-done
}

func TestSessionStore_IgnoresDegenerateInput(t *testing.T) {
	s := NewSessionStore()
	s.Upsert(nil)
	s.Upsert(&event.Session{})

	if s.Len() != 0 {
		t.Fatal("degenerate upserts must be ignored")
	}
}

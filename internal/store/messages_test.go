package store

import (
	"testing"

	"github.com/harunnryd/seiri/internal/event"
)

func TestMessageStore_UpsertPreservesLinkage(t *testing.T) {
	s := NewMessageStore()

	s.Upsert(&event.Message{ID: "msg_1", SessionID: "ses_1", ParentID: "msg_0"})
	s.Upsert(&event.Message{ID: "msg_1", Role: "assistant"})

	msg, ok := s.GetByID("msg_1")
	if !ok {
		t.Fatal("message missing")
	}
	if msg.SessionID != "ses_1" || msg.ParentID != "msg_0" {
		t.Fatalf("linkage lost on update: %+v", msg)
	}
	if msg.Role != "assistant" {
		t.Fatalf("update not applied: %q", msg.Role)
	}
}

func TestResolveSessionID_WalksParentChain(t *testing.T) {
	s := NewMessageStore()

	s.Upsert(&event.Message{ID: "msg_root", SessionID: "ses_1"})
	s.Upsert(&event.Message{ID: "msg_mid", ParentID: "msg_root"})
	s.Upsert(&event.Message{ID: "msg_leaf", ParentID: "msg_mid"})

	if got := s.ResolveSessionID("msg_leaf"); got != "ses_1" {
		t.Fatalf("expected ses_1 via chain, got %q", got)
	}
	if got := s.ResolveSessionID("msg_unknown"); got != "" {
		t.Fatalf("unknown message must resolve empty, got %q", got)
	}
}

func TestResolveSessionID_BoundedOnCycle(t *testing.T) {
	s := NewMessageStore()

	s.Upsert(&event.Message{ID: "msg_a", ParentID: "msg_b"})
	s.Upsert(&event.Message{ID: "msg_b", ParentID: "msg_a"})

	if got := s.ResolveSessionID("msg_a"); got != "" {
		t.Fatalf("cycle must resolve empty, got %q", got)
	}
}

func TestMessageStore_ListBySession(t *testing.T) {
	s := NewMessageStore()
	s.Upsert(&event.Message{ID: "msg_1", SessionID: "ses_1"})
	s.Upsert(&event.Message{ID: "msg_2", SessionID: "ses_2"})
	s.Upsert(&event.Message{ID: "msg_3", SessionID: "ses_1"})

	if got := len(s.List("ses_1")); got != 2 {
		t.Fatalf("expected 2 messages for ses_1, got %d", got)
	}
	if got := len(s.List("")); got != 3 {
		t.Fatalf("expected 3 messages unscoped, got %d", got)
	}
}

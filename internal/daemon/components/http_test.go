package components

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/event"
	"github.com/harunnryd/seiri/internal/pipeline"
	"github.com/harunnryd/seiri/internal/store"
)

func newTestHTTPComponent(t *testing.T) (*HTTPComponent, pipeline.Stores, *pipeline.Pipeline) {
	t.Helper()

	stores := pipeline.Stores{
		Sessions:    store.NewSessionStore(),
		Messages:    store.NewMessageStore(),
		Parts:       store.NewPartStore(),
		Permissions: store.NewPermissionStore(),
		Questions:   store.NewQuestionStore(),
	}
	pipe := pipeline.New(pipeline.RuntimeConfig{}, stores)

	comp := NewHTTPComponent(&config.Config{}, pipe, stores, nil)
	if err := comp.Init(context.Background()); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return comp, stores, pipe
}

func TestHandleStats(t *testing.T) {
	comp, stores, pipe := newTestHTTPComponent(t)

	stores.Sessions.Upsert(&event.Session{ID: "ses_1"})
	pipe.Apply(context.Background(), &event.Event{
		Type:       event.TypeSessionCreated,
		EventID:    "evt_1",
		SessionID:  "ses_1",
		Properties: json.RawMessage(`{"info":{"id":"ses_1"}}`),
	})

	rec := httptest.NewRecorder()
	comp.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Sessions != 1 {
		t.Fatalf("expected 1 session, got %d", resp.Sessions)
	}
	if resp.Dedup.Size != 1 {
		t.Fatalf("expected dedup size 1, got %d", resp.Dedup.Size)
	}
}

func TestHandleSessions(t *testing.T) {
	comp, stores, _ := newTestHTTPComponent(t)

	stores.Sessions.Upsert(&event.Session{ID: "ses_1", Directory: "/work", Status: event.Status{Kind: event.StatusBusy}})

	rec := httptest.NewRecorder()
	comp.handleSessions(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))

	var list SessionList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if list.Count != 1 || list.Sessions[0].ID != "ses_1" {
		t.Fatalf("unexpected session list: %+v", list)
	}
	if list.Sessions[0].Status.Kind != event.StatusBusy {
		t.Fatalf("status lost in transit: %+v", list.Sessions[0])
	}
}

func TestHandleHealth(t *testing.T) {
	comp, _, _ := newTestHTTPComponent(t)

	rec := httptest.NewRecorder()
	comp.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok, got %v", body["status"])
	}
}

package event

import (
	"encoding/json"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewStandardValidator()

	valid := &Event{
		Type:       TypeSessionCreated,
		EventID:    "evt_1",
		Sequence:   0,
		Properties: json.RawMessage(`{"info":{"id":"ses_1"}}`),
	}
	if err := v.Validate(valid); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	cases := []struct {
		name string
		evt  *Event
	}{
		{"nil event", nil},
		{"empty type", &Event{EventID: "evt_1"}},
		{"empty id", &Event{Type: TypeSessionCreated}},
		{"negative sequence", &Event{Type: TypeSessionCreated, EventID: "evt_1", Sequence: -1}},
		{"bad json", &Event{Type: TypeSessionCreated, EventID: "evt_1", Properties: json.RawMessage(`{"broken`)}},
	}

	for _, tc := range cases {
		if err := v.Validate(tc.evt); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestValidate_EmptyPropertiesAllowed(t *testing.T) {
	v := NewStandardValidator()

	evt := &Event{Type: TypeServerHeartbeat, EventID: "evt_1"}
	if err := v.Validate(evt); err != nil {
		t.Fatalf("empty properties must be allowed, got %v", err)
	}
}

package event

import (
	"github.com/tidwall/gjson"

	"github.com/harunnryd/seiri/internal/errors"
)

// Validator rejects malformed events before they reach dedup/ordering.
// Pure predicate, no side effects.
type Validator interface {
	Validate(evt *Event) error
}

type StandardValidator struct{}

func NewStandardValidator() *StandardValidator {
	return &StandardValidator{}
}

func (v *StandardValidator) Validate(evt *Event) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}
	if evt.Type == "" {
		return errors.InvalidInput("event type is empty")
	}
	if evt.EventID == "" {
		return errors.InvalidInput("event id is empty")
	}
	if evt.Sequence < 0 {
		return errors.InvalidInput("event sequence is negative")
	}
	if len(evt.Properties) > 0 && !gjson.ValidBytes(evt.Properties) {
		return errors.InvalidInput("event properties are not valid JSON")
	}
	return nil
}

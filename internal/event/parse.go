package event

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/harunnryd/seiri/internal/errors"
)

// The wire payloads are loosely shaped: some fields live under an "info"
// or "part" wrapper, some appear both in the payload and on the
// envelope, and a few are polymorphic (session status is either a
// literal string or a structured object). Narrowing happens here, once,
// with gjson probing the raw properties; the router only ever sees the
// typed records.

// ParseSession extracts a session record from session.created /
// session.updated properties. A bare sessionID yields a minimal record.
func ParseSession(evt *Event) (*Session, error) {
	props := gjson.ParseBytes(evt.Properties)

	info := props.Get("info")
	if !info.Exists() {
		info = props
	}

	id := info.Get("id").String()
	if id == "" {
		id = props.Get("sessionID").String()
	}
	if id == "" {
		id = evt.SessionID
	}
	if id == "" {
		return nil, errors.InvalidInput("session payload has no id")
	}

	sess := &Session{
		ID:        id,
		Directory: info.Get("directory").String(),
		Status:    Status{Kind: StatusIdle},
	}
	if sess.Directory == "" {
		sess.Directory = evt.Directory
	}

	return sess, nil
}

// ParseSessionStatus extracts the target session and its mapped status
// from session.created / session.updated / session.status properties.
// The bool reports whether a status payload was present at all; a
// present-but-unmappable payload is an error and no status change must
// be applied.
func ParseSessionStatus(evt *Event) (string, *Status, bool, error) {
	props := gjson.ParseBytes(evt.Properties)

	id := props.Get("sessionID").String()
	if id == "" {
		id = props.Get("info.id").String()
	}
	if id == "" {
		id = evt.SessionID
	}

	raw := props.Get("status")
	if !raw.Exists() {
		raw = props.Get("info.status")
	}
	if !raw.Exists() {
		return id, nil, false, nil
	}

	status, err := mapStatus(raw)
	if err != nil {
		return id, nil, true, err
	}
	return id, status, true, nil
}

// mapStatus applies the inbound-to-stored status mapping. Literal
// "error" maps to idle so a failed turn never leaves a session stuck
// busy.
func mapStatus(raw gjson.Result) (*Status, error) {
	if raw.Type == gjson.String {
		switch raw.String() {
		case "idle":
			return &Status{Kind: StatusIdle}, nil
		case "running":
			return &Status{Kind: StatusBusy}, nil
		case "error":
			return &Status{Kind: StatusIdle}, nil
		}
		return nil, errors.InvalidInput("unknown status literal " + raw.String())
	}

	if raw.IsObject() && raw.Get("type").String() == "retry" {
		attempt := raw.Get("attempt")
		message := raw.Get("message")
		next := raw.Get("next")
		if !attempt.Exists() || !message.Exists() || !next.Exists() {
			return nil, errors.InvalidInput("retry status missing attempt/message/next")
		}
		return &Status{
			Kind:    StatusRetry,
			Attempt: int(attempt.Int()),
			Message: message.String(),
			Next:    next.Int(),
		}, nil
	}

	return nil, errors.InvalidInput("unmappable status payload")
}

// ParseMessage extracts a message record from message.updated properties.
func ParseMessage(evt *Event) (*Message, error) {
	props := gjson.ParseBytes(evt.Properties)

	info := props.Get("info")
	if !info.Exists() {
		info = props
	}
	if info.Get("id").String() == "" {
		return nil, errors.InvalidInput("message payload has no id")
	}

	var msg Message
	if err := json.Unmarshal([]byte(info.Raw), &msg); err != nil {
		return nil, errors.Wrap(err, "decode message info")
	}
	if msg.SessionID == "" {
		msg.SessionID = evt.SessionID
	}

	return &msg, nil
}

// ParsePart extracts a part record from message.part.updated properties.
// The original payload is retained in Raw so downstream observers lose
// nothing to the typed projection.
func ParsePart(evt *Event) (*Part, error) {
	props := gjson.ParseBytes(evt.Properties)

	node := props.Get("part")
	if !node.Exists() {
		node = props
	}

	var part Part
	if err := json.Unmarshal([]byte(node.Raw), &part); err != nil {
		return nil, errors.Wrap(err, "decode part")
	}
	if part.ID == "" || part.MessageID == "" {
		return nil, errors.InvalidInput("part payload missing id or messageID")
	}
	if part.SessionID == "" {
		part.SessionID = evt.SessionID
	}
	part.Raw = json.RawMessage(node.Raw)

	return &part, nil
}

// ParsePartRef extracts the (messageID, partID) pair named by
// message.part.removed.
func ParsePartRef(evt *Event) (*PartRef, error) {
	props := gjson.ParseBytes(evt.Properties)

	ref := &PartRef{
		SessionID: props.Get("sessionID").String(),
		MessageID: props.Get("messageID").String(),
		PartID:    props.Get("partID").String(),
	}
	if ref.PartID == "" {
		ref.PartID = props.Get("part.id").String()
		ref.MessageID = props.Get("part.messageID").String()
	}
	if ref.SessionID == "" {
		ref.SessionID = evt.SessionID
	}
	if ref.MessageID == "" || ref.PartID == "" {
		return nil, errors.InvalidInput("part removal missing messageID or partID")
	}

	return ref, nil
}

// ParsePermission extracts a permission prompt from permission.asked
// properties. When the originating tool call carries no messageID a
// stable synthetic token is derived from the permission id.
func ParsePermission(evt *Event) (*Permission, error) {
	props := gjson.ParseBytes(evt.Properties)

	id := props.Get("id").String()
	if id == "" {
		id = props.Get("permissionID").String()
	}
	if id == "" {
		return nil, errors.InvalidInput("permission payload has no id")
	}

	perm := &Permission{
		ID:        id,
		SessionID: props.Get("sessionID").String(),
		MessageID: props.Get("messageID").String(),
		CallID:    props.Get("callID").String(),
		Title:     props.Get("title").String(),
	}
	if perm.SessionID == "" {
		perm.SessionID = evt.SessionID
	}
	if perm.MessageID == "" {
		perm.MessageID = "permission:" + id
	}

	props.Get("patterns").ForEach(func(_, value gjson.Result) bool {
		if p := value.String(); p != "" {
			perm.Patterns = append(perm.Patterns, p)
		}
		return true
	})
	if len(perm.Patterns) > 0 {
		perm.Description = strings.Join(perm.Patterns, ", ")
	} else {
		perm.Description = perm.Title
	}

	return perm, nil
}

// ParseQuestion extracts a question prompt from question.asked
// properties, surfacing the first question's text and options.
func ParseQuestion(evt *Event) (*Question, error) {
	props := gjson.ParseBytes(evt.Properties)

	id := props.Get("id").String()
	if id == "" {
		id = props.Get("requestID").String()
	}
	if id == "" {
		return nil, errors.InvalidInput("question payload has no id")
	}

	q := &Question{
		ID:        id,
		SessionID: props.Get("sessionID").String(),
		MessageID: props.Get("messageID").String(),
	}
	if q.SessionID == "" {
		q.SessionID = evt.SessionID
	}
	if q.MessageID == "" {
		q.MessageID = "question:" + id
	}

	first := props.Get("questions.0")
	if !first.Exists() {
		first = props.Get("question")
	}
	if first.Exists() {
		q.Text = first.Get("text").String()
		if q.Text == "" {
			q.Text = first.Get("question").String()
		}
		if first.Type == gjson.String {
			q.Text = first.String()
		}
		first.Get("options").ForEach(func(_, value gjson.Result) bool {
			label := value.Get("label").String()
			if label == "" {
				label = value.String()
			}
			if label != "" {
				q.Options = append(q.Options, label)
			}
			return true
		})
	}

	return q, nil
}

// ParseReply extracts the resolution payload of permission.replied,
// question.replied and question.rejected.
func ParseReply(evt *Event) (*Reply, error) {
	props := gjson.ParseBytes(evt.Properties)

	id := props.Get("requestID").String()
	if id == "" {
		id = props.Get("permissionID").String()
	}
	if id == "" {
		id = props.Get("id").String()
	}
	if id == "" {
		return nil, errors.InvalidInput("reply payload has no request id")
	}

	reply := &Reply{RequestID: id}

	resp := props.Get("reply")
	if !resp.Exists() {
		resp = props.Get("response")
	}
	reply.Reply = resp.String()

	props.Get("answers").ForEach(func(_, value gjson.Result) bool {
		reply.Answers = append(reply.Answers, value.String())
		return true
	})

	return reply, nil
}

package pipeline

import (
	"log/slog"

	"github.com/harunnryd/seiri/internal/event"
	"github.com/harunnryd/seiri/internal/pending"
	"github.com/harunnryd/seiri/internal/store"
)

// Stores aggregates the typed state containers the router mutates. The
// permission/question sinks and the notifier are optional; the router
// degrades to a no-op (plus auxiliary notification) when absent.
type Stores struct {
	Sessions    *store.SessionStore
	Messages    *store.MessageStore
	Parts       *store.PartStore
	Permissions *store.PermissionStore
	Questions   *store.QuestionStore
	Notifier    *store.Notifier
}

// Router applies one validated, ordered, deduplicated event to the state
// containers. An unrecognized event type is a silent no-op for forward
// compatibility; a recognized type with a structurally invalid payload
// returns an error for the caller's outcome bookkeeping but never aborts
// the batch.
type Router struct {
	stores  Stores
	pending *pending.Store
}

func NewRouter(stores Stores, pendingParts *pending.Store) *Router {
	return &Router{
		stores:  stores,
		pending: pendingParts,
	}
}

func (r *Router) Route(evt *event.Event) error {
	switch evt.Type {
	case event.TypeSessionCreated, event.TypeSessionUpdated:
		return r.routeSessionUpsert(evt)
	case event.TypeSessionStatus:
		return r.routeSessionStatus(evt)
	case event.TypeMessageUpdated:
		return r.routeMessageUpdated(evt)
	case event.TypeMessagePartUpdated:
		return r.routePartUpdated(evt)
	case event.TypeMessagePartRemoved:
		return r.routePartRemoved(evt)
	case event.TypePermissionAsked:
		return r.routePermissionAsked(evt)
	case event.TypePermissionReplied:
		return r.routePermissionReplied(evt)
	case event.TypeQuestionAsked:
		return r.routeQuestionAsked(evt)
	case event.TypeQuestionReplied:
		return r.routeQuestionReplied(evt)
	case event.TypeQuestionRejected:
		return r.routeQuestionRejected(evt)
	case event.TypeServerConnected, event.TypeServerHeartbeat:
		r.notify(evt)
		return nil
	default:
		slog.Debug("Ignoring unrecognized event type", "type", evt.Type)
		return nil
	}
}

func (r *Router) routeSessionUpsert(evt *event.Event) error {
	sess, err := event.ParseSession(evt)
	if err != nil {
		return err
	}

	if existing, ok := r.stores.Sessions.GetByID(sess.ID); ok {
		sess.Status = existing.Status
	}
	r.stores.Sessions.Upsert(sess)

	id, status, present, err := event.ParseSessionStatus(evt)
	if err != nil {
		// Unmappable status payload: the upsert stands, the status
		// transition is rejected.
		return err
	}
	if present && id != "" {
		r.stores.Sessions.SetStatus(id, *status)
	}
	return nil
}

func (r *Router) routeSessionStatus(evt *event.Event) error {
	id, status, present, err := event.ParseSessionStatus(evt)
	if id != "" {
		r.ensureSession(id, evt.Directory)
	}
	if err != nil {
		return err
	}
	if !present || id == "" {
		return nil
	}
	r.stores.Sessions.SetStatus(id, *status)
	return nil
}

func (r *Router) routeMessageUpdated(evt *event.Event) error {
	msg, err := event.ParseMessage(evt)
	if err != nil {
		return err
	}

	if msg.SessionID == "" && msg.ParentID != "" {
		msg.SessionID = r.stores.Messages.ResolveSessionID(msg.ParentID)
	}
	if msg.SessionID != "" {
		r.ensureSession(msg.SessionID, evt.Directory)
	}

	r.stores.Messages.Upsert(msg)

	// Message existence gates buffered parts; apply the held run now.
	for _, part := range r.pending.Drain(msg.ID) {
		if part.MessageID != msg.ID {
			slog.Warn("Skipping buffered part with mismatched message",
				"part_id", part.ID,
				"held_for", msg.ID,
				"message_id", part.MessageID)
			continue
		}
		r.stores.Parts.Upsert(part)
	}
	return nil
}

func (r *Router) routePartUpdated(evt *event.Event) error {
	part, err := event.ParsePart(evt)
	if err != nil {
		return err
	}

	if _, ok := r.stores.Messages.GetByID(part.MessageID); !ok {
		r.pending.Hold(part.MessageID, part)
		slog.Debug("Buffered part for unknown message",
			"part_id", part.ID,
			"message_id", part.MessageID)
		return nil
	}

	r.stores.Parts.Upsert(part)
	return nil
}

func (r *Router) routePartRemoved(evt *event.Event) error {
	ref, err := event.ParsePartRef(evt)
	if err != nil {
		return err
	}
	r.stores.Parts.Remove(ref.PartID, ref.MessageID)
	return nil
}

func (r *Router) routePermissionAsked(evt *event.Event) error {
	// The auxiliary broadcast happens whether or not a permission sink
	// is configured, so other observers can react.
	defer r.notify(evt)

	if r.stores.Permissions == nil {
		return nil
	}

	perm, err := event.ParsePermission(evt)
	if err != nil {
		return err
	}
	if perm.SessionID != "" {
		r.ensureSession(perm.SessionID, evt.Directory)
	}
	r.stores.Permissions.Add(perm)
	return nil
}

func (r *Router) routePermissionReplied(evt *event.Event) error {
	if r.stores.Permissions == nil {
		return nil
	}

	reply, err := event.ParseReply(evt)
	if err != nil {
		return err
	}

	approved := reply.Reply != "reject"
	if !r.stores.Permissions.Resolve(reply.RequestID, approved) {
		slog.Debug("Permission reply for unknown request", "request_id", reply.RequestID)
	}
	return nil
}

func (r *Router) routeQuestionAsked(evt *event.Event) error {
	defer r.notify(evt)

	if r.stores.Questions == nil {
		return nil
	}

	q, err := event.ParseQuestion(evt)
	if err != nil {
		return err
	}
	if q.SessionID != "" {
		r.ensureSession(q.SessionID, evt.Directory)
	}
	r.stores.Questions.Add(q)
	return nil
}

func (r *Router) routeQuestionReplied(evt *event.Event) error {
	if r.stores.Questions == nil {
		return nil
	}

	reply, err := event.ParseReply(evt)
	if err != nil {
		return err
	}
	if !r.stores.Questions.Answer(reply.RequestID, reply.Answers) {
		slog.Debug("Question reply for unknown request", "request_id", reply.RequestID)
	}
	return nil
}

func (r *Router) routeQuestionRejected(evt *event.Event) error {
	if r.stores.Questions == nil {
		return nil
	}

	reply, err := event.ParseReply(evt)
	if err != nil {
		return err
	}
	if !r.stores.Questions.Reject(reply.RequestID) {
		slog.Debug("Question rejection for unknown request", "request_id", reply.RequestID)
	}
	return nil
}

// ensureSession creates a minimal idle session record when the id is
// unknown. Sessions are created lazily by the first event referencing
// them.
func (r *Router) ensureSession(id, directory string) {
	if _, ok := r.stores.Sessions.GetByID(id); ok {
		return
	}
	r.stores.Sessions.Upsert(&event.Session{
		ID:        id,
		Directory: directory,
		Status:    event.Status{Kind: event.StatusIdle},
	})
}

func (r *Router) notify(evt *event.Event) {
	if r.stores.Notifier == nil {
		return
	}
	r.stores.Notifier.Publish(evt.Type, evt.Properties)
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/seiri/internal/concurrency"
	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/dedup"
	"github.com/harunnryd/seiri/internal/errors"
	"github.com/harunnryd/seiri/internal/event"
	"github.com/harunnryd/seiri/internal/ordering"
	"github.com/harunnryd/seiri/internal/pending"
)

type RuntimeConfig struct {
	OrderingTimeout      time.Duration
	MaxQueueSize         int
	DedupMaxSize         int
	PendingMaxPerMessage int
}

// Outcome is the per-applied-event result. A failed application is
// recorded here and logged, never thrown: one bad event must not block
// events already released by ordering.
type Outcome struct {
	Event *event.Event
	Err   error
}

// Pipeline is the composition validate -> dedup -> order -> route. It
// owns the dedup window, the ordering buffer and the pending-parts store
// explicitly; callers construct one Pipeline per logical stream so no
// state hides at package scope.
//
// Submissions may come from multiple goroutines: shared structures are
// internally locked and application is serialized per session, which is
// what the per-session ordering invariant requires.
type Pipeline struct {
	validator event.Validator
	dedup     *dedup.Deduplicator
	ordering  *ordering.Buffer
	pending   *pending.Store
	router    *Router
	locks     *concurrency.SimpleSessionLockManager
}

func New(runtimeCfg RuntimeConfig, stores Stores) *Pipeline {
	if runtimeCfg.OrderingTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultOrderingTimeout)
		if err == nil {
			runtimeCfg.OrderingTimeout = d
		}
	}
	if runtimeCfg.MaxQueueSize <= 0 {
		runtimeCfg.MaxQueueSize = config.DefaultOrderingMaxQueueSize
	}
	if runtimeCfg.DedupMaxSize <= 0 {
		runtimeCfg.DedupMaxSize = config.DefaultDedupMaxSize
	}
	if runtimeCfg.PendingMaxPerMessage <= 0 {
		runtimeCfg.PendingMaxPerMessage = config.DefaultPendingMaxPerMessage
	}

	pendingParts := pending.NewStore(runtimeCfg.PendingMaxPerMessage)

	return &Pipeline{
		validator: event.NewStandardValidator(),
		dedup:     dedup.New(runtimeCfg.DedupMaxSize),
		ordering:  ordering.NewBuffer(runtimeCfg.OrderingTimeout, runtimeCfg.MaxQueueSize),
		pending:   pendingParts,
		router:    NewRouter(stores, pendingParts),
		locks:     concurrency.NewSimpleSessionLockManager(),
	}
}

// Apply feeds one raw event through the pipeline and returns an outcome
// for every event actually applied (zero or more: ordering may hold the
// event or release a run of held ones). Malformed and duplicate events
// are dropped before ordering and produce no outcome.
func (p *Pipeline) Apply(ctx context.Context, evt *event.Event) []Outcome {
	if err := p.validator.Validate(evt); err != nil {
		slog.Warn("Rejecting malformed event", "error", err)
		return nil
	}

	p.locks.Lock(evt.SessionID)
	defer p.locks.Unlock(evt.SessionID)

	if p.dedup.Seen(evt.EventID) {
		slog.Debug("Dropping duplicate event",
			"event_id", evt.EventID,
			"type", evt.Type)
		return nil
	}

	ready := p.ordering.Add(evt)
	return p.applyReady(ctx, ready)
}

func (p *Pipeline) applyReady(ctx context.Context, ready []*event.Event) []Outcome {
	if len(ready) == 0 {
		return nil
	}

	outcomes := make([]Outcome, 0, len(ready))
	for _, eligible := range ready {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{Event: eligible, Err: err})
			continue
		}

		err := p.routeOne(eligible)
		if err != nil {
			slog.Warn("Event application failed",
				"event_id", eligible.EventID,
				"type", eligible.Type,
				"category", errors.Category(err),
				"error", err)
		}
		outcomes = append(outcomes, Outcome{Event: eligible, Err: err})
	}
	return outcomes
}

// routeOne dispatches a single event with panic containment so one
// faulty payload cannot take down events already released by ordering.
func (p *Pipeline) routeOne(evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Sprintf("panic applying event: %v", r))
		}
	}()
	return p.router.Route(evt)
}

// SweepStale force-flushes ordering gaps older than the configured
// timeout and applies the released events. Intended to be driven by a
// periodic sweeper so an idle stream cannot park events forever.
//
// Each session is flushed and routed while holding that session's lock:
// a concurrent Apply must not observe the flush-advanced cursor and
// route a later sequence before the swept run lands. The staleness
// re-check inside FlushStaleSession makes the pre-lock listing safe.
func (p *Pipeline) SweepStale(ctx context.Context) []Outcome {
	var outcomes []Outcome
	for _, sessionID := range p.ordering.StaleSessions() {
		p.locks.Lock(sessionID)
		released := p.ordering.FlushStaleSession(sessionID)
		outcomes = append(outcomes, p.applyReady(ctx, released)...)
		p.locks.Unlock(sessionID)
	}
	return outcomes
}

// ClearAll resets dedup, ordering and pending-parts state globally. The
// downstream state containers are untouched.
func (p *Pipeline) ClearAll() {
	p.dedup.Clear()
	p.ordering.Clear()
	p.pending.Clear()
}

// ClearSession resets one session's ordering state and purges its held
// pending parts. Other sessions and the global dedup window are
// untouched.
func (p *Pipeline) ClearSession(sessionID string) {
	p.locks.Lock(sessionID)
	defer p.locks.Unlock(sessionID)

	p.ordering.ClearSession(sessionID)
	p.pending.DropSession(sessionID)
}

func (p *Pipeline) OrderingStats(sessionID string) (ordering.SessionStats, bool) {
	return p.ordering.GetStats(sessionID)
}

func (p *Pipeline) AllOrderingStats() map[string]ordering.SessionStats {
	return p.ordering.GetAllStats()
}

func (p *Pipeline) DedupStats() dedup.Stats {
	return p.dedup.GetStats()
}

func (p *Pipeline) PendingStats() pending.Stats {
	return p.pending.GetStats()
}

// Dedup exposes the dedup window for snapshot save/restore wiring.
func (p *Pipeline) Dedup() *dedup.Deduplicator {
	return p.dedup
}

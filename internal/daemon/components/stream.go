package components

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/seiri/internal/concurrency"
	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/daemon"
	"github.com/harunnryd/seiri/internal/pathutil"
	"github.com/harunnryd/seiri/internal/pipeline"
	"github.com/harunnryd/seiri/internal/stream"
)

// StreamComponent owns the event stream client. It restores the dedup
// snapshot before connecting and writes it back on shutdown so a
// restart does not re-apply events the previous run already saw.
type StreamComponent struct {
	cfg          *config.Config
	pipeline     *pipeline.Pipeline
	client       *stream.Client
	snapshotPath string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewStreamComponent(cfg *config.Config, p *pipeline.Pipeline) *StreamComponent {
	return &StreamComponent{
		cfg:      cfg,
		pipeline: p,
	}
}

func (s *StreamComponent) Name() string {
	return "stream"
}

func (s *StreamComponent) Dependencies() []string {
	return []string{}
}

func (s *StreamComponent) Init(ctx context.Context) error {
	connectTimeout, err := config.DurationOrDefault(s.cfg.Stream.ConnectTimeout, config.DefaultStreamConnectTimeout)
	if err != nil {
		return err
	}
	backoffMin, err := config.DurationOrDefault(s.cfg.Stream.BackoffMin, config.DefaultStreamBackoffMin)
	if err != nil {
		return err
	}
	backoffMax, err := config.DurationOrDefault(s.cfg.Stream.BackoffMax, config.DefaultStreamBackoffMax)
	if err != nil {
		return err
	}

	s.client = stream.NewClient(s.cfg.Stream.Endpoint, s.pipeline, stream.RuntimeConfig{
		ConnectTimeout: connectTimeout,
		BackoffMin:     backoffMin,
		BackoffMax:     backoffMax,
		MaxRetries:     s.cfg.Stream.MaxRetries,
	})

	snapshotPath, err := pathutil.Expand(s.cfg.Dedup.SnapshotPath)
	if err != nil {
		return err
	}
	s.snapshotPath = snapshotPath

	if s.snapshotPath != "" {
		if err := s.pipeline.Dedup().Restore(s.snapshotPath); err != nil {
			slog.Warn("Dedup snapshot restore failed, starting empty", "path", s.snapshotPath, "error", err)
		}
	}

	return nil
}

func (s *StreamComponent) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	concurrency.SafeGo(func() {
		defer close(done)
		if err := s.client.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("Event stream ended", "error", err)
		}
	}, nil)

	return nil
}

func (s *StreamComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.snapshotPath != "" {
		if err := s.pipeline.Dedup().Snapshot(s.snapshotPath); err != nil {
			slog.Warn("Dedup snapshot save failed", "path", s.snapshotPath, "error", err)
		}
	}

	return nil
}

func (s *StreamComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	health := &daemon.ComponentHealth{Name: s.Name(), Healthy: true}
	if s.client == nil {
		health.Healthy = false
		return health, nil
	}
	if err := s.client.Health(ctx); err != nil {
		health.Healthy = false
		health.Error = err
	}
	return health, nil
}

// Client exposes the stream client for stats reporting.
func (s *StreamComponent) Client() *stream.Client {
	return s.client
}

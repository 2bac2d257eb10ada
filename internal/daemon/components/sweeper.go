package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/daemon"
	"github.com/harunnryd/seiri/internal/pipeline"
)

// SweeperComponent periodically force-flushes ordering gaps older than
// the configured timeout. Without it a stream that goes quiet after a
// gap would park the held events until the next delivery.
type SweeperComponent struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	cron     *cron.Cron
}

func NewSweeperComponent(cfg *config.Config, p *pipeline.Pipeline) *SweeperComponent {
	return &SweeperComponent{
		cfg:      cfg,
		pipeline: p,
	}
}

func (s *SweeperComponent) Name() string {
	return "sweeper"
}

func (s *SweeperComponent) Dependencies() []string {
	return []string{}
}

func (s *SweeperComponent) Init(ctx context.Context) error {
	if !s.cfg.Sweeper.Enabled {
		slog.Info("Sweeper disabled by configuration")
		return nil
	}

	interval, err := config.DurationOrDefault(s.cfg.Sweeper.Interval, config.DefaultSweeperInterval)
	if err != nil {
		return fmt.Errorf("parse sweeper interval: %w", err)
	}

	s.cron = cron.New()
	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.sweep)
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	return nil
}

func (s *SweeperComponent) Start(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cron.Start()
	return nil
}

func (s *SweeperComponent) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SweeperComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *SweeperComponent) sweep() {
	outcomes := s.pipeline.SweepStale(context.Background())
	if len(outcomes) == 0 {
		return
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	slog.Info("Swept stale ordering gaps", "released", len(outcomes), "failed", failed)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/daemon"
	"github.com/harunnryd/seiri/internal/daemon/components"
	"github.com/harunnryd/seiri/internal/pipeline"
	"github.com/harunnryd/seiri/internal/store"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the synchronizer daemon",
	Long:  `Connects to the configured event stream, keeps the local session mirror current and serves the introspection API. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		orderingTimeout, err := config.DurationOrDefault(cfg.Ordering.Timeout, config.DefaultOrderingTimeout)
		if err != nil {
			return fmt.Errorf("parse ordering timeout: %w", err)
		}

		stores := pipeline.Stores{
			Sessions:    store.NewSessionStore(),
			Messages:    store.NewMessageStore(),
			Parts:       store.NewPartStore(),
			Permissions: store.NewPermissionStore(),
			Questions:   store.NewQuestionStore(),
			Notifier:    store.NewNotifier(cfg.Notify.BufferSize),
		}

		pipe := pipeline.New(pipeline.RuntimeConfig{
			OrderingTimeout:      orderingTimeout,
			MaxQueueSize:         cfg.Ordering.MaxQueueSize,
			DedupMaxSize:         cfg.Dedup.MaxSize,
			PendingMaxPerMessage: cfg.Pending.MaxPerMessage,
		}, stores)

		daemonMgr := daemon.NewDaemon(cfg)

		streamComp := components.NewStreamComponent(cfg, pipe)
		sweeperComp := components.NewSweeperComponent(cfg, pipe)
		httpComp := components.NewHTTPComponent(cfg, pipe, stores, streamComp)

		daemonMgr.AddComponent(streamComp)
		daemonMgr.AddComponent(sweeperComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Seiri starting up...",
			"endpoint", cfg.Stream.Endpoint,
			"port", cfg.Server.Port,
			"ordering_timeout", orderingTimeout,
			"started_at", time.Now().Format(time.RFC3339))

		err = daemonMgr.Start(context.Background())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Seiri stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Seiri stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

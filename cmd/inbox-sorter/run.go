package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obby/inbox-sorter/config"
	"github.com/obby/inbox-sorter/internal/coordinator"
	"github.com/obby/inbox-sorter/internal/instance"
	"github.com/obby/inbox-sorter/internal/metrics"
	"github.com/obby/inbox-sorter/internal/mover"
	"github.com/obby/inbox-sorter/internal/patterns"
	"github.com/obby/inbox-sorter/internal/server"
	"github.com/obby/inbox-sorter/internal/watcher"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the source directory and sort new files until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, wc, err := ctx.resolved(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDaemon(runCtx, wc, logger)
		},
	}
}

// newCoordinator wires the mover, filters and metrics for wc.
func newCoordinator(wc config.WatchConfig, logger *zap.Logger, rec *metrics.Recorder, onResult func(coordinator.Result)) (*coordinator.Coordinator, error) {
	matcher, err := patterns.NewMatcher(wc.Ignore)
	if err != nil {
		return nil, err
	}
	return coordinator.New(coordinator.Options{
		SourceDir:   wc.SourceDir,
		Categories:  wc.Categories,
		Mover:       mover.New(wc.DestDir, wc.Policy),
		Ignore:      matcher,
		SettleDelay: wc.SettleDelay,
		Workers:     wc.Workers,
		Logger:      logger,
		Metrics:     rec,
		OnResult:    onResult,
		Exclude:     []string{wc.LockFile},
	})
}

// runDaemon watches wc.SourceDir until ctx is done or the watch fails.
// A watch failure is returned so the process exits non-zero.
func runDaemon(ctx context.Context, wc config.WatchConfig, logger *zap.Logger) error {
	lock, err := instance.Acquire(wc.LockFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release lock", zap.Error(err))
		}
	}()
	logger.Debug("holding instance lock", zap.String("lock", lock.Path()))

	rec := metrics.New()
	coord, err := newCoordinator(wc, logger, rec, nil)
	if err != nil {
		return err
	}
	coord.Start()
	defer coord.Stop()

	fw, err := watcher.NewFileWatcher(wc.SourceDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := fw.Stop(); err != nil {
			logger.Warn("stop watcher", zap.Error(err))
		}
	}()
	if err := fw.Start(); err != nil {
		return err
	}

	// Sweep once the watch is live so nothing lands in between unseen.
	// Overlap with watcher events is serialised per path.
	if wc.SweepOnStart {
		if _, err := coord.Sweep(ctx); err != nil {
			logger.Warn("initial sweep incomplete", zap.Error(err))
		}
	}

	if wc.GRPCPort > 0 {
		hs := server.NewHealthServer(logger)
		go func() {
			if err := hs.Serve(wc.GRPCPort); err != nil {
				logger.Error("health service stopped", zap.Error(err))
			}
		}()
		hs.SetServing(true)
		defer hs.Stop()
	}

	if wc.MetricsAddr != "" {
		go func() {
			if err := rec.Serve(ctx, wc.MetricsAddr); err != nil {
				logger.Error("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("watching for new files",
		zap.String("source", wc.SourceDir),
		zap.String("dest", wc.DestDir),
		zap.Duration("settle", wc.SettleDelay),
		zap.String("on_conflict", string(wc.Policy)))

	if err := coord.Run(ctx, fw.Events(), fw.Errors()); err != nil {
		logger.Error("watch failed, shutting down", zap.Error(err))
		return fmt.Errorf("watch %s: %w", wc.SourceDir, err)
	}

	logger.Info("shutting down")
	return nil
}

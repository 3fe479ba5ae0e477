package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the dispatcher and reconciler on fixed intervals. Slow
// passes never stack: a still-running pass makes the next tick skip.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *Dispatcher
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewScheduler creates the batch control-loop scheduler.
func NewScheduler(dispatcher *Dispatcher, reconciler *Reconciler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "batch-scheduler"))

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		dispatcher: dispatcher,
		reconciler: reconciler,
		logger:     log,
	}
}

// Start registers the control loops and begins ticking.
func (s *Scheduler) Start(ctx context.Context, dispatchInterval, reconcileInterval time.Duration) error {
	_, err := s.cron.AddFunc(every(dispatchInterval), func() {
		if err := s.dispatcher.RunOnce(ctx); err != nil {
			s.logger.Error("dispatch pass failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("registering dispatch loop: %w", err)
	}

	_, err = s.cron.AddFunc(every(reconcileInterval), func() {
		if err := s.reconciler.RunOnce(ctx); err != nil {
			s.logger.Error("reconcile pass failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("registering reconcile loop: %w", err)
	}

	s.cron.Start()
	s.logger.Info("batch loops started",
		slog.Duration("dispatch_interval", dispatchInterval),
		slog.Duration("reconcile_interval", reconcileInterval),
	)
	return nil
}

// Stop halts the loops and waits for in-flight passes to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("batch loops stopped")
}

func every(interval time.Duration) string {
	return "@every " + interval.String()
}

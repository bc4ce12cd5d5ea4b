package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically auto-submits attempts whose time ran out
type Sweeper struct {
	attempts  AttemptService
	logger    *slog.Logger
	interval  time.Duration
	scheduler *gocron.Scheduler
}

func NewSweeper(attempts AttemptService, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		attempts: attempts,
		logger:   logger,
		interval: interval,
	}
}

// Start schedules the sweep in the background. Runs never overlap.
func (w *Sweeper) Start() error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	if _, err := s.Every(w.interval).Do(w.Run); err != nil {
		return fmt.Errorf("failed to schedule sweeper: %w", err)
	}
	s.StartAsync()
	w.scheduler = s

	w.logger.Info("Attempt sweeper started", "interval", w.interval.String())
	return nil
}

// Run performs one sweep
func (w *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if _, err := w.attempts.ExpireStale(ctx, time.Now()); err != nil {
		w.logger.Error("Attempt sweep failed", "error", err)
	}
}

func (w *Sweeper) Stop() {
	if w.scheduler == nil {
		return
	}
	w.scheduler.Stop()
	w.scheduler = nil
	w.logger.Info("Attempt sweeper stopped")
}

package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/labreserve/labreserve/internal/booking"
)

// Sweeper periodically completes approved reservations whose end time
// has passed, so the COMPLETED status never depends on a user action.
type Sweeper struct {
	svc      *booking.Service
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewSweeper builds a sweeper running at the given interval. Intervals
// below one second are clamped to one minute.
func NewSweeper(svc *booking.Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval < time.Second {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting completion sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	s.logger.Info("stopping completion sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// First sweep right away so a restart catches up immediately.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("completion sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("completion sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.svc.SweepCompletions(ctx)
	if err != nil {
		s.logger.Error("completion sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("completed elapsed reservations", zap.Int("count", n))
	}
}

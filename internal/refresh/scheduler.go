package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a refresh job on a fixed interval until stopped.
type Scheduler struct {
	interval time.Duration
	job      func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. It does nothing until Start is called.
func NewScheduler(interval time.Duration, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{interval: interval, job: job}
}

// Start launches the background loop. Calling Start twice, or with a non-positive
// interval, is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.interval <= 0 {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	logrus.WithField("interval", s.interval.String()).Info("Refresh scheduler started")
}

// Stop ends the loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logrus.Info("Refresh scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.job(ctx); err != nil {
				switch {
				case errors.Is(err, models.ErrRefreshInProgress):
					logrus.Debug("Scheduled refresh skipped, another refresh is running")
				case ctx.Err() != nil:
					return
				default:
					logrus.WithError(err).Error("Scheduled refresh failed")
				}
			}
		}
	}
}

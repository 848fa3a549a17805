package sync

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/metrics"
)

type store interface {
	DrainPendingWrites(ctx context.Context) (dualwrite.DrainResult, error)
	QueueStats(ctx context.Context) (dualwrite.QueueStats, error)
	ResetFailedWrites(ctx context.Context) (int64, error)
	Backfill(ctx context.Context) (int, error)
}

// Service sweeps the pending mirror writes on an interval.
type Service struct {
	store    store
	metrics  *metrics.SyncMetrics
	logg     *logger.Logger
	interval time.Duration
}

type ServiceParams struct {
	Store      store
	Metrics    *metrics.SyncMetrics
	Logger     *logger.Logger
	SyncConfig config.SyncConfig
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	interval := params.SyncConfig.SweepInterval
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &Service{
		store:    params.Store,
		metrics:  params.Metrics,
		logg:     params.Logger,
		interval: interval,
	}, nil
}

// Run executes the sweep loop until the context is canceled. Sweeps are
// spaced by the configured interval plus a small jitter so several
// workers pointed at the same queue spread their passes out.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		s.Sweep(ctx)

		timer := time.NewTimer(withJitter(s.interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "sync worker context canceled")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}

// Sweep runs one drain pass and publishes its outcome.
func (s *Service) Sweep(ctx context.Context) {
	start := time.Now()
	result, err := s.store.DrainPendingWrites(ctx)
	s.metrics.ObserveDrain(time.Since(start))

	if err != nil {
		s.logg.Error(ctx, "drain pass finished with errors", err)
	}
	if result.Skipped {
		return
	}

	s.metrics.AddSucceeded(result.Succeeded)
	s.metrics.AddRescheduled(result.Rescheduled)
	s.metrics.AddFailed(result.Failed)

	stats, statsErr := s.store.QueueStats(ctx)
	if statsErr == nil {
		s.metrics.SetBacklog(stats.Pending, stats.Failed)
	}

	if result.Claimed > 0 {
		sweepCtx := s.logg.WithFields(ctx, map[string]any{
			"claimed":     result.Claimed,
			"succeeded":   result.Succeeded,
			"rescheduled": result.Rescheduled,
			"failed":      result.Failed,
			"pending":     stats.Pending,
		})
		s.logg.Info(sweepCtx, "drain pass completed")
	}
}

// Backfill requeues terminally failed writes and pushes every local row
// to the mirror. Operators run it to rebuild the spreadsheet.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	requeued, err := s.store.ResetFailedWrites(ctx)
	if err != nil {
		return 0, err
	}
	if requeued > 0 {
		s.logg.Info(s.logg.WithField(ctx, "requeued", requeued), "failed writes returned to the queue")
	}

	pushed, err := s.store.Backfill(ctx)
	if pushed > 0 || err != nil {
		backfillCtx := s.logg.WithField(ctx, "pushed", pushed)
		if err != nil {
			s.logg.Error(backfillCtx, "backfill finished with errors", err)
		} else {
			s.logg.Info(backfillCtx, "backfill completed")
		}
	}
	return pushed, err
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

// Locker is the advisory-lock surface the scheduler needs from redis.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Scheduler fires due payout schedules. Each tick scans for due schedules
// and runs them through the claim-then-execute path, so restarts, overlapping
// ticks and multiple nodes all stay at-most-once per period.
type Scheduler struct {
	payouts  *PayoutService
	locker   Locker
	metrics  *metrics.Metrics
	interval time.Duration
	claimTTL time.Duration
}

// NewScheduler creates the payout scheduler.
func NewScheduler(payouts *PayoutService, locker Locker, m *metrics.Metrics, interval, claimTTL time.Duration) *Scheduler {
	return &Scheduler{
		payouts:  payouts,
		locker:   locker,
		metrics:  m,
		interval: interval,
		claimTTL: claimTTL,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx, "payout scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "payout scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every due schedule once. A failed schedule is logged and skipped;
// its claim is reverted inside the execute path so the period retries on the
// next tick.
func (s *Scheduler) Tick(ctx context.Context) {
	now := time.Now()
	due, err := s.payouts.schedules.ListDueBefore(ctx, now)
	if err != nil {
		logger.Error(ctx, "failed to list due schedules", "error", err)
		return
	}
	s.metrics.SchedulesDue.Set(float64(len(due)))
	if len(due) == 0 {
		return
	}

	for _, schedule := range due {
		s.runOne(ctx, schedule, now)
	}
}

func (s *Scheduler) runOne(ctx context.Context, schedule *domain.PayoutSchedule, now time.Time) {
	// Short redis lock to keep concurrent ticks from even attempting the
	// same schedule; the database compare-and-swap remains the real guard.
	lockKey := fmt.Sprintf("payout:claim:%s", schedule.ScheduleID)
	locked, err := s.locker.SetNX(ctx, lockKey, "1", s.claimTTL)
	if err != nil {
		logger.Warn(ctx, "payout claim lock unavailable, relying on database claim",
			"schedule_id", schedule.ScheduleID, "error", err)
	} else if !locked {
		return
	} else {
		// Release on the way out instead of waiting for the TTL, so the
		// next tick is not throttled behind a finished run.
		defer func() {
			if err := s.locker.Delete(ctx, lockKey); err != nil {
				logger.Warn(ctx, "failed to release payout claim lock",
					"schedule_id", schedule.ScheduleID, "error", err)
			}
		}()
	}

	claimed, err := s.payouts.claim(ctx, schedule, now)
	if err != nil {
		logger.Error(ctx, "failed to claim schedule",
			"schedule_id", schedule.ScheduleID, "error", err)
		return
	}
	if !claimed {
		return
	}

	if _, err := s.payouts.executeClaimed(ctx, schedule, now); err != nil {
		// Already logged and claim-reverted; next tick retries.
		return
	}
}

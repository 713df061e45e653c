package domain

import (
	"context"
	"time"
)

// ScheduleRepository persists payout schedules.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *PayoutSchedule) error
	Update(ctx context.Context, schedule *PayoutSchedule) error
	Get(ctx context.Context, scheduleID string) (*PayoutSchedule, error)
	GetForUpdate(ctx context.Context, scheduleID string) (*PayoutSchedule, error)
	ListBySPV(ctx context.Context, spvID string) ([]*PayoutSchedule, error)
	// ListDueBefore returns active schedules with next_due_date at or
	// before t.
	ListDueBefore(ctx context.Context, t time.Time) ([]*PayoutSchedule, error)

	// ClaimDue advances next_due_date from from to to only if the stored
	// value still equals from and the schedule is active. Returns false
	// when another node won the claim. The compare-and-swap is what makes
	// concurrent ticks fire each period at most once.
	ClaimDue(ctx context.Context, scheduleID string, from, to time.Time) (bool, error)
	// RevertClaim undoes a claim after a failed distribution so the period
	// fires again on a later tick.
	RevertClaim(ctx context.Context, scheduleID string, from, to time.Time) error

	// ClaimOneTime atomically cancels a due one_time schedule; false when
	// another node already claimed it.
	ClaimOneTime(ctx context.Context, scheduleID string, due time.Time) (bool, error)
	// RevertOneTime reactivates a one_time schedule after a failed run.
	RevertOneTime(ctx context.Context, scheduleID string) error
}

// TransactionRepository persists distribution runs.
type TransactionRepository interface {
	// Save writes the transaction and its lines together.
	Save(ctx context.Context, transaction *PayoutTransaction, lines []*PayoutLine) error
	Get(ctx context.Context, transactionID string) (*PayoutTransaction, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]*PayoutTransaction, error)
	ListBySPV(ctx context.Context, spvID string) ([]*PayoutTransaction, error)
}

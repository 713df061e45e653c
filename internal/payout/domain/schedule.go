package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Frequency is how often a schedule pays out.
type Frequency string

const (
	FrequencyMonthly    Frequency = "monthly"
	FrequencyQuarterly  Frequency = "quarterly"
	FrequencySemiAnnual Frequency = "semi_annual"
	FrequencyAnnual     Frequency = "annual"
	FrequencyOneTime    Frequency = "one_time"
)

// IsValid reports whether f is a known frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual, FrequencyOneTime:
		return true
	}
	return false
}

// PeriodMonths is the calendar length of one period; zero for one_time.
func (f Frequency) PeriodMonths() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnual:
		return 6
	case FrequencyAnnual:
		return 12
	default:
		return 0
	}
}

// ScheduleStatus is the lifecycle state of a payout schedule.
type ScheduleStatus int8

const (
	ScheduleStatusActive    ScheduleStatus = 1
	ScheduleStatusPaused    ScheduleStatus = 2
	ScheduleStatusCancelled ScheduleStatus = 3
)

func (s ScheduleStatus) String() string {
	switch s {
	case ScheduleStatusActive:
		return "active"
	case ScheduleStatusPaused:
		return "paused"
	case ScheduleStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PayoutSchedule drives recurring distributions for one SPV. NextDueDate only
// moves forward through the compare-and-swap claim in the repository, so two
// ticker nodes can never fire the same period twice.
type PayoutSchedule struct {
	gorm.Model
	ScheduleID string    `gorm:"column:schedule_id;type:varchar(64);uniqueIndex;not null" json:"schedule_id"`
	SPVID      string    `gorm:"column:spv_id;type:varchar(32);index;not null" json:"spv_id"`
	Frequency  Frequency `gorm:"column:frequency;type:varchar(16);not null" json:"frequency"`

	AmountPerPeriod decimal.Decimal `gorm:"column:amount_per_period;type:decimal(20,2);not null" json:"amount_per_period"`
	NextDueDate     time.Time       `gorm:"column:next_due_date;not null;index" json:"next_due_date"`

	Status ScheduleStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
}

func (PayoutSchedule) TableName() string { return "payout_schedules" }

// NewPayoutSchedule creates an active schedule with its first due date.
func NewPayoutSchedule(scheduleID, spvID string, frequency Frequency, amountPerPeriod decimal.Decimal, firstDue time.Time) (*PayoutSchedule, error) {
	if !frequency.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrequency, frequency)
	}
	if !amountPerPeriod.IsPositive() {
		return nil, fmt.Errorf("amount per period must be positive, got %s", amountPerPeriod)
	}
	return &PayoutSchedule{
		ScheduleID:      scheduleID,
		SPVID:           spvID,
		Frequency:       frequency,
		AmountPerPeriod: amountPerPeriod,
		NextDueDate:     firstDue,
		Status:          ScheduleStatusActive,
	}, nil
}

// IsDue reports whether at least one period is due at now.
func (s *PayoutSchedule) IsDue(now time.Time) bool {
	return s.Status == ScheduleStatusActive && !s.NextDueDate.After(now)
}

// DuePeriods counts how many periods are due at now. Missed periods
// accumulate; the scheduler collapses them into one catch-up run instead of
// firing once per period.
func (s *PayoutSchedule) DuePeriods(now time.Time) int {
	if !s.IsDue(now) {
		return 0
	}
	if s.Frequency == FrequencyOneTime {
		return 1
	}
	periods := 0
	for d := s.NextDueDate; !d.After(now); d = d.AddDate(0, s.Frequency.PeriodMonths(), 0) {
		periods++
	}
	return periods
}

// NextAfterCatchUp returns the first due date strictly after now, covering
// all currently due periods. Meaningless for one_time schedules, which
// cancel instead of advancing.
func (s *PayoutSchedule) NextAfterCatchUp(now time.Time) time.Time {
	d := s.NextDueDate
	for !d.After(now) {
		d = d.AddDate(0, s.Frequency.PeriodMonths(), 0)
	}
	return d
}

// Pause suspends an active schedule.
func (s *PayoutSchedule) Pause() error {
	if s.Status != ScheduleStatusActive {
		return fmt.Errorf("%w: cannot pause %s schedule", ErrInvalidScheduleState, s.Status)
	}
	s.Status = ScheduleStatusPaused
	return nil
}

// Resume reactivates a paused schedule. Periods missed while paused become
// due immediately and collapse into the next catch-up run.
func (s *PayoutSchedule) Resume() error {
	if s.Status != ScheduleStatusPaused {
		return fmt.Errorf("%w: cannot resume %s schedule", ErrInvalidScheduleState, s.Status)
	}
	s.Status = ScheduleStatusActive
	return nil
}

// Cancel terminates the schedule. Terminal.
func (s *PayoutSchedule) Cancel() error {
	if s.Status == ScheduleStatusCancelled {
		return fmt.Errorf("%w: schedule already cancelled", ErrInvalidScheduleState)
	}
	s.Status = ScheduleStatusCancelled
	return nil
}

// Domain errors.
var (
	ErrScheduleNotFound     = errors.New("payout schedule not found")
	ErrScheduleNotDue       = errors.New("payout schedule not due")
	ErrInvalidFrequency     = errors.New("invalid payout frequency")
	ErrInvalidScheduleState = errors.New("invalid schedule state")
	ErrNoActiveHoldings     = errors.New("spv has no active holdings")
	ErrTransactionNotFound  = errors.New("payout transaction not found")
)

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newMonthlySchedule(t *testing.T, firstDue time.Time) *PayoutSchedule {
	t.Helper()
	schedule, err := NewPayoutSchedule("SCH1", "SPV1", FrequencyMonthly, decimal.NewFromInt(1000), firstDue)
	if err != nil {
		t.Fatalf("NewPayoutSchedule() error: %v", err)
	}
	return schedule
}

func TestNewPayoutSchedule(t *testing.T) {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	if _, err := NewPayoutSchedule("S", "SPV1", "weekly", decimal.NewFromInt(100), due); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("unknown frequency = %v, want ErrInvalidFrequency", err)
	}
	if _, err := NewPayoutSchedule("S", "SPV1", FrequencyMonthly, decimal.Zero, due); err == nil {
		t.Error("zero amount should fail")
	}
}

func TestDuePeriods(t *testing.T) {
	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		frequency Frequency
		now       time.Time
		want      int
	}{
		{
			name:      "not yet due",
			frequency: FrequencyMonthly,
			now:       firstDue.Add(-time.Hour),
			want:      0,
		},
		{
			name:      "exactly due",
			frequency: FrequencyMonthly,
			now:       firstDue,
			want:      1,
		},
		{
			name:      "three months missed collapse",
			frequency: FrequencyMonthly,
			now:       time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			want:      3,
		},
		{
			name:      "quarterly catch up",
			frequency: FrequencyQuarterly,
			now:       time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			want:      3,
		},
		{
			name:      "one time is always a single period",
			frequency: FrequencyOneTime,
			now:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := NewPayoutSchedule("S", "SPV1", tt.frequency, decimal.NewFromInt(100), firstDue)
			if err != nil {
				t.Fatalf("NewPayoutSchedule() error: %v", err)
			}
			if got := schedule.DuePeriods(tt.now); got != tt.want {
				t.Errorf("DuePeriods() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextAfterCatchUp(t *testing.T) {
	firstDue := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	schedule := newMonthlySchedule(t, firstDue)

	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	got := schedule.NextAfterCatchUp(now)
	want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextAfterCatchUp() = %s, want %s", got, want)
	}
	if !got.After(now) {
		t.Error("NextAfterCatchUp() must land strictly after now")
	}
}

func TestScheduleTransitions(t *testing.T) {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	schedule := newMonthlySchedule(t, due)

	if err := schedule.Resume(); !errors.Is(err, ErrInvalidScheduleState) {
		t.Errorf("Resume() on active = %v, want ErrInvalidScheduleState", err)
	}
	if err := schedule.Pause(); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	if schedule.IsDue(due) {
		t.Error("paused schedule must not be due")
	}
	if err := schedule.Pause(); !errors.Is(err, ErrInvalidScheduleState) {
		t.Errorf("Pause() on paused = %v, want ErrInvalidScheduleState", err)
	}
	if err := schedule.Resume(); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	if err := schedule.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if err := schedule.Cancel(); !errors.Is(err, ErrInvalidScheduleState) {
		t.Errorf("Cancel() on cancelled = %v, want ErrInvalidScheduleState", err)
	}
	if err := schedule.Resume(); !errors.Is(err, ErrInvalidScheduleState) {
		t.Errorf("Resume() on cancelled = %v, want ErrInvalidScheduleState", err)
	}
}

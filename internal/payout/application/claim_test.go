package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
)

// fakeScheduleRepository implements the compare-and-swap contract in memory
// so claim semantics can be exercised without a database.
type fakeScheduleRepository struct {
	mu        sync.Mutex
	schedules map[string]*domain.PayoutSchedule
}

func newFakeScheduleRepository() *fakeScheduleRepository {
	return &fakeScheduleRepository{schedules: make(map[string]*domain.PayoutSchedule)}
}

func (r *fakeScheduleRepository) Save(_ context.Context, s *domain.PayoutSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	r.schedules[s.ScheduleID] = &clone
	return nil
}

func (r *fakeScheduleRepository) Update(_ context.Context, s *domain.PayoutSchedule) error {
	return r.Save(context.Background(), s)
}

func (r *fakeScheduleRepository) Get(_ context.Context, id string) (*domain.PayoutSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *fakeScheduleRepository) GetForUpdate(ctx context.Context, id string) (*domain.PayoutSchedule, error) {
	return r.Get(ctx, id)
}

func (r *fakeScheduleRepository) ListBySPV(_ context.Context, _ string) ([]*domain.PayoutSchedule, error) {
	return nil, nil
}

func (r *fakeScheduleRepository) ListDueBefore(_ context.Context, t time.Time) ([]*domain.PayoutSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.PayoutSchedule
	for _, s := range r.schedules {
		if s.IsDue(t) {
			clone := *s
			due = append(due, &clone)
		}
	}
	return due, nil
}

func (r *fakeScheduleRepository) ClaimDue(_ context.Context, id string, from, to time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok || s.Status != domain.ScheduleStatusActive || !s.NextDueDate.Equal(from) {
		return false, nil
	}
	s.NextDueDate = to
	return true, nil
}

func (r *fakeScheduleRepository) RevertClaim(_ context.Context, id string, from, to time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schedules[id]; ok && s.NextDueDate.Equal(from) {
		s.NextDueDate = to
	}
	return nil
}

func (r *fakeScheduleRepository) ClaimOneTime(_ context.Context, id string, due time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok || s.Status != domain.ScheduleStatusActive || !s.NextDueDate.Equal(due) {
		return false, nil
	}
	s.Status = domain.ScheduleStatusCancelled
	return true, nil
}

func (r *fakeScheduleRepository) RevertOneTime(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.schedules[id]; ok {
		s.Status = domain.ScheduleStatusActive
	}
	return nil
}

func TestClaimFiresAtMostOncePerPeriod(t *testing.T) {
	repo := newFakeScheduleRepository()
	svc := &PayoutService{schedules: repo}

	firstDue := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := domain.NewPayoutSchedule("SCH1", "SPV1", domain.FrequencyMonthly, decimal.NewFromInt(1000), firstDue)
	if err != nil {
		t.Fatalf("NewPayoutSchedule() error: %v", err)
	}
	if err := repo.Save(context.Background(), schedule); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	// Two ticks race for the same due period; the compare-and-swap lets
	// exactly one through.
	const attempts = 8
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loaded, err := repo.Get(context.Background(), "SCH1")
			if err != nil {
				t.Error(err)
				return
			}
			claimed, err := svc.claim(context.Background(), loaded, now)
			if err != nil {
				t.Error(err)
				return
			}
			wins <- claimed
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for claimed := range wins {
		if claimed {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("claim won %d times, want exactly 1", won)
	}

	after, err := repo.Get(context.Background(), "SCH1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !after.NextDueDate.Equal(want) {
		t.Errorf("NextDueDate = %s, want %s", after.NextDueDate, want)
	}
}

func TestRevertClaimRestoresDuePeriod(t *testing.T) {
	repo := newFakeScheduleRepository()
	svc := &PayoutService{schedules: repo}

	firstDue := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := domain.NewPayoutSchedule("SCH1", "SPV1", domain.FrequencyMonthly, decimal.NewFromInt(1000), firstDue)
	if err != nil {
		t.Fatalf("NewPayoutSchedule() error: %v", err)
	}
	if err := repo.Save(context.Background(), schedule); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	claimed, err := svc.claim(context.Background(), schedule, now)
	if err != nil || !claimed {
		t.Fatalf("claim() = %v, %v; want true, nil", claimed, err)
	}

	// A failed distribution puts the period back so a later tick retries.
	svc.revertClaim(context.Background(), schedule, now)

	after, err := repo.Get(context.Background(), "SCH1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !after.NextDueDate.Equal(firstDue) {
		t.Errorf("NextDueDate = %s after revert, want %s", after.NextDueDate, firstDue)
	}
	if !after.IsDue(now) {
		t.Error("schedule must be due again after revert")
	}
}

func TestOneTimeClaimSelfCancels(t *testing.T) {
	repo := newFakeScheduleRepository()
	svc := &PayoutService{schedules: repo}

	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := domain.NewPayoutSchedule("SCH1", "SPV1", domain.FrequencyOneTime, decimal.NewFromInt(5000), due)
	if err != nil {
		t.Fatalf("NewPayoutSchedule() error: %v", err)
	}
	if err := repo.Save(context.Background(), schedule); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	now := due.Add(24 * time.Hour)
	claimed, err := svc.claim(context.Background(), schedule, now)
	if err != nil || !claimed {
		t.Fatalf("claim() = %v, %v; want true, nil", claimed, err)
	}

	second, err := repo.Get(context.Background(), "SCH1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if second.Status != domain.ScheduleStatusCancelled {
		t.Errorf("status = %s after one_time claim, want cancelled", second.Status)
	}
	if again, _ := svc.claim(context.Background(), second, now); again {
		t.Error("second claim on fired one_time schedule must fail")
	}
}

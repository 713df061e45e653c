package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

type fakeRunRepository struct {
	runs map[string]*domain.ScenarioRun
}

func newFakeRunRepository() *fakeRunRepository {
	return &fakeRunRepository{runs: make(map[string]*domain.ScenarioRun)}
}

func (r *fakeRunRepository) Save(_ context.Context, run *domain.ScenarioRun) error {
	r.runs[run.RunID] = run
	return nil
}

func (r *fakeRunRepository) Update(_ context.Context, run *domain.ScenarioRun) error {
	r.runs[run.RunID] = run
	return nil
}

func (r *fakeRunRepository) Get(_ context.Context, runID string) (*domain.ScenarioRun, error) {
	run, ok := r.runs[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func (r *fakeRunRepository) ListBySPV(_ context.Context, spvID string) ([]*domain.ScenarioRun, error) {
	var out []*domain.ScenarioRun
	for _, run := range r.runs {
		if run.SPVID == spvID {
			out = append(out, run)
		}
	}
	return out, nil
}

type fakeSnapshotProvider struct {
	snapshot *domain.Snapshot
	err      error
}

func (p *fakeSnapshotProvider) Snapshot(_ context.Context, _ string) (*domain.Snapshot, error) {
	return p.snapshot, p.err
}

func testSnapshot() *domain.Snapshot {
	taken := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		SPVID:             "SPV1",
		TotalIssuedShares: 100,
		FundedAt:          taken,
		TakenAt:           taken,
		Positions: []domain.SnapshotPosition{
			{InvestmentID: "INV1", InvestorID: "alice", Amount: decimal.NewFromInt(10000), Shares: 100},
		},
	}
}

func TestRunTemplate(t *testing.T) {
	repo := newFakeRunRepository()
	svc := NewScenarioService(repo, &fakeSnapshotProvider{snapshot: testSnapshot()}, metrics.New("test"))

	run, err := svc.RunTemplate(context.Background(), "SPV1", "moderate")
	if err != nil {
		t.Fatalf("RunTemplate() error: %v", err)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Errorf("status = %s, want completed", run.Status)
	}
	if run.Template != "moderate" {
		t.Errorf("template = %s, want moderate", run.Template)
	}
	if run.HoldingPeriodDays != 1095 {
		t.Errorf("holding period = %d, want 1095", run.HoldingPeriodDays)
	}

	stored, result, err := svc.GetRun(context.Background(), run.RunID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if stored.RunID != run.RunID {
		t.Errorf("GetRun returned %s, want %s", stored.RunID, run.RunID)
	}
	if result == nil {
		t.Fatal("completed run must carry a decoded result")
	}
	// Moderate is a plain 1.5x over three years.
	if !result.ExitValue.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("ExitValue = %s, want 15000", result.ExitValue)
	}
}

func TestRunTemplateUnknown(t *testing.T) {
	repo := newFakeRunRepository()
	svc := NewScenarioService(repo, &fakeSnapshotProvider{snapshot: testSnapshot()}, metrics.New("test"))

	if _, err := svc.RunTemplate(context.Background(), "SPV1", "yolo"); !errors.Is(err, domain.ErrUnknownTemplate) {
		t.Errorf("RunTemplate(yolo) = %v, want ErrUnknownTemplate", err)
	}
	if len(repo.runs) != 0 {
		t.Error("unknown template must not create a run")
	}
}

func TestRunCustomRejectsBadParams(t *testing.T) {
	repo := newFakeRunRepository()
	svc := NewScenarioService(repo, &fakeSnapshotProvider{snapshot: testSnapshot()}, metrics.New("test"))

	bad := domain.Params{HoldingPeriodDays: -1, ExitMultiplier: decimal.NewFromInt(1), MarketCondition: domain.ConditionNeutral}
	if _, err := svc.RunCustom(context.Background(), "SPV1", bad); !errors.Is(err, domain.ErrInvalidParams) {
		t.Errorf("RunCustom(bad) = %v, want ErrInvalidParams", err)
	}
	if len(repo.runs) != 0 {
		t.Error("invalid params must not create a run")
	}
}

func TestRunMarksFailureOnEmptySnapshot(t *testing.T) {
	repo := newFakeRunRepository()
	empty := &domain.Snapshot{SPVID: "SPV1", TakenAt: time.Now()}
	svc := NewScenarioService(repo, &fakeSnapshotProvider{snapshot: empty}, metrics.New("test"))

	_, err := svc.RunCustom(context.Background(), "SPV1", domain.Params{
		HoldingPeriodDays: 365,
		ExitMultiplier:    decimal.NewFromInt(2),
		MarketCondition:   domain.ConditionNeutral,
	})
	if !errors.Is(err, domain.ErrEmptySnapshot) {
		t.Fatalf("RunCustom() = %v, want ErrEmptySnapshot", err)
	}

	// The failed run is kept with its reason for later inspection.
	if len(repo.runs) != 1 {
		t.Fatalf("stored %d runs, want 1", len(repo.runs))
	}
	for _, run := range repo.runs {
		if run.Status != domain.RunStatusFailed {
			t.Errorf("status = %s, want failed", run.Status)
		}
		if run.FailReason == "" {
			t.Error("failed run must record its reason")
		}
	}
}

func TestTemplatesAreValid(t *testing.T) {
	for name, params := range Templates {
		if err := params.Validate(); err != nil {
			t.Errorf("template %s does not validate: %v", name, err)
		}
	}
}

package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

// Templates are the named parameter sets exposed to callers.
var Templates = map[string]domain.Params{
	"conservative": {
		HoldingPeriodDays: 730,
		ExitMultiplier:    decimal.NewFromFloat(1.2),
		MarketCondition:   domain.ConditionBear,
	},
	"moderate": {
		HoldingPeriodDays: 1095,
		ExitMultiplier:    decimal.NewFromFloat(1.5),
		MarketCondition:   domain.ConditionNeutral,
	},
	"aggressive": {
		HoldingPeriodDays: 1095,
		ExitMultiplier:    decimal.NewFromFloat(2.0),
		MarketCondition:   domain.ConditionBull,
	},
}

// SnapshotProvider reads a point-in-time view of an SPV's positions without
// taking any lock.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, spvID string) (*domain.Snapshot, error)
}

// ScenarioService creates and executes simulation runs.
type ScenarioService struct {
	runs      domain.RunRepository
	snapshots SnapshotProvider
	metrics   *metrics.Metrics
}

// NewScenarioService wires the simulator.
func NewScenarioService(runs domain.RunRepository, snapshots SnapshotProvider, m *metrics.Metrics) *ScenarioService {
	return &ScenarioService{runs: runs, snapshots: snapshots, metrics: m}
}

// RunTemplate executes a named template against an SPV.
func (s *ScenarioService) RunTemplate(ctx context.Context, spvID, template string) (*domain.ScenarioRun, error) {
	params, ok := Templates[template]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTemplate, template)
	}
	return s.run(ctx, spvID, template, params)
}

// RunCustom executes caller-supplied parameters against an SPV.
func (s *ScenarioService) RunCustom(ctx context.Context, spvID string, params domain.Params) (*domain.ScenarioRun, error) {
	return s.run(ctx, spvID, "", params)
}

func (s *ScenarioService) run(ctx context.Context, spvID, template string, params domain.Params) (*domain.ScenarioRun, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	run := &domain.ScenarioRun{
		RunID:             fmt.Sprintf("RUN-%s", uuid.New().String()),
		SPVID:             spvID,
		Template:          template,
		HoldingPeriodDays: params.HoldingPeriodDays,
		ExitMultiplier:    params.ExitMultiplier,
		MarketCondition:   params.MarketCondition,
		Status:            domain.RunStatusPending,
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save scenario run: %w", err)
	}

	run.Status = domain.RunStatusRunning
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	result, err := s.simulate(ctx, spvID, params)
	if err != nil {
		run.Fail(err.Error())
		if updateErr := s.runs.Update(ctx, run); updateErr != nil {
			logger.Error(ctx, "failed to mark scenario run failed",
				"run_id", run.RunID, "error", updateErr)
		}
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		run.Fail(err.Error())
		if updateErr := s.runs.Update(ctx, run); updateErr != nil {
			logger.Error(ctx, "failed to mark scenario run failed",
				"run_id", run.RunID, "error", updateErr)
		}
		return nil, fmt.Errorf("failed to encode scenario result: %w", err)
	}

	run.Complete(string(payload))
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	s.metrics.ScenarioRunsTotal.Inc()
	logger.Info(ctx, "scenario run completed",
		"run_id", run.RunID,
		"spv_id", spvID,
		"template", template,
		"exit_value", result.ExitValue,
	)
	return run, nil
}

func (s *ScenarioService) simulate(ctx context.Context, spvID string, params domain.Params) (*domain.Result, error) {
	snapshot, err := s.snapshots.Snapshot(ctx, spvID)
	if err != nil {
		return nil, err
	}
	return domain.Simulate(snapshot, params)
}

// GetRun returns a run with its decoded result when completed.
func (s *ScenarioService) GetRun(ctx context.Context, runID string) (*domain.ScenarioRun, *domain.Result, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.Status != domain.RunStatusCompleted || run.ResultJSON == "" {
		return run, nil, nil
	}
	var result domain.Result
	if err := json.Unmarshal([]byte(run.ResultJSON), &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode scenario result: %w", err)
	}
	return run, &result, nil
}

// ListRunsBySPV returns an SPV's run history.
func (s *ScenarioService) ListRunsBySPV(ctx context.Context, spvID string) ([]*domain.ScenarioRun, error) {
	return s.runs.ListBySPV(ctx, spvID)
}

package domain

import "context"

// RunRepository persists scenario runs.
type RunRepository interface {
	Save(ctx context.Context, run *ScenarioRun) error
	Update(ctx context.Context, run *ScenarioRun) error
	Get(ctx context.Context, runID string) (*ScenarioRun, error)
	ListBySPV(ctx context.Context, spvID string) ([]*ScenarioRun, error)
}

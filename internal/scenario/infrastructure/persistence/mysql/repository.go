package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

type runRepository struct {
	db *gorm.DB
}

// NewRunRepository creates the MySQL scenario run repository.
func NewRunRepository(gormDB *gorm.DB) domain.RunRepository {
	return &runRepository{db: gormDB}
}

func (r *runRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *runRepository) Save(ctx context.Context, run *domain.ScenarioRun) error {
	return r.handle(ctx).Create(run).Error
}

func (r *runRepository) Update(ctx context.Context, run *domain.ScenarioRun) error {
	return r.handle(ctx).Save(run).Error
}

func (r *runRepository) Get(ctx context.Context, runID string) (*domain.ScenarioRun, error) {
	var run domain.ScenarioRun
	err := r.handle(ctx).Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) ListBySPV(ctx context.Context, spvID string) ([]*domain.ScenarioRun, error) {
	var runs []*domain.ScenarioRun
	err := r.handle(ctx).
		Where("spv_id = ?", spvID).
		Order("id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

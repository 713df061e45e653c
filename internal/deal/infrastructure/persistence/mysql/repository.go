package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/fractionalfunding/internal/deal/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

// dealRepository is the GORM implementation of domain.DealRepository.
type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a deal repository.
func NewDealRepository(database *gorm.DB) domain.DealRepository {
	return &dealRepository{db: database}
}

func (r *dealRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *dealRepository) Save(ctx context.Context, deal *domain.Deal) error {
	return r.handle(ctx).Create(deal).Error
}

func (r *dealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.handle(ctx).Save(deal).Error
}

func (r *dealRepository) Get(ctx context.Context, dealID string) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.handle(ctx).Where("deal_id = ?", dealID).First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) GetForUpdate(ctx context.Context, dealID string) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.handle(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("deal_id = ?", dealID).
		First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) List(ctx context.Context, offset, limit int) ([]*domain.Deal, int64, error) {
	var deals []*domain.Deal
	var total int64

	if err := r.handle(ctx).Model(&domain.Deal{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.handle(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&deals).Error
	if err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

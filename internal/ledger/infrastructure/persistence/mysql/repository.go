package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

type spvRepository struct {
	db *gorm.DB
}

// NewSPVRepository creates the MySQL SPV repository.
func NewSPVRepository(gormDB *gorm.DB) domain.SPVRepository {
	return &spvRepository{db: gormDB}
}

func (r *spvRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *spvRepository) Save(ctx context.Context, spv *domain.SPV) error {
	return r.handle(ctx).Create(spv).Error
}

func (r *spvRepository) Update(ctx context.Context, spv *domain.SPV) error {
	return r.handle(ctx).Save(spv).Error
}

func (r *spvRepository) Get(ctx context.Context, spvID string) (*domain.SPV, error) {
	var spv domain.SPV
	err := r.handle(ctx).Where("spv_id = ?", spvID).First(&spv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSPVNotFound, spvID)
	}
	if err != nil {
		return nil, err
	}
	return &spv, nil
}

func (r *spvRepository) GetForUpdate(ctx context.Context, spvID string) (*domain.SPV, error) {
	var spv domain.SPV
	err := r.handle(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("spv_id = ?", spvID).
		First(&spv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSPVNotFound, spvID)
	}
	if err != nil {
		return nil, err
	}
	return &spv, nil
}

func (r *spvRepository) GetByDeal(ctx context.Context, dealID string) (*domain.SPV, error) {
	var spv domain.SPV
	err := r.handle(ctx).Where("deal_id = ?", dealID).First(&spv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: deal %s", domain.ErrSPVNotFound, dealID)
	}
	if err != nil {
		return nil, err
	}
	return &spv, nil
}

func (r *spvRepository) List(ctx context.Context, offset, limit int) ([]*domain.SPV, int64, error) {
	var (
		spvs  []*domain.SPV
		total int64
	)
	if err := r.handle(ctx).Model(&domain.SPV{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.handle(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&spvs).Error
	if err != nil {
		return nil, 0, err
	}
	return spvs, total, nil
}

type investmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository creates the MySQL investment repository.
func NewInvestmentRepository(gormDB *gorm.DB) domain.InvestmentRepository {
	return &investmentRepository{db: gormDB}
}

func (r *investmentRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *investmentRepository) Save(ctx context.Context, investment *domain.Investment) error {
	err := r.handle(ctx).Create(investment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The request_id unique index is the idempotency backstop; losers
		// of a same-key race land here.
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRequest, investment.RequestID)
	}
	return err
}

func (r *investmentRepository) Update(ctx context.Context, investment *domain.Investment) error {
	return r.handle(ctx).Save(investment).Error
}

func (r *investmentRepository) Get(ctx context.Context, investmentID string) (*domain.Investment, error) {
	var investment domain.Investment
	err := r.handle(ctx).Where("investment_id = ?", investmentID).First(&investment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvestmentNotFound, investmentID)
	}
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *investmentRepository) GetForUpdate(ctx context.Context, investmentID string) (*domain.Investment, error) {
	var investment domain.Investment
	err := r.handle(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("investment_id = ?", investmentID).
		First(&investment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvestmentNotFound, investmentID)
	}
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *investmentRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Investment, error) {
	var investment domain.Investment
	err := r.handle(ctx).Where("request_id = ?", requestID).First(&investment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (r *investmentRepository) ListActiveBySPV(ctx context.Context, spvID string) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	err := r.handle(ctx).
		Where("spv_id = ? AND status = ?", spvID, domain.InvestmentStatusActive).
		Order("id ASC").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) ListByInvestor(ctx context.Context, investorID string) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	err := r.handle(ctx).
		Where("investor_id = ?", investorID).
		Order("id DESC").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) ListActiveByCopiedFrom(ctx context.Context, copiedFrom string) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	err := r.handle(ctx).
		Where("copied_from = ? AND status = ?", copiedFrom, domain.InvestmentStatusActive).
		Order("id ASC").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}

func (r *investmentRepository) SumActiveAmountByInvestor(ctx context.Context, investorID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.handle(ctx).
		Model(&domain.Investment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("investor_id = ? AND status = ?", investorID, domain.InvestmentStatusActive).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates the MySQL schedule repository.
func NewScheduleRepository(gormDB *gorm.DB) domain.ScheduleRepository {
	return &scheduleRepository{db: gormDB}
}

func (r *scheduleRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *scheduleRepository) Save(ctx context.Context, schedule *domain.PayoutSchedule) error {
	return r.handle(ctx).Create(schedule).Error
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *domain.PayoutSchedule) error {
	return r.handle(ctx).Save(schedule).Error
}

func (r *scheduleRepository) Get(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	var schedule domain.PayoutSchedule
	err := r.handle(ctx).Where("schedule_id = ?", scheduleID).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, scheduleID)
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetForUpdate(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	var schedule domain.PayoutSchedule
	err := r.handle(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("schedule_id = ?", scheduleID).
		First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScheduleNotFound, scheduleID)
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) ListBySPV(ctx context.Context, spvID string) ([]*domain.PayoutSchedule, error) {
	var schedules []*domain.PayoutSchedule
	err := r.handle(ctx).
		Where("spv_id = ?", spvID).
		Order("id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) ListDueBefore(ctx context.Context, t time.Time) ([]*domain.PayoutSchedule, error) {
	var schedules []*domain.PayoutSchedule
	err := r.handle(ctx).
		Where("status = ? AND next_due_date <= ?", domain.ScheduleStatusActive, t).
		Order("next_due_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// ClaimDue is the at-most-once guard: the UPDATE only lands when
// next_due_date still holds the value this node read.
func (r *scheduleRepository) ClaimDue(ctx context.Context, scheduleID string, from, to time.Time) (bool, error) {
	result := r.handle(ctx).
		Model(&domain.PayoutSchedule{}).
		Where("schedule_id = ? AND next_due_date = ? AND status = ?",
			scheduleID, from, domain.ScheduleStatusActive).
		Update("next_due_date", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *scheduleRepository) RevertClaim(ctx context.Context, scheduleID string, from, to time.Time) error {
	result := r.handle(ctx).
		Model(&domain.PayoutSchedule{}).
		Where("schedule_id = ? AND next_due_date = ? AND status = ?",
			scheduleID, from, domain.ScheduleStatusActive).
		Update("next_due_date", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("claim revert lost for schedule %s", scheduleID)
	}
	return nil
}

// ClaimOneTime cancels a due one_time schedule in the same compare-and-swap
// style; the status flip doubles as the claim.
func (r *scheduleRepository) ClaimOneTime(ctx context.Context, scheduleID string, due time.Time) (bool, error) {
	result := r.handle(ctx).
		Model(&domain.PayoutSchedule{}).
		Where("schedule_id = ? AND next_due_date = ? AND status = ?",
			scheduleID, due, domain.ScheduleStatusActive).
		Update("status", domain.ScheduleStatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *scheduleRepository) RevertOneTime(ctx context.Context, scheduleID string) error {
	result := r.handle(ctx).
		Model(&domain.PayoutSchedule{}).
		Where("schedule_id = ? AND status = ?", scheduleID, domain.ScheduleStatusCancelled).
		Update("status", domain.ScheduleStatusActive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("one_time claim revert lost for schedule %s", scheduleID)
	}
	return nil
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates the MySQL payout transaction repository.
func NewTransactionRepository(gormDB *gorm.DB) domain.TransactionRepository {
	return &transactionRepository{db: gormDB}
}

func (r *transactionRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *transactionRepository) Save(ctx context.Context, transaction *domain.PayoutTransaction, lines []*domain.PayoutLine) error {
	if err := r.handle(ctx).Create(transaction).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return r.handle(ctx).Create(lines).Error
}

func (r *transactionRepository) Get(ctx context.Context, transactionID string) (*domain.PayoutTransaction, error) {
	var transaction domain.PayoutTransaction
	err := r.handle(ctx).Where("transaction_id = ?", transactionID).First(&transaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, err
	}

	var lines []*domain.PayoutLine
	if err := r.handle(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	transaction.Lines = lines
	return &transaction, nil
}

func (r *transactionRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.PayoutTransaction, error) {
	var transactions []*domain.PayoutTransaction
	err := r.handle(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("id DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *transactionRepository) ListBySPV(ctx context.Context, spvID string) ([]*domain.PayoutTransaction, error) {
	var transactions []*domain.PayoutTransaction
	err := r.handle(ctx).
		Where("spv_id = ?", spvID).
		Order("id DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

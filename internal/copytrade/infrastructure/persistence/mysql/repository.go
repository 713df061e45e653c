package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/fractionalfunding/internal/copytrade/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

type followingRepository struct {
	db *gorm.DB
}

// NewFollowingRepository creates the MySQL following repository.
func NewFollowingRepository(gormDB *gorm.DB) domain.FollowingRepository {
	return &followingRepository{db: gormDB}
}

func (r *followingRepository) handle(ctx context.Context) *gorm.DB {
	return db.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *followingRepository) Save(ctx context.Context, following *domain.CopyFollowing) error {
	return r.handle(ctx).Create(following).Error
}

func (r *followingRepository) Update(ctx context.Context, following *domain.CopyFollowing) error {
	return r.handle(ctx).Save(following).Error
}

func (r *followingRepository) Get(ctx context.Context, followingID string) (*domain.CopyFollowing, error) {
	var following domain.CopyFollowing
	err := r.handle(ctx).Where("following_id = ?", followingID).First(&following).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFollowingNotFound, followingID)
	}
	if err != nil {
		return nil, err
	}
	return &following, nil
}

func (r *followingRepository) GetForUpdate(ctx context.Context, followingID string) (*domain.CopyFollowing, error) {
	var following domain.CopyFollowing
	err := r.handle(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("following_id = ?", followingID).
		First(&following).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFollowingNotFound, followingID)
	}
	if err != nil {
		return nil, err
	}
	return &following, nil
}

func (r *followingRepository) ListActiveByTrader(ctx context.Context, traderID string) ([]*domain.CopyFollowing, error) {
	var followings []*domain.CopyFollowing
	err := r.handle(ctx).
		Where("trader_id = ? AND status = ?", traderID, domain.FollowingStatusActive).
		Order("id ASC").
		Find(&followings).Error
	if err != nil {
		return nil, err
	}
	return followings, nil
}

func (r *followingRepository) ListByFollower(ctx context.Context, followerID string) ([]*domain.CopyFollowing, error) {
	var followings []*domain.CopyFollowing
	err := r.handle(ctx).
		Where("follower_id = ?", followerID).
		Order("id DESC").
		Find(&followings).Error
	if err != nil {
		return nil, err
	}
	return followings, nil
}

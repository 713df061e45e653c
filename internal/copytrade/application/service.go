package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/copytrade/domain"
	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/cache"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

const summaryCacheTTL = 30 * time.Second

// PositionReader lists a follower's ledger positions.
type PositionReader interface {
	ListInvestorPositions(ctx context.Context, investorID string) ([]*ledgerdomain.Investment, error)
}

// StartFollowingRequest opens a copy relationship.
type StartFollowingRequest struct {
	FollowerID   string
	TraderID     string
	CopyType     domain.CopyType
	TargetDealID string
	CopyAmount   decimal.Decimal
	StopLossPct  decimal.Decimal
	AutoReinvest bool
}

// FollowerSummary is a follower's copies with aggregate profit/loss.
type FollowerSummary struct {
	FollowerID  string                     `json:"follower_id"`
	Followings  []*domain.CopyFollowing    `json:"followings"`
	Copies      []*ledgerdomain.Investment `json:"copies"`
	AggregatePL decimal.Decimal            `json:"aggregate_pl"`
	CopiedCount int64                      `json:"copied_count"`
}

// CopyTradeService owns the follow/unfollow lifecycle and follower views.
type CopyTradeService struct {
	followings domain.FollowingRepository
	positions  PositionReader
	db         db.Transactor
	redis      *cache.Redis
}

// NewCopyTradeService wires the copy-trade service.
func NewCopyTradeService(followings domain.FollowingRepository, positions PositionReader, database db.Transactor, redis *cache.Redis) *CopyTradeService {
	return &CopyTradeService{
		followings: followings,
		positions:  positions,
		db:         database,
		redis:      redis,
	}
}

// StartFollowing opens a new copy relationship.
func (s *CopyTradeService) StartFollowing(ctx context.Context, req StartFollowingRequest) (*domain.CopyFollowing, error) {
	following, err := domain.NewCopyFollowing(
		fmt.Sprintf("CF-%s", uuid.New().String()),
		req.FollowerID,
		req.TraderID,
		req.CopyType,
		req.TargetDealID,
		req.CopyAmount,
		req.StopLossPct,
		req.AutoReinvest,
	)
	if err != nil {
		return nil, err
	}
	if err := s.followings.Save(ctx, following); err != nil {
		return nil, fmt.Errorf("failed to save following: %w", err)
	}

	s.invalidateSummary(ctx, req.FollowerID)
	logger.Info(ctx, "copy following started",
		"following_id", following.FollowingID,
		"follower_id", req.FollowerID,
		"trader_id", req.TraderID,
		"copy_type", req.CopyType,
	)
	return following, nil
}

// StopFollowing soft-terminates a following; historical copies survive.
func (s *CopyTradeService) StopFollowing(ctx context.Context, followingID string) (*domain.CopyFollowing, error) {
	var following *domain.CopyFollowing
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		following, err = s.followings.GetForUpdate(txCtx, followingID)
		if err != nil {
			return err
		}
		if err := following.Stop(); err != nil {
			return err
		}
		return s.followings.Update(txCtx, following)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, following.FollowerID)
	logger.Info(ctx, "copy following stopped", "following_id", followingID)
	return following, nil
}

// GetFollowing returns one following.
func (s *CopyTradeService) GetFollowing(ctx context.Context, followingID string) (*domain.CopyFollowing, error) {
	return s.followings.Get(ctx, followingID)
}

// FollowerSummary returns a follower's followings, copied positions and
// aggregate profit/loss. The view is cached briefly; replication lag is
// already eventual so a short stale window is acceptable.
func (s *CopyTradeService) FollowerSummary(ctx context.Context, followerID string) (*FollowerSummary, error) {
	cacheKey := summaryCacheKey(followerID)
	var cached FollowerSummary
	if err := s.redis.GetJSON(ctx, cacheKey, &cached); err == nil && cached.FollowerID != "" {
		return &cached, nil
	}

	followings, err := s.followings.ListByFollower(ctx, followerID)
	if err != nil {
		return nil, err
	}
	positions, err := s.positions.ListInvestorPositions(ctx, followerID)
	if err != nil {
		return nil, err
	}

	summary := &FollowerSummary{
		FollowerID: followerID,
		Followings: followings,
		Copies:     make([]*ledgerdomain.Investment, 0, len(positions)),
	}
	aggregate := decimal.Zero
	for _, following := range followings {
		aggregate = aggregate.Add(following.CumulativePL)
		summary.CopiedCount += following.CopiedCount
	}
	for _, position := range positions {
		if position.Source == ledgerdomain.SourceCopy {
			summary.Copies = append(summary.Copies, position)
		}
	}
	summary.AggregatePL = aggregate

	if err := s.redis.SetJSON(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
		logger.Warn(ctx, "failed to cache follower summary", "follower_id", followerID, "error", err)
	}
	return summary, nil
}

func (s *CopyTradeService) invalidateSummary(ctx context.Context, followerID string) {
	if err := s.redis.Delete(ctx, summaryCacheKey(followerID)); err != nil {
		logger.Warn(ctx, "failed to invalidate follower summary cache",
			"follower_id", followerID, "error", err)
	}
}

func summaryCacheKey(followerID string) string {
	return fmt.Sprintf("copytrade:summary:%s", followerID)
}

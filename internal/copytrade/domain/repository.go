package domain

import "context"

// FollowingRepository persists copy followings.
type FollowingRepository interface {
	Save(ctx context.Context, following *CopyFollowing) error
	Update(ctx context.Context, following *CopyFollowing) error
	Get(ctx context.Context, followingID string) (*CopyFollowing, error)
	GetForUpdate(ctx context.Context, followingID string) (*CopyFollowing, error)
	// ListActiveByTrader returns the followings currently replicating a
	// trader.
	ListActiveByTrader(ctx context.Context, traderID string) ([]*CopyFollowing, error)
	ListByFollower(ctx context.Context, followerID string) ([]*CopyFollowing, error)
}

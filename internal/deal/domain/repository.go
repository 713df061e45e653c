package domain

import "context"

// DealRepository persists deals.
type DealRepository interface {
	Save(ctx context.Context, deal *Deal) error
	Update(ctx context.Context, deal *Deal) error
	Get(ctx context.Context, dealID string) (*Deal, error)
	// GetForUpdate locks the deal row for the duration of the surrounding
	// transaction; capital intake is checked-then-written.
	GetForUpdate(ctx context.Context, dealID string) (*Deal, error)
	List(ctx context.Context, offset, limit int) ([]*Deal, int64, error)
}

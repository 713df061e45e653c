package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// SPVRepository persists SPVs.
type SPVRepository interface {
	Save(ctx context.Context, spv *SPV) error
	Update(ctx context.Context, spv *SPV) error
	Get(ctx context.Context, spvID string) (*SPV, error)
	// GetForUpdate locks the SPV row; every escrow or share mutation is
	// checked-then-written and must run under this lock.
	GetForUpdate(ctx context.Context, spvID string) (*SPV, error)
	GetByDeal(ctx context.Context, dealID string) (*SPV, error)
	List(ctx context.Context, offset, limit int) ([]*SPV, int64, error)
}

// InvestmentRepository persists investments.
type InvestmentRepository interface {
	Save(ctx context.Context, investment *Investment) error
	Update(ctx context.Context, investment *Investment) error
	Get(ctx context.Context, investmentID string) (*Investment, error)
	GetForUpdate(ctx context.Context, investmentID string) (*Investment, error)
	// GetByRequestID resolves the idempotency key; nil when unseen.
	GetByRequestID(ctx context.Context, requestID string) (*Investment, error)
	ListActiveBySPV(ctx context.Context, spvID string) ([]*Investment, error)
	ListByInvestor(ctx context.Context, investorID string) ([]*Investment, error)
	// ListActiveByCopiedFrom returns active copy positions mirrored from
	// one trader investment.
	ListActiveByCopiedFrom(ctx context.Context, copiedFrom string) ([]*Investment, error)
	// SumActiveAmountByInvestor returns the investor's total committed
	// capital across active positions.
	SumActiveAmountByInvestor(ctx context.Context, investorID string) (decimal.Decimal, error)
}

// CodeSequence allocates the next human-readable SPV code number for a year.
// Backed by a database row under a lock so concurrent SPV creation never
// duplicates a code.
type CodeSequence interface {
	Next(ctx context.Context, year int) (int64, error)
}

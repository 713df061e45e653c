package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Holding is one active position as the distribution engine sees it.
type Holding struct {
	InvestmentID string
	InvestorID   string
	Shares       int64
	AutoReinvest bool
}

// Snapshot is the locked view of an SPV taken at the start of a distribution
// transaction.
type Snapshot struct {
	SPVID         string
	DealID        string
	EscrowBalance decimal.Decimal
	SharePrice    decimal.Decimal
	Holdings      []Holding
}

// LedgerGateway is the distribution engine's view of the share ledger. All
// three methods must be called inside the same database transaction; the
// snapshot call takes the SPV row lock that the later mutations rely on.
type LedgerGateway interface {
	SnapshotForDistribution(ctx context.Context, spvID string) (*Snapshot, error)
	// Reinvest converts an investor's payout slice back into whole shares
	// and returns the reinvested amount plus the sub-share cash remainder.
	Reinvest(ctx context.Context, spvID, investorID string, amount decimal.Decimal, reference string) (reinvested, remainder decimal.Decimal, err error)
	DebitEscrow(ctx context.Context, spvID string, amount decimal.Decimal) error
}

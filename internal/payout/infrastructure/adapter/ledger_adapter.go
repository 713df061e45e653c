// Package adapter bridges the distribution engine to the share ledger
// without the payout domain importing ledger types.
package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	ledgerapp "github.com/wyfcoding/fractionalfunding/internal/ledger/application"
	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
)

// LedgerAdapter implements the payout LedgerGateway on top of the ledger
// service.
type LedgerAdapter struct {
	ledger *ledgerapp.LedgerService
}

// NewLedgerAdapter creates the adapter.
func NewLedgerAdapter(ledger *ledgerapp.LedgerService) *LedgerAdapter {
	return &LedgerAdapter{ledger: ledger}
}

// SnapshotForDistribution locks the SPV row and maps its active positions
// into the distribution engine's view.
func (a *LedgerAdapter) SnapshotForDistribution(ctx context.Context, spvID string) (*domain.Snapshot, error) {
	spv, investments, err := a.ledger.SnapshotForDistribution(ctx, spvID)
	if err != nil {
		return nil, err
	}

	holdings := make([]domain.Holding, 0, len(investments))
	for _, inv := range investments {
		holdings = append(holdings, domain.Holding{
			InvestmentID: inv.InvestmentID,
			InvestorID:   inv.InvestorID,
			Shares:       inv.Shares,
			AutoReinvest: inv.AutoReinvest,
		})
	}

	return &domain.Snapshot{
		SPVID:         spv.SPVID,
		DealID:        spv.DealID,
		EscrowBalance: spv.EscrowBalance,
		SharePrice:    spv.SharePrice,
		Holdings:      holdings,
	}, nil
}

// Reinvest converts a payout slice back into shares on the same SPV.
func (a *LedgerAdapter) Reinvest(ctx context.Context, spvID, investorID string, amount decimal.Decimal, reference string) (decimal.Decimal, decimal.Decimal, error) {
	return a.ledger.ReinvestPayout(ctx, spvID, investorID, amount, reference)
}

// DebitEscrow removes distributed cash from the SPV escrow.
func (a *LedgerAdapter) DebitEscrow(ctx context.Context, spvID string, amount decimal.Decimal) error {
	return a.ledger.DebitEscrow(ctx, spvID, amount)
}

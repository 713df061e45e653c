// Package adapter reads ledger state into scenario snapshots.
package adapter

import (
	"context"
	"time"

	ledgerapp "github.com/wyfcoding/fractionalfunding/internal/ledger/application"
	"github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
)

// LedgerAdapter implements the scenario SnapshotProvider. Reads only; the
// simulator never takes the SPV lock.
type LedgerAdapter struct {
	ledger *ledgerapp.LedgerService
}

// NewLedgerAdapter creates the adapter.
func NewLedgerAdapter(ledger *ledgerapp.LedgerService) *LedgerAdapter {
	return &LedgerAdapter{ledger: ledger}
}

// Snapshot captures the SPV's active positions at call time.
func (a *LedgerAdapter) Snapshot(ctx context.Context, spvID string) (*domain.Snapshot, error) {
	spv, err := a.ledger.GetSPV(ctx, spvID)
	if err != nil {
		return nil, err
	}
	investments, err := a.ledger.ListActiveHoldings(ctx, spvID)
	if err != nil {
		return nil, err
	}

	positions := make([]domain.SnapshotPosition, 0, len(investments))
	for _, inv := range investments {
		positions = append(positions, domain.SnapshotPosition{
			InvestmentID: inv.InvestmentID,
			InvestorID:   inv.InvestorID,
			Amount:       inv.Amount,
			Shares:       inv.Shares,
		})
	}

	return &domain.Snapshot{
		SPVID:             spv.SPVID,
		TotalIssuedShares: spv.TotalIssuedShares,
		FundedAt:          spv.FundedAt,
		TakenAt:           time.Now(),
		Positions:         positions,
	}, nil
}

package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/copytrade/domain"
	ledgerapp "github.com/wyfcoding/fractionalfunding/internal/ledger/application"
	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
	"github.com/wyfcoding/fractionalfunding/pkg/utils"
)

// LedgerGateway is the replicator's view of the share ledger. Satisfied by
// the ledger application service.
type LedgerGateway interface {
	GetSPV(ctx context.Context, spvID string) (*ledgerdomain.SPV, error)
	CommittedCapital(ctx context.Context, investorID string) (decimal.Decimal, error)
	IssueShares(ctx context.Context, req ledgerapp.IssueSharesRequest) (*ledgerdomain.Investment, error)
	ListCopiesOf(ctx context.Context, traderInvestmentID string) ([]*ledgerdomain.Investment, error)
	ExitInvestment(ctx context.Context, investmentID string, exitValue decimal.Decimal) (*ledgerdomain.Investment, error)
}

// Replicator mirrors trader ledger actions into follower portfolios. One
// follower's failure never blocks the rest of the batch.
type Replicator struct {
	followings domain.FollowingRepository
	ledger     LedgerGateway
	metrics    *metrics.Metrics
}

// NewReplicator wires the copy-trade replicator.
func NewReplicator(followings domain.FollowingRepository, ledger LedgerGateway, m *metrics.Metrics) *Replicator {
	return &Replicator{followings: followings, ledger: ledger, metrics: m}
}

// copyRequestID derives the idempotency key for one (trader action,
// follower) pair; the same trader event can never replay into a follower
// twice.
func copyRequestID(traderActionID, followerID string) string {
	return utils.SHA256Hash(traderActionID + ":" + followerID)
}

// HandleTraderIssuance mirrors one trader issuance into every matching
// active following, scaled by copy amount over the trader's committed
// capital and floored to whole shares.
func (r *Replicator) HandleTraderIssuance(ctx context.Context, event ledgerdomain.InvestmentIssuedEvent) error {
	// Only direct issuances replicate. Copy- and reinvest-sourced rows
	// would cascade through follower chains otherwise.
	if event.Source != string(ledgerdomain.SourceDirect) {
		return nil
	}

	followers, err := r.followings.ListActiveByTrader(ctx, event.InvestorID)
	if err != nil {
		return fmt.Errorf("failed to list followers: %w", err)
	}
	if len(followers) == 0 {
		return nil
	}

	traderAmount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		return fmt.Errorf("bad amount in issuance event %s: %w", event.EventID, err)
	}
	committed, err := r.ledger.CommittedCapital(ctx, event.InvestorID)
	if err != nil {
		return fmt.Errorf("failed to read trader capital: %w", err)
	}
	if !committed.IsPositive() {
		return nil
	}
	spv, err := r.ledger.GetSPV(ctx, event.SPVID)
	if err != nil {
		return err
	}

	for _, following := range followers {
		if !following.Matches(event.Channel, event.DealID) {
			continue
		}
		if err := r.replicateIssuance(ctx, following, spv, event, traderAmount, committed); err != nil {
			r.metrics.CopyReplicationFailures.Inc()
			logger.Error(ctx, "copy replication failed",
				"following_id", following.FollowingID,
				"follower_id", following.FollowerID,
				"trader_investment_id", event.InvestmentID,
				"error", err,
			)
		}
	}
	return nil
}

func (r *Replicator) replicateIssuance(ctx context.Context, following *domain.CopyFollowing, spv *ledgerdomain.SPV, event ledgerdomain.InvestmentIssuedEvent, traderAmount, committed decimal.Decimal) error {
	scaled := traderAmount.Mul(following.CopyAmount).Div(committed)
	shares, _ := spv.WholeShareFloor(scaled)
	if shares == 0 {
		logger.Info(ctx, "copy slice below one share, skipped",
			"following_id", following.FollowingID,
			"scaled_amount", scaled,
			"share_price", spv.SharePrice,
		)
		return nil
	}
	amount := spv.SharePrice.Mul(decimal.NewFromInt(shares))

	_, err := r.ledger.IssueShares(ctx, ledgerapp.IssueSharesRequest{
		RequestID:    copyRequestID(event.InvestmentID, following.FollowerID),
		SPVID:        event.SPVID,
		InvestorID:   following.FollowerID,
		Channel:      event.Channel,
		Amount:       amount,
		AutoReinvest: following.AutoReinvest,
		Source:       ledgerdomain.SourceCopy,
		CopiedFrom:   event.InvestmentID,
	})
	if err != nil {
		return err
	}

	following.RecordCopy()
	if err := r.followings.Update(ctx, following); err != nil {
		return fmt.Errorf("failed to update following: %w", err)
	}
	r.metrics.CopyReplicationsTotal.Inc()
	return nil
}

// HandleTraderExit mirrors a trader exit into the copies of that position,
// realizing each follower's profit or loss at the trader's return ratio. A
// following whose cumulative loss crosses its stop-loss cutoff is paused;
// its existing copies stay active and untouched.
func (r *Replicator) HandleTraderExit(ctx context.Context, event ledgerdomain.InvestmentExitedEvent) error {
	followers, err := r.followings.ListActiveByTrader(ctx, event.InvestorID)
	if err != nil {
		return fmt.Errorf("failed to list followers: %w", err)
	}
	if len(followers) == 0 {
		return nil
	}

	traderAmount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		return fmt.Errorf("bad amount in exit event %s: %w", event.EventID, err)
	}
	traderExit, err := decimal.NewFromString(event.ExitValue)
	if err != nil {
		return fmt.Errorf("bad exit value in exit event %s: %w", event.EventID, err)
	}
	if !traderAmount.IsPositive() {
		return nil
	}
	ratio := traderExit.Div(traderAmount)

	copies, err := r.ledger.ListCopiesOf(ctx, event.InvestmentID)
	if err != nil {
		return fmt.Errorf("failed to list copies: %w", err)
	}
	byFollower := make(map[string][]*ledgerdomain.Investment, len(copies))
	for _, position := range copies {
		byFollower[position.InvestorID] = append(byFollower[position.InvestorID], position)
	}

	for _, following := range followers {
		positions := byFollower[following.FollowerID]
		if len(positions) == 0 {
			continue
		}
		if err := r.replicateExit(ctx, following, positions, ratio); err != nil {
			r.metrics.CopyReplicationFailures.Inc()
			logger.Error(ctx, "copy exit replication failed",
				"following_id", following.FollowingID,
				"follower_id", following.FollowerID,
				"trader_investment_id", event.InvestmentID,
				"error", err,
			)
		}
	}
	return nil
}

func (r *Replicator) replicateExit(ctx context.Context, following *domain.CopyFollowing, positions []*ledgerdomain.Investment, ratio decimal.Decimal) error {
	for _, position := range positions {
		exitValue := position.Amount.Mul(ratio).Round(2)
		if _, err := r.ledger.ExitInvestment(ctx, position.InvestmentID, exitValue); err != nil {
			// An already-exited copy means a redelivered event;
			// its P/L was folded in on the first delivery.
			if errors.Is(err, ledgerdomain.ErrInvestmentExited) {
				continue
			}
			return err
		}
		following.ApplyPL(exitValue.Sub(position.Amount))
	}

	if following.StopLossBreached() {
		if err := following.PauseForStopLoss(); err == nil {
			r.metrics.StopLossBreachesTotal.Inc()
			logger.Warn(ctx, "stop loss breached, copy following paused",
				"following_id", following.FollowingID,
				"cumulative_pl", following.CumulativePL,
				"stop_loss_pct", following.StopLossPct,
			)
		}
	}
	return r.followings.Update(ctx, following)
}

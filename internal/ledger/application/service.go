package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dealdomain "github.com/wyfcoding/fractionalfunding/internal/deal/domain"
	"github.com/wyfcoding/fractionalfunding/internal/kyc"
	"github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

// LedgerService converts investor cash into SPV shares and keeps the
// issued-shares and escrow invariants exact.
type LedgerService struct {
	spvs        domain.SPVRepository
	investments domain.InvestmentRepository
	sequence    domain.CodeSequence
	kyc         kyc.Gateway
	publisher   domain.EventPublisher
	db          db.Transactor
	metrics     *metrics.Metrics
}

// NewLedgerService wires the share ledger.
func NewLedgerService(
	spvs domain.SPVRepository,
	investments domain.InvestmentRepository,
	sequence domain.CodeSequence,
	kycGateway kyc.Gateway,
	publisher domain.EventPublisher,
	database db.Transactor,
	m *metrics.Metrics,
) *LedgerService {
	return &LedgerService{
		spvs:        spvs,
		investments: investments,
		sequence:    sequence,
		kyc:         kycGateway,
		publisher:   publisher,
		db:          database,
		metrics:     m,
	}
}

// CreateForDeal creates the SPV for a freshly funded deal, copying the
// allocation plan snapshot. Called inside the deal's funding transaction.
// Idempotent per deal: a second call returns the existing SPV.
func (s *LedgerService) CreateForDeal(ctx context.Context, deal *dealdomain.Deal) (string, error) {
	if existing, err := s.spvs.GetByDeal(ctx, deal.DealID); err == nil && existing != nil {
		return existing.SPVID, nil
	}

	year := time.Now().Year()
	seq, err := s.sequence.Next(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate spv code: %w", err)
	}
	code := fmt.Sprintf("SPV-%d-%04d", year, seq)

	spv, err := domain.NewSPV(
		fmt.Sprintf("SPV-%s", uuid.New().String()),
		code,
		deal.DealID,
		deal.TargetAmount,
		deal.TotalShares,
		domain.AllocationSnapshot{
			DirectSalePct: deal.Plan.DirectSalePct,
			BundlesPct:    deal.Plan.BundlesPct,
			AutoInvestPct: deal.Plan.AutoInvestPct,
			ReservePct:    deal.Plan.ReservePct,
		},
	)
	if err != nil {
		return "", err
	}
	spv.FundedAt = time.Now()

	if err := s.spvs.Save(ctx, spv); err != nil {
		return "", fmt.Errorf("failed to save spv: %w", err)
	}
	return spv.SPVID, nil
}

// IssueSharesRequest is one issuance command.
type IssueSharesRequest struct {
	// RequestID is the caller-supplied idempotency key.
	RequestID    string
	SPVID        string
	InvestorID   string
	Channel      string
	Amount       decimal.Decimal
	AutoReinvest bool
	Source       domain.InvestmentSource
	// CopiedFrom carries the trader action id for copy-sourced issuances.
	CopiedFrom string
}

// IssueShares converts a cash contribution into whole share units. The KYC
// gate runs first; the issuance itself is atomic under the SPV row lock and
// idempotent on RequestID.
func (s *LedgerService) IssueShares(ctx context.Context, req IssueSharesRequest) (*domain.Investment, error) {
	if req.RequestID == "" {
		return nil, fmt.Errorf("request id is required")
	}

	// Replay fast path, before any side effect.
	if existing, err := s.investments.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	approved, err := s.kyc.IsApproved(ctx, req.InvestorID)
	if err != nil {
		return nil, fmt.Errorf("kyc gate: %w", err)
	}
	if !approved {
		return nil, fmt.Errorf("%w: investor %s", domain.ErrKycNotApproved, req.InvestorID)
	}

	var investment *domain.Investment
	err = s.db.Transaction(ctx, func(txCtx context.Context) error {
		// Re-check under the transaction; two replays can race past the
		// fast path.
		if existing, err := s.investments.GetByRequestID(txCtx, req.RequestID); err != nil {
			return err
		} else if existing != nil {
			investment = existing
			return nil
		}

		spv, err := s.spvs.GetForUpdate(txCtx, req.SPVID)
		if err != nil {
			return err
		}

		shares, err := spv.SharesFor(req.Amount)
		if err != nil {
			return err
		}

		investment = domain.NewInvestment(
			fmt.Sprintf("INV-%s", uuid.New().String()),
			req.RequestID,
			spv.SPVID,
			spv.DealID,
			req.InvestorID,
			req.Amount,
			shares,
		)
		investment.Channel = req.Channel
		investment.AutoReinvest = req.AutoReinvest
		if req.Source != "" {
			investment.Source = req.Source
		}
		investment.CopiedFrom = req.CopiedFrom

		if err := s.investments.Save(txCtx, investment); err != nil {
			return fmt.Errorf("failed to save investment: %w", err)
		}

		spv.TotalIssuedShares += shares
		if err := spv.CreditEscrow(req.Amount); err != nil {
			return err
		}
		if err := s.spvs.Update(txCtx, spv); err != nil {
			return fmt.Errorf("failed to update spv: %w", err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		// Two concurrent calls with the same RequestID can both pass the
		// in-transaction re-check on their own snapshots; the unique index
		// stops the loser, which then returns the winner's row.
		existing, readErr := s.investments.GetByRequestID(ctx, req.RequestID)
		if readErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.InvestmentsIssuedTotal.Inc()
	s.metrics.InvestmentsIssuedAmount.Add(req.Amount.InexactFloat64())

	if pubErr := s.publisher.PublishInvestmentIssued(ctx, domain.InvestmentIssuedEvent{
		EventID:      uuid.New().String(),
		InvestmentID: investment.InvestmentID,
		RequestID:    investment.RequestID,
		SPVID:        investment.SPVID,
		DealID:       investment.DealID,
		InvestorID:   investment.InvestorID,
		Channel:      investment.Channel,
		Amount:       investment.Amount.String(),
		Shares:       investment.Shares,
		Source:       string(investment.Source),
		OccurredAt:   time.Now(),
	}); pubErr != nil {
		// Issuance is already durable; replication catches up on the
		// next trader action.
		logger.Error(ctx, "failed to publish issuance event",
			"investment_id", investment.InvestmentID, "error", pubErr)
	}

	logger.Info(ctx, "shares issued",
		"investment_id", investment.InvestmentID,
		"spv_id", investment.SPVID,
		"investor_id", investment.InvestorID,
		"shares", investment.Shares,
		"amount", investment.Amount,
	)
	return investment, nil
}

// ExitInvestment marks a position exited with its realized proceeds and
// retires its shares. The row itself stays immutable apart from status.
func (s *LedgerService) ExitInvestment(ctx context.Context, investmentID string, exitValue decimal.Decimal) (*domain.Investment, error) {
	var investment *domain.Investment
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		// Resolve the SPV first so locks are always taken in SPV-then-
		// investment order.
		peek, err := s.investments.Get(txCtx, investmentID)
		if err != nil {
			return err
		}

		spv, err := s.spvs.GetForUpdate(txCtx, peek.SPVID)
		if err != nil {
			return err
		}

		investment, err = s.investments.GetForUpdate(txCtx, investmentID)
		if err != nil {
			return err
		}
		if err := investment.Exit(exitValue); err != nil {
			return err
		}
		if err := s.investments.Update(txCtx, investment); err != nil {
			return fmt.Errorf("failed to update investment: %w", err)
		}

		spv.TotalIssuedShares -= investment.Shares
		if err := s.spvs.Update(txCtx, spv); err != nil {
			return fmt.Errorf("failed to update spv: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pubErr := s.publisher.PublishInvestmentExited(ctx, domain.InvestmentExitedEvent{
		EventID:      uuid.New().String(),
		InvestmentID: investment.InvestmentID,
		SPVID:        investment.SPVID,
		DealID:       investment.DealID,
		InvestorID:   investment.InvestorID,
		Amount:       investment.Amount.String(),
		Shares:       investment.Shares,
		ExitValue:    exitValue.String(),
		OccurredAt:   time.Now(),
	}); pubErr != nil {
		logger.Error(ctx, "failed to publish exit event",
			"investment_id", investment.InvestmentID, "error", pubErr)
	}

	logger.Info(ctx, "investment exited",
		"investment_id", investment.InvestmentID,
		"exit_value", exitValue,
	)
	return investment, nil
}

// ReinvestPayout turns a payout slice back into shares on the same SPV.
// It must run inside the caller's distribution transaction with the SPV row
// already locked. Whole shares are issued at the frozen share price; the cash
// remainder below one share is returned for wallet routing. Reinvest
// issuances publish no event so copy replication never cascades on payouts.
func (s *LedgerService) ReinvestPayout(ctx context.Context, spvID, investorID string, amount decimal.Decimal, reference string) (reinvested, remainder decimal.Decimal, err error) {
	spv, err := s.spvs.GetForUpdate(ctx, spvID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	shares, remainder := spv.WholeShareFloor(amount)
	if shares == 0 {
		return decimal.Zero, amount, nil
	}
	reinvested = spv.SharePrice.Mul(decimal.NewFromInt(shares))

	investment := domain.NewInvestment(
		fmt.Sprintf("INV-%s", uuid.New().String()),
		// One reinvestment per investor per distribution run.
		fmt.Sprintf("%s-%s", reference, investorID),
		spv.SPVID,
		spv.DealID,
		investorID,
		reinvested,
		shares,
	)
	investment.Source = domain.SourceReinvest
	investment.AutoReinvest = true

	if err := s.investments.Save(ctx, investment); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to save reinvestment: %w", err)
	}

	spv.TotalIssuedShares += shares
	if err := spv.CreditEscrow(reinvested); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := s.spvs.Update(ctx, spv); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to update spv: %w", err)
	}

	return reinvested, remainder, nil
}

// SnapshotForDistribution locks the SPV row and returns it with its active
// positions. Must run inside the caller's transaction.
func (s *LedgerService) SnapshotForDistribution(ctx context.Context, spvID string) (*domain.SPV, []*domain.Investment, error) {
	spv, err := s.spvs.GetForUpdate(ctx, spvID)
	if err != nil {
		return nil, nil, err
	}
	holdings, err := s.investments.ListActiveBySPV(ctx, spvID)
	if err != nil {
		return nil, nil, err
	}
	return spv, holdings, nil
}

// DebitEscrow removes distributed cash from the SPV escrow under the row
// lock already held by the caller's transaction.
func (s *LedgerService) DebitEscrow(ctx context.Context, spvID string, amount decimal.Decimal) error {
	spv, err := s.spvs.GetForUpdate(ctx, spvID)
	if err != nil {
		return err
	}
	if err := spv.DebitEscrow(amount); err != nil {
		return err
	}
	return s.spvs.Update(ctx, spv)
}

// GetSPV returns one SPV.
func (s *LedgerService) GetSPV(ctx context.Context, spvID string) (*domain.SPV, error) {
	return s.spvs.Get(ctx, spvID)
}

// ListSPVs pages through SPVs.
func (s *LedgerService) ListSPVs(ctx context.Context, offset, limit int) ([]*domain.SPV, int64, error) {
	return s.spvs.List(ctx, offset, limit)
}

// ListActiveHoldings returns the active positions on an SPV.
func (s *LedgerService) ListActiveHoldings(ctx context.Context, spvID string) ([]*domain.Investment, error) {
	return s.investments.ListActiveBySPV(ctx, spvID)
}

// ListInvestorPositions returns all positions of an investor.
func (s *LedgerService) ListInvestorPositions(ctx context.Context, investorID string) ([]*domain.Investment, error) {
	return s.investments.ListByInvestor(ctx, investorID)
}

// CommittedCapital is the investor's total active contributed capital; the
// copy-trade replicator scales follower positions against it.
func (s *LedgerService) CommittedCapital(ctx context.Context, investorID string) (decimal.Decimal, error) {
	return s.investments.SumActiveAmountByInvestor(ctx, investorID)
}

// ListCopiesOf returns active copy positions mirrored from one trader
// investment.
func (s *LedgerService) ListCopiesOf(ctx context.Context, traderInvestmentID string) ([]*domain.Investment, error) {
	return s.investments.ListActiveByCopiedFrom(ctx, traderInvestmentID)
}

// GetInvestment returns one investment.
func (s *LedgerService) GetInvestment(ctx context.Context, investmentID string) (*domain.Investment, error) {
	return s.investments.Get(ctx, investmentID)
}

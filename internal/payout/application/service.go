package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/payout/domain"
	"github.com/wyfcoding/fractionalfunding/internal/wallet"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
)

// PayoutService owns schedules and executes distributions.
type PayoutService struct {
	schedules    domain.ScheduleRepository
	transactions domain.TransactionRepository
	ledger       domain.LedgerGateway
	wallet       wallet.Dispatcher
	db           db.Transactor
	metrics      *metrics.Metrics
}

// NewPayoutService wires the distribution engine.
func NewPayoutService(
	schedules domain.ScheduleRepository,
	transactions domain.TransactionRepository,
	ledger domain.LedgerGateway,
	walletDispatcher wallet.Dispatcher,
	database db.Transactor,
	m *metrics.Metrics,
) *PayoutService {
	return &PayoutService{
		schedules:    schedules,
		transactions: transactions,
		ledger:       ledger,
		wallet:       walletDispatcher,
		db:           database,
		metrics:      m,
	}
}

// CreateSchedule registers a new payout schedule for an SPV.
func (s *PayoutService) CreateSchedule(ctx context.Context, spvID string, frequency domain.Frequency, amountPerPeriod decimal.Decimal, firstDue time.Time) (*domain.PayoutSchedule, error) {
	schedule, err := domain.NewPayoutSchedule(
		fmt.Sprintf("SCH-%s", uuid.New().String()),
		spvID,
		frequency,
		amountPerPeriod,
		firstDue,
	)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}
	logger.Info(ctx, "payout schedule created",
		"schedule_id", schedule.ScheduleID,
		"spv_id", spvID,
		"frequency", frequency,
		"next_due", schedule.NextDueDate,
	)
	return schedule, nil
}

// Pause suspends an active schedule.
func (s *PayoutService) Pause(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	return s.transition(ctx, scheduleID, (*domain.PayoutSchedule).Pause)
}

// Resume reactivates a paused schedule.
func (s *PayoutService) Resume(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	return s.transition(ctx, scheduleID, (*domain.PayoutSchedule).Resume)
}

// Cancel terminates a schedule.
func (s *PayoutService) Cancel(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	return s.transition(ctx, scheduleID, (*domain.PayoutSchedule).Cancel)
}

func (s *PayoutService) transition(ctx context.Context, scheduleID string, apply func(*domain.PayoutSchedule) error) (*domain.PayoutSchedule, error) {
	var schedule *domain.PayoutSchedule
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		schedule, err = s.schedules.GetForUpdate(txCtx, scheduleID)
		if err != nil {
			return err
		}
		if err := apply(schedule); err != nil {
			return err
		}
		return s.schedules.Update(txCtx, schedule)
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// Distribute runs one due schedule now. This is the manual trigger; the
// scheduler tick uses the same claim-then-execute path.
func (s *PayoutService) Distribute(ctx context.Context, scheduleID string) (*domain.PayoutTransaction, error) {
	schedule, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !schedule.IsDue(now) {
		return nil, fmt.Errorf("%w: %s is next due %s", domain.ErrScheduleNotDue,
			scheduleID, schedule.NextDueDate.Format(time.RFC3339))
	}

	claimed, err := s.claim(ctx, schedule, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s was claimed concurrently", domain.ErrScheduleNotDue, scheduleID)
	}
	return s.executeClaimed(ctx, schedule, now)
}

// claim advances the schedule past its due periods via compare-and-swap.
// False means another node already took this period.
func (s *PayoutService) claim(ctx context.Context, schedule *domain.PayoutSchedule, now time.Time) (bool, error) {
	if !schedule.IsDue(now) {
		return false, nil
	}
	if schedule.Frequency == domain.FrequencyOneTime {
		return s.schedules.ClaimOneTime(ctx, schedule.ScheduleID, schedule.NextDueDate)
	}
	return s.schedules.ClaimDue(ctx, schedule.ScheduleID, schedule.NextDueDate, schedule.NextAfterCatchUp(now))
}

// revertClaim puts the claim back after a failed run so the period fires
// again on a later tick instead of being silently skipped.
func (s *PayoutService) revertClaim(ctx context.Context, schedule *domain.PayoutSchedule, now time.Time) {
	var err error
	if schedule.Frequency == domain.FrequencyOneTime {
		err = s.schedules.RevertOneTime(ctx, schedule.ScheduleID)
	} else {
		err = s.schedules.RevertClaim(ctx, schedule.ScheduleID, schedule.NextAfterCatchUp(now), schedule.NextDueDate)
	}
	if err != nil {
		logger.Error(ctx, "failed to revert payout claim",
			"schedule_id", schedule.ScheduleID, "error", err)
	}
}

// executeClaimed runs the distribution for a schedule whose claim this node
// holds. On failure the claim is reverted so nothing is lost.
func (s *PayoutService) executeClaimed(ctx context.Context, schedule *domain.PayoutSchedule, now time.Time) (*domain.PayoutTransaction, error) {
	periods := schedule.DuePeriods(now)
	gross := schedule.AmountPerPeriod.Mul(decimal.NewFromInt(int64(periods)))

	transaction, credits, err := s.distribute(ctx, schedule, periods, gross, now)
	if err != nil {
		s.revertClaim(ctx, schedule, now)
		s.metrics.PayoutFailuresTotal.Inc()
		logger.Error(ctx, "distribution failed",
			"schedule_id", schedule.ScheduleID,
			"spv_id", schedule.SPVID,
			"periods", periods,
			"error", err,
		)
		return nil, err
	}

	// The run is durable; credits ride the message bus from here.
	for _, credit := range credits {
		if err := s.wallet.DispatchCredit(ctx, credit); err != nil {
			logger.Error(ctx, "failed to dispatch wallet credit",
				"credit_id", credit.CreditID,
				"investor_id", credit.InvestorID,
				"error", err,
			)
		}
	}

	s.metrics.PayoutRunsTotal.Inc()
	s.metrics.PayoutDistributedAmount.Add(gross.InexactFloat64())
	logger.Info(ctx, "distribution completed",
		"transaction_id", transaction.TransactionID,
		"schedule_id", schedule.ScheduleID,
		"spv_id", schedule.SPVID,
		"periods", periods,
		"gross", gross,
	)
	return transaction, nil
}

// distribute performs one atomic distribution run: snapshot under the SPV
// row lock, split pro-rata by shares, route each slice to reinvestment or
// cash, debit escrow, persist the immutable transaction. Any error rolls the
// whole run back; wallet credits are only returned on commit.
func (s *PayoutService) distribute(ctx context.Context, schedule *domain.PayoutSchedule, periods int, gross decimal.Decimal, now time.Time) (*domain.PayoutTransaction, []wallet.Credit, error) {
	transactionID := fmt.Sprintf("PAY-%s", uuid.New().String())
	var (
		transaction *domain.PayoutTransaction
		credits     []wallet.Credit
	)

	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		snapshot, err := s.ledger.SnapshotForDistribution(txCtx, schedule.SPVID)
		if err != nil {
			return err
		}
		if len(snapshot.Holdings) == 0 {
			return fmt.Errorf("%w: spv %s", domain.ErrNoActiveHoldings, schedule.SPVID)
		}

		shares := make([]int64, len(snapshot.Holdings))
		for i, h := range snapshot.Holdings {
			shares[i] = h.Shares
		}
		amounts, err := domain.SplitProRata(gross, shares)
		if err != nil {
			return err
		}

		// Escrow must cover the full run before any slice moves.
		if err := s.ledger.DebitEscrow(txCtx, schedule.SPVID, gross); err != nil {
			return err
		}

		lines := make([]*domain.PayoutLine, 0, len(snapshot.Holdings))
		reinvestedTotal := decimal.Zero
		cashTotal := decimal.Zero
		credits = credits[:0]

		for i, holding := range snapshot.Holdings {
			line := &domain.PayoutLine{
				TransactionID: transactionID,
				InvestmentID:  holding.InvestmentID,
				InvestorID:    holding.InvestorID,
				Shares:        holding.Shares,
				Amount:        amounts[i],
			}

			cash := amounts[i]
			if holding.AutoReinvest {
				reinvested, remainder, err := s.ledger.Reinvest(txCtx, schedule.SPVID, holding.InvestorID, amounts[i], transactionID)
				if err != nil {
					return err
				}
				line.ReinvestedAmount = reinvested
				cash = remainder
				switch {
				case remainder.IsZero():
					line.Disposition = domain.DispositionReinvest
				case reinvested.IsZero():
					line.Disposition = domain.DispositionCash
				default:
					line.Disposition = domain.DispositionMixed
				}
				reinvestedTotal = reinvestedTotal.Add(reinvested)
			} else {
				line.Disposition = domain.DispositionCash
			}

			line.CashAmount = cash
			if cash.IsPositive() {
				credits = append(credits, wallet.Credit{
					CreditID:    fmt.Sprintf("CRD-%s", uuid.New().String()),
					InvestorID:  holding.InvestorID,
					SPVID:       schedule.SPVID,
					Reference:   transactionID,
					Amount:      cash.String(),
					Reason:      "payout",
					RequestedAt: now,
				})
				cashTotal = cashTotal.Add(cash)
			}
			lines = append(lines, line)
		}

		transaction = &domain.PayoutTransaction{
			TransactionID:   transactionID,
			ScheduleID:      schedule.ScheduleID,
			SPVID:           schedule.SPVID,
			PeriodsCovered:  periods,
			GrossAmount:     gross,
			ReinvestedTotal: reinvestedTotal,
			CashTotal:       cashTotal,
			ExecutedAt:      now,
		}
		transaction.Lines = lines
		return s.transactions.Save(txCtx, transaction, lines)
	})
	if err != nil {
		return nil, nil, err
	}
	return transaction, credits, nil
}

// GetSchedule returns one schedule.
func (s *PayoutService) GetSchedule(ctx context.Context, scheduleID string) (*domain.PayoutSchedule, error) {
	return s.schedules.Get(ctx, scheduleID)
}

// ListSchedulesBySPV returns an SPV's schedules.
func (s *PayoutService) ListSchedulesBySPV(ctx context.Context, spvID string) ([]*domain.PayoutSchedule, error) {
	return s.schedules.ListBySPV(ctx, spvID)
}

// ListDueWithin returns active schedules due inside the window.
func (s *PayoutService) ListDueWithin(ctx context.Context, window time.Duration) ([]*domain.PayoutSchedule, error) {
	return s.schedules.ListDueBefore(ctx, time.Now().Add(window))
}

// GetTransaction returns one distribution run.
func (s *PayoutService) GetTransaction(ctx context.Context, transactionID string) (*domain.PayoutTransaction, error) {
	return s.transactions.Get(ctx, transactionID)
}

// ListTransactionsBySchedule returns a schedule's run history.
func (s *PayoutService) ListTransactionsBySchedule(ctx context.Context, scheduleID string) ([]*domain.PayoutTransaction, error) {
	return s.transactions.ListBySchedule(ctx, scheduleID)
}

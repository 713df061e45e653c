package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/fractionalfunding/internal/deal/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
)

// SPVFactory creates the SPV when a deal reaches the funded stage. It is
// implemented by the ledger service and wired in at startup to avoid a
// package cycle between deal and ledger.
type SPVFactory interface {
	CreateForDeal(ctx context.Context, deal *domain.Deal) (spvID string, err error)
}

// DealService implements allocation planning and capital intake for deals.
type DealService struct {
	repo domain.DealRepository
	db   db.Transactor
	spvs SPVFactory
}

// NewDealService builds a DealService. The SPV factory may be attached later
// via SetSPVFactory.
func NewDealService(repo domain.DealRepository, database db.Transactor) *DealService {
	return &DealService{repo: repo, db: database}
}

// SetSPVFactory attaches the ledger-side SPV factory.
func (s *DealService) SetSPVFactory(f SPVFactory) {
	s.spvs = f
}

// CreateDeal registers a draft deal.
func (s *DealService) CreateDeal(ctx context.Context, name string, target decimal.Decimal, totalShares int64) (*domain.Deal, error) {
	deal, err := domain.NewDeal(generateDealID(), name, target, totalShares)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to save deal: %w", err)
	}
	logger.Info(ctx, "deal created", "deal_id", deal.DealID, "target", target)
	return deal, nil
}

// SetAllocationPlan validates and stores the channel split of a deal.
func (s *DealService) SetAllocationPlan(ctx context.Context, dealID string, plan domain.AllocationPlan) (*domain.Deal, error) {
	var updated *domain.Deal
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		deal, err := s.repo.GetForUpdate(txCtx, dealID)
		if err != nil {
			return err
		}
		if err := deal.SetAllocationPlan(plan); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "allocation plan set", "deal_id", dealID)
	return updated, nil
}

// RecordChannelRaise books capital landing in one channel, enforcing the
// channel cap under a row lock.
func (s *DealService) RecordChannelRaise(ctx context.Context, dealID string, channel domain.Channel, amount decimal.Decimal) (*domain.Deal, error) {
	var updated *domain.Deal
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		deal, err := s.repo.GetForUpdate(txCtx, dealID)
		if err != nil {
			return err
		}
		if err := deal.RecordChannelRaise(channel, amount); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "channel raise recorded",
		"deal_id", dealID,
		"channel", channel,
		"amount", amount,
		"raised_total", updated.RaisedAmount(),
	)
	return updated, nil
}

// Advance moves the deal to the next lifecycle stage. The funded transition
// also creates the SPV with an allocation-plan snapshot.
func (s *DealService) Advance(ctx context.Context, dealID string, to domain.DealStatus) (*domain.Deal, error) {
	var updated *domain.Deal
	err := s.db.Transaction(ctx, func(txCtx context.Context) error {
		deal, err := s.repo.GetForUpdate(txCtx, dealID)
		if err != nil {
			return err
		}
		if err := deal.Advance(to); err != nil {
			return err
		}
		if to == domain.DealStatusFunded {
			if s.spvs == nil {
				return fmt.Errorf("spv factory not configured")
			}
			spvID, err := s.spvs.CreateForDeal(txCtx, deal)
			if err != nil {
				return fmt.Errorf("failed to create spv: %w", err)
			}
			logger.Info(txCtx, "spv created for funded deal", "deal_id", dealID, "spv_id", spvID)
		}
		if err := s.repo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetDeal returns a deal with its per-channel raised totals.
func (s *DealService) GetDeal(ctx context.Context, dealID string) (*domain.Deal, error) {
	return s.repo.Get(ctx, dealID)
}

// ListDeals pages through deals.
func (s *DealService) ListDeals(ctx context.Context, offset, limit int) ([]*domain.Deal, int64, error) {
	return s.repo.List(ctx, offset, limit)
}

func generateDealID() string {
	return fmt.Sprintf("DL%d", time.Now().UnixNano())
}

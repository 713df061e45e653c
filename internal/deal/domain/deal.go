package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DealStatus is the lifecycle state of a deal.
type DealStatus int8

const (
	DealStatusDraft       DealStatus = 1
	DealStatusOpen        DealStatus = 2
	DealStatusFunding     DealStatus = 3
	DealStatusFunded      DealStatus = 4
	DealStatusLockIn      DealStatus = 5
	DealStatusOperational DealStatus = 6
	DealStatusSecondary   DealStatus = 7
	DealStatusClosed      DealStatus = 8
)

func (s DealStatus) String() string {
	switch s {
	case DealStatusDraft:
		return "DRAFT"
	case DealStatusOpen:
		return "OPEN"
	case DealStatusFunding:
		return "FUNDING"
	case DealStatusFunded:
		return "FUNDED"
	case DealStatusLockIn:
		return "LOCK_IN"
	case DealStatusOperational:
		return "OPERATIONAL"
	case DealStatusSecondary:
		return "SECONDARY"
	case DealStatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// lifecycle is strictly forward: draft → open → funding → funded → lock-in →
// operational → secondary → closed.
var allowedTransitions = map[DealStatus]DealStatus{
	DealStatusDraft:       DealStatusOpen,
	DealStatusOpen:        DealStatusFunding,
	DealStatusFunding:     DealStatusFunded,
	DealStatusFunded:      DealStatusLockIn,
	DealStatusLockIn:      DealStatusOperational,
	DealStatusOperational: DealStatusSecondary,
	DealStatusSecondary:   DealStatusClosed,
}

// Channel is one of the four capital-intake paths of a deal.
type Channel string

const (
	ChannelDirectSale Channel = "direct_sale"
	ChannelBundles    Channel = "bundles"
	ChannelAutoInvest Channel = "auto_invest"
	ChannelReserve    Channel = "reserve"
)

// Channels lists every allocation channel in a fixed order.
var Channels = []Channel{ChannelDirectSale, ChannelBundles, ChannelAutoInvest, ChannelReserve}

// IsValid reports whether c names a known channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelDirectSale, ChannelBundles, ChannelAutoInvest, ChannelReserve:
		return true
	}
	return false
}

// AllocationPlan is the fixed-shape percentage split of a deal's target
// capital across the four channels. Percentages are whole numbers and must
// sum to exactly 100.
type AllocationPlan struct {
	DirectSalePct int64 `gorm:"column:direct_sale_pct;not null;default:0" json:"direct_sale_pct"`
	BundlesPct    int64 `gorm:"column:bundles_pct;not null;default:0" json:"bundles_pct"`
	AutoInvestPct int64 `gorm:"column:auto_invest_pct;not null;default:0" json:"auto_invest_pct"`
	ReservePct    int64 `gorm:"column:reserve_pct;not null;default:0" json:"reserve_pct"`
}

// Validate enforces the sum-to-100 invariant with no tolerance.
func (p AllocationPlan) Validate() error {
	pcts := []int64{p.DirectSalePct, p.BundlesPct, p.AutoInvestPct, p.ReservePct}
	sum := int64(0)
	for _, pct := range pcts {
		if pct < 0 {
			return fmt.Errorf("%w: negative percentage %d", ErrInvalidAllocation, pct)
		}
		sum += pct
	}
	if sum != 100 {
		return fmt.Errorf("%w: percentages sum to %d, want 100", ErrInvalidAllocation, sum)
	}
	return nil
}

// Pct returns the percentage assigned to channel.
func (p AllocationPlan) Pct(channel Channel) int64 {
	switch channel {
	case ChannelDirectSale:
		return p.DirectSalePct
	case ChannelBundles:
		return p.BundlesPct
	case ChannelAutoInvest:
		return p.AutoInvestPct
	case ChannelReserve:
		return p.ReservePct
	default:
		return 0
	}
}

// Cap returns the capital ceiling of channel for the given target.
func (p AllocationPlan) Cap(target decimal.Decimal, channel Channel) decimal.Decimal {
	return target.Mul(decimal.NewFromInt(p.Pct(channel))).Div(decimal.NewFromInt(100))
}

// Deal is the aggregate root of a fundraising round for one asset.
type Deal struct {
	gorm.Model
	DealID       string          `gorm:"column:deal_id;type:varchar(32);uniqueIndex;not null" json:"deal_id"`
	Name         string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	TargetAmount decimal.Decimal `gorm:"column:target_amount;type:decimal(20,2);not null" json:"target_amount"`
	// TotalShares is the planned share count; the SPV share price derives
	// from TargetAmount / TotalShares and is frozen at SPV creation.
	TotalShares int64      `gorm:"column:total_shares;not null" json:"total_shares"`
	Status      DealStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`

	Plan    AllocationPlan `gorm:"embedded" json:"plan"`
	PlanSet bool           `gorm:"column:plan_set;not null;default:false" json:"plan_set"`

	DirectSaleRaised decimal.Decimal `gorm:"column:direct_sale_raised;type:decimal(20,2);not null;default:0" json:"direct_sale_raised"`
	BundlesRaised    decimal.Decimal `gorm:"column:bundles_raised;type:decimal(20,2);not null;default:0" json:"bundles_raised"`
	AutoInvestRaised decimal.Decimal `gorm:"column:auto_invest_raised;type:decimal(20,2);not null;default:0" json:"auto_invest_raised"`
	ReserveRaised    decimal.Decimal `gorm:"column:reserve_raised;type:decimal(20,2);not null;default:0" json:"reserve_raised"`

	FundedAt *time.Time `gorm:"column:funded_at" json:"funded_at"`
}

func (Deal) TableName() string { return "deals" }

// NewDeal creates a draft deal.
func NewDeal(dealID, name string, target decimal.Decimal, totalShares int64) (*Deal, error) {
	if !target.IsPositive() {
		return nil, fmt.Errorf("target amount must be positive, got %s", target)
	}
	if totalShares <= 0 {
		return nil, fmt.Errorf("total shares must be positive, got %d", totalShares)
	}
	return &Deal{
		DealID:           dealID,
		Name:             name,
		TargetAmount:     target,
		TotalShares:      totalShares,
		Status:           DealStatusDraft,
		DirectSaleRaised: decimal.Zero,
		BundlesRaised:    decimal.Zero,
		AutoInvestRaised: decimal.Zero,
		ReserveRaised:    decimal.Zero,
	}, nil
}

// SetAllocationPlan validates and stores the channel split. The plan is
// mutable until the deal leaves the funding stage.
func (d *Deal) SetAllocationPlan(plan AllocationPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if d.Status >= DealStatusFunded {
		return fmt.Errorf("%w: plan is frozen after funding", ErrInvalidTransition)
	}
	d.Plan = plan
	d.PlanSet = true
	return nil
}

// RecordChannelRaise adds amount to the channel's raised total, enforcing the
// per-channel soft cap at write time.
func (d *Deal) RecordChannelRaise(channel Channel, amount decimal.Decimal) error {
	if !channel.IsValid() {
		return fmt.Errorf("unknown channel %q", channel)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("raise amount must be positive, got %s", amount)
	}
	if !d.PlanSet {
		return fmt.Errorf("%w: allocation plan not set", ErrInvalidAllocation)
	}
	if d.Status != DealStatusOpen && d.Status != DealStatusFunding {
		return fmt.Errorf("%w: deal %s is not accepting capital", ErrInvalidTransition, d.Status)
	}

	cap := d.Plan.Cap(d.TargetAmount, channel)
	next := d.ChannelRaised(channel).Add(amount)
	if next.GreaterThan(cap) {
		return fmt.Errorf("%w: channel %s raised %s would exceed cap %s",
			ErrChannelCapacityExceeded, channel, next, cap)
	}

	switch channel {
	case ChannelDirectSale:
		d.DirectSaleRaised = next
	case ChannelBundles:
		d.BundlesRaised = next
	case ChannelAutoInvest:
		d.AutoInvestRaised = next
	case ChannelReserve:
		d.ReserveRaised = next
	}
	return nil
}

// ChannelRaised returns the raised total of one channel.
func (d *Deal) ChannelRaised(channel Channel) decimal.Decimal {
	switch channel {
	case ChannelDirectSale:
		return d.DirectSaleRaised
	case ChannelBundles:
		return d.BundlesRaised
	case ChannelAutoInvest:
		return d.AutoInvestRaised
	case ChannelReserve:
		return d.ReserveRaised
	default:
		return decimal.Zero
	}
}

// RaisedAmount is always the sum of the four channel totals; it is computed,
// never stored independently of its parts.
func (d *Deal) RaisedAmount() decimal.Decimal {
	return d.DirectSaleRaised.
		Add(d.BundlesRaised).
		Add(d.AutoInvestRaised).
		Add(d.ReserveRaised)
}

// Advance moves the deal to the next lifecycle stage. The funding → funded
// transition re-validates the allocation plan.
func (d *Deal) Advance(to DealStatus) error {
	next, ok := allowedTransitions[d.Status]
	if !ok || next != to {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, d.Status, to)
	}
	if to == DealStatusFunded {
		if !d.PlanSet {
			return fmt.Errorf("%w: allocation plan not set", ErrInvalidAllocation)
		}
		if err := d.Plan.Validate(); err != nil {
			return err
		}
		now := time.Now()
		d.FundedAt = &now
	}
	d.Status = to
	return nil
}

// Domain errors.
var (
	ErrInvalidAllocation       = errors.New("invalid allocation plan")
	ErrChannelCapacityExceeded = errors.New("channel capacity exceeded")
	ErrDealNotFound            = errors.New("deal not found")
	ErrInvalidTransition       = errors.New("invalid deal transition")
)

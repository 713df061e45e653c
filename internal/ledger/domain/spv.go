package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SPVStatus is the lifecycle state of an SPV.
type SPVStatus int8

const (
	SPVStatusActive   SPVStatus = 1
	SPVStatusArchived SPVStatus = 2
)

// AllocationSnapshot is the channel split copied from the deal at funding
// time. It is immutable on the SPV.
type AllocationSnapshot struct {
	DirectSalePct int64 `gorm:"column:direct_sale_pct;not null;default:0" json:"direct_sale_pct"`
	BundlesPct    int64 `gorm:"column:bundles_pct;not null;default:0" json:"bundles_pct"`
	AutoInvestPct int64 `gorm:"column:auto_invest_pct;not null;default:0" json:"auto_invest_pct"`
	ReservePct    int64 `gorm:"column:reserve_pct;not null;default:0" json:"reserve_pct"`
}

// SPV is the share-issuing container wrapping one funded deal. Share price is
// frozen at creation so early and late investors are priced identically.
type SPV struct {
	gorm.Model
	SPVID  string `gorm:"column:spv_id;type:varchar(32);uniqueIndex;not null" json:"spv_id"`
	Code   string `gorm:"column:code;type:varchar(32);uniqueIndex;not null" json:"code"`
	DealID string `gorm:"column:deal_id;type:varchar(32);uniqueIndex;not null" json:"deal_id"`

	TargetAmount       decimal.Decimal `gorm:"column:target_amount;type:decimal(20,2);not null" json:"target_amount"`
	TotalPlannedShares int64           `gorm:"column:total_planned_shares;not null" json:"total_planned_shares"`
	SharePrice         decimal.Decimal `gorm:"column:share_price;type:decimal(20,8);not null" json:"share_price"`

	TotalIssuedShares int64           `gorm:"column:total_issued_shares;not null;default:0" json:"total_issued_shares"`
	EscrowBalance     decimal.Decimal `gorm:"column:escrow_balance;type:decimal(20,2);not null;default:0" json:"escrow_balance"`

	Plan   AllocationSnapshot `gorm:"embedded" json:"plan"`
	Status SPVStatus          `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`

	FundedAt time.Time `gorm:"column:funded_at;not null" json:"funded_at"`
}

func (SPV) TableName() string { return "spvs" }

// NewSPV creates an SPV for a funded deal. Share price is derived once from
// target amount and planned share count.
func NewSPV(spvID, code, dealID string, target decimal.Decimal, plannedShares int64, plan AllocationSnapshot) (*SPV, error) {
	if plannedShares <= 0 {
		return nil, fmt.Errorf("planned shares must be positive, got %d", plannedShares)
	}
	if !target.IsPositive() {
		return nil, fmt.Errorf("target amount must be positive, got %s", target)
	}
	return &SPV{
		SPVID:              spvID,
		Code:               code,
		DealID:             dealID,
		TargetAmount:       target,
		TotalPlannedShares: plannedShares,
		SharePrice:         target.Div(decimal.NewFromInt(plannedShares)),
		TotalIssuedShares:  0,
		EscrowBalance:      decimal.Zero,
		Plan:               plan,
		Status:             SPVStatusActive,
	}, nil
}

// SharesFor converts a cash amount into whole share units. Amounts that are
// not an exact whole-share multiple are rejected so the shares-sum invariant
// stays exact; nothing is silently rounded.
func (s *SPV) SharesFor(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("%w: amount %s is not positive", ErrSubShareAmount, amount)
	}
	shares := amount.Div(s.SharePrice)
	if !shares.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s is not a whole-share multiple of price %s",
			ErrSubShareAmount, amount, s.SharePrice)
	}
	if shares.LessThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("%w: amount %s buys less than one share at price %s",
			ErrSubShareAmount, amount, s.SharePrice)
	}
	return shares.IntPart(), nil
}

// WholeShareFloor returns the largest whole-share count purchasable with
// amount plus the cash remainder. Used by reinvestment routing, where the
// remainder is credited as cash instead of being rejected.
func (s *SPV) WholeShareFloor(amount decimal.Decimal) (shares int64, remainder decimal.Decimal) {
	if !amount.IsPositive() {
		return 0, amount
	}
	shares = amount.Div(s.SharePrice).Floor().IntPart()
	remainder = amount.Sub(s.SharePrice.Mul(decimal.NewFromInt(shares)))
	return shares, remainder
}

// CreditEscrow adds cash to the escrow balance.
func (s *SPV) CreditEscrow(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("escrow credit must not be negative, got %s", amount)
	}
	s.EscrowBalance = s.EscrowBalance.Add(amount)
	return nil
}

// DebitEscrow removes cash from the escrow balance; the balance never goes
// negative.
func (s *SPV) DebitEscrow(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("escrow debit must not be negative, got %s", amount)
	}
	if amount.GreaterThan(s.EscrowBalance) {
		return fmt.Errorf("%w: debit %s exceeds escrow balance %s",
			ErrInsufficientEscrow, amount, s.EscrowBalance)
	}
	s.EscrowBalance = s.EscrowBalance.Sub(amount)
	return nil
}

// Domain errors.
var (
	ErrSPVNotFound        = errors.New("spv not found")
	ErrSubShareAmount     = errors.New("amount below or not aligned to one share")
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	ErrKycNotApproved     = errors.New("investor kyc not approved")
	ErrDuplicateRequest   = errors.New("request id already used")
	ErrInvestmentNotFound = errors.New("investment not found")
	ErrInvestmentExited   = errors.New("investment already exited")
)

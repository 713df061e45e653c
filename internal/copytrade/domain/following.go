package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CopyType controls which trader actions a following mirrors.
type CopyType string

const (
	// CopyFullProfile mirrors every direct issuance by the trader.
	CopyFullProfile CopyType = "full_profile"
	// CopyBundle mirrors only issuances landing through the bundles
	// channel.
	CopyBundle CopyType = "bundle"
	// CopySingleDeal mirrors only issuances on one named deal.
	CopySingleDeal CopyType = "single_deal"
)

// IsValid reports whether t is a known copy type.
func (t CopyType) IsValid() bool {
	switch t {
	case CopyFullProfile, CopyBundle, CopySingleDeal:
		return true
	}
	return false
}

// FollowingStatus is the lifecycle state of a copy relationship.
type FollowingStatus int8

const (
	FollowingStatusActive FollowingStatus = 1
	// FollowingStatusStopLossPaused means the cumulative loss crossed the
	// stop-loss cutoff; replication stops, prior copies stay untouched.
	FollowingStatusStopLossPaused FollowingStatus = 2
	FollowingStatusStopped        FollowingStatus = 3
)

func (s FollowingStatus) String() string {
	switch s {
	case FollowingStatusActive:
		return "active"
	case FollowingStatusStopLossPaused:
		return "stop_loss_paused"
	case FollowingStatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const bundlesChannel = "bundles"

// CopyFollowing is one follower-copies-trader relationship. Stopping is a
// soft terminal state; the row and its historical copied investments survive.
type CopyFollowing struct {
	gorm.Model
	FollowingID string `gorm:"column:following_id;type:varchar(64);uniqueIndex;not null" json:"following_id"`
	FollowerID  string `gorm:"column:follower_id;type:varchar(32);index;not null" json:"follower_id"`
	TraderID    string `gorm:"column:trader_id;type:varchar(32);index;not null" json:"trader_id"`

	CopyType CopyType `gorm:"column:copy_type;type:varchar(16);not null" json:"copy_type"`
	// TargetDealID is required for single_deal copies.
	TargetDealID string `gorm:"column:target_deal_id;type:varchar(32)" json:"target_deal_id,omitempty"`

	CopyAmount   decimal.Decimal `gorm:"column:copy_amount;type:decimal(20,2);not null" json:"copy_amount"`
	AutoReinvest bool            `gorm:"column:auto_reinvest;not null;default:false" json:"auto_reinvest"`
	StopLossPct  decimal.Decimal `gorm:"column:stop_loss_pct;type:decimal(5,2);not null" json:"stop_loss_pct"`

	CumulativePL decimal.Decimal `gorm:"column:cumulative_pl;type:decimal(20,2);not null;default:0" json:"cumulative_pl"`
	CopiedCount  int64           `gorm:"column:copied_count;not null;default:0" json:"copied_count"`

	Status    FollowingStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
	StoppedAt *time.Time      `gorm:"column:stopped_at" json:"stopped_at,omitempty"`
}

func (CopyFollowing) TableName() string { return "copy_followings" }

// NewCopyFollowing creates an active following.
func NewCopyFollowing(followingID, followerID, traderID string, copyType CopyType, targetDealID string, copyAmount, stopLossPct decimal.Decimal, autoReinvest bool) (*CopyFollowing, error) {
	if followerID == traderID {
		return nil, ErrSelfCopy
	}
	if !copyType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCopyType, copyType)
	}
	if copyType == CopySingleDeal && targetDealID == "" {
		return nil, fmt.Errorf("%w: single_deal copy requires a target deal", ErrInvalidCopyType)
	}
	if !copyAmount.IsPositive() {
		return nil, fmt.Errorf("copy amount must be positive, got %s", copyAmount)
	}
	if stopLossPct.IsNegative() || stopLossPct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("stop loss percentage must be within [0,100], got %s", stopLossPct)
	}
	return &CopyFollowing{
		FollowingID:  followingID,
		FollowerID:   followerID,
		TraderID:     traderID,
		CopyType:     copyType,
		TargetDealID: targetDealID,
		CopyAmount:   copyAmount,
		AutoReinvest: autoReinvest,
		StopLossPct:  stopLossPct,
		CumulativePL: decimal.Zero,
		Status:       FollowingStatusActive,
	}, nil
}

// Matches reports whether a trader issuance on (channel, dealID) falls under
// this following's copy type.
func (f *CopyFollowing) Matches(channel, dealID string) bool {
	switch f.CopyType {
	case CopyFullProfile:
		return true
	case CopyBundle:
		return channel == bundlesChannel
	case CopySingleDeal:
		return dealID == f.TargetDealID
	}
	return false
}

// RecordCopy bumps the copied-investment counter.
func (f *CopyFollowing) RecordCopy() {
	f.CopiedCount++
}

// ApplyPL folds one realized profit or loss into the running total.
func (f *CopyFollowing) ApplyPL(delta decimal.Decimal) {
	f.CumulativePL = f.CumulativePL.Add(delta)
}

// StopLossBreached reports whether the cumulative loss reached the cutoff:
// a zero cutoff disables the check.
func (f *CopyFollowing) StopLossBreached() bool {
	if f.StopLossPct.IsZero() || !f.CumulativePL.IsNegative() {
		return false
	}
	cutoff := f.CopyAmount.Mul(f.StopLossPct).Div(decimal.NewFromInt(100))
	return f.CumulativePL.Neg().GreaterThanOrEqual(cutoff)
}

// PauseForStopLoss flags the following after a breach. Prior copied
// investments are never touched.
func (f *CopyFollowing) PauseForStopLoss() error {
	if f.Status != FollowingStatusActive {
		return fmt.Errorf("%w: cannot pause %s following", ErrFollowingNotActive, f.Status)
	}
	f.Status = FollowingStatusStopLossPaused
	return nil
}

// Stop terminates the following. Soft: the row and its copies remain.
func (f *CopyFollowing) Stop() error {
	if f.Status == FollowingStatusStopped {
		return fmt.Errorf("%w: following already stopped", ErrFollowingNotActive)
	}
	now := time.Now()
	f.Status = FollowingStatusStopped
	f.StoppedAt = &now
	return nil
}

// IsActive reports whether the following still replicates.
func (f *CopyFollowing) IsActive() bool {
	return f.Status == FollowingStatusActive
}

// Domain errors.
var (
	ErrFollowingNotFound  = errors.New("copy following not found")
	ErrFollowingNotActive = errors.New("copy following not active")
	ErrInvalidCopyType    = errors.New("invalid copy type")
	ErrStopLossBreached   = errors.New("stop loss breached")
	ErrSelfCopy           = errors.New("cannot copy own trades")
)

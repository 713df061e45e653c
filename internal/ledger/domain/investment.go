package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvestmentStatus is the state of one (investor, SPV) position row.
type InvestmentStatus int8

const (
	InvestmentStatusActive InvestmentStatus = 1
	InvestmentStatusExited InvestmentStatus = 2
)

// InvestmentSource records how a position came to exist.
type InvestmentSource string

const (
	SourceDirect   InvestmentSource = "direct"
	SourceReinvest InvestmentSource = "reinvest"
	SourceCopy     InvestmentSource = "copy"
)

// Investment is one immutable issuance of shares to an investor. Amount and
// shares never change after issuance; adjustments happen through new rows,
// keeping the ledger append-only.
type Investment struct {
	gorm.Model
	InvestmentID string `gorm:"column:investment_id;type:varchar(64);uniqueIndex;not null" json:"investment_id"`
	// RequestID is the caller-supplied idempotency key; replays with the
	// same id return the original row without re-issuing.
	RequestID  string `gorm:"column:request_id;type:varchar(64);uniqueIndex;not null" json:"request_id"`
	SPVID      string `gorm:"column:spv_id;type:varchar(32);index;not null" json:"spv_id"`
	DealID     string `gorm:"column:deal_id;type:varchar(32);index" json:"deal_id"`
	InvestorID string `gorm:"column:investor_id;type:varchar(32);index;not null" json:"investor_id"`
	Channel    string `gorm:"column:channel;type:varchar(20)" json:"channel"`

	Amount decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Shares int64           `gorm:"column:shares;not null" json:"shares"`

	AutoReinvest bool             `gorm:"column:auto_reinvest;not null;default:false" json:"auto_reinvest"`
	Source       InvestmentSource `gorm:"column:source;type:varchar(16);not null;default:'direct'" json:"source"`
	// CopiedFrom holds the trader action id when Source is copy.
	CopiedFrom string `gorm:"column:copied_from;type:varchar(64)" json:"copied_from,omitempty"`

	Status    InvestmentStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
	ExitValue decimal.Decimal  `gorm:"column:exit_value;type:decimal(20,2);not null;default:0" json:"exit_value"`
	ExitedAt  *time.Time       `gorm:"column:exited_at" json:"exited_at,omitempty"`
}

func (Investment) TableName() string { return "investments" }

// NewInvestment creates an active investment row.
func NewInvestment(investmentID, requestID, spvID, dealID, investorID string, amount decimal.Decimal, shares int64) *Investment {
	return &Investment{
		InvestmentID: investmentID,
		RequestID:    requestID,
		SPVID:        spvID,
		DealID:       dealID,
		InvestorID:   investorID,
		Amount:       amount,
		Shares:       shares,
		Source:       SourceDirect,
		Status:       InvestmentStatusActive,
		ExitValue:    decimal.Zero,
	}
}

// Exit marks the position exited with its realized proceeds. Shares and
// amount stay untouched for the audit trail.
func (i *Investment) Exit(exitValue decimal.Decimal) error {
	if i.Status != InvestmentStatusActive {
		return fmt.Errorf("%w: %s", ErrInvestmentExited, i.InvestmentID)
	}
	if exitValue.IsNegative() {
		return fmt.Errorf("exit value must not be negative, got %s", exitValue)
	}
	now := time.Now()
	i.Status = InvestmentStatusExited
	i.ExitValue = exitValue
	i.ExitedAt = &now
	return nil
}

// IsActive reports whether the position still holds shares.
func (i *Investment) IsActive() bool {
	return i.Status == InvestmentStatusActive
}

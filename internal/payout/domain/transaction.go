package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineDisposition records where one investor's slice went.
type LineDisposition string

const (
	DispositionCash     LineDisposition = "cash"
	DispositionReinvest LineDisposition = "reinvest"
	// DispositionMixed is a reinvestment that left a sub-share cash
	// remainder.
	DispositionMixed LineDisposition = "mixed"
)

// PayoutTransaction is the immutable record of one distribution run. Once
// written it is never updated; corrections happen through new runs.
type PayoutTransaction struct {
	gorm.Model
	TransactionID string `gorm:"column:transaction_id;type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	ScheduleID    string `gorm:"column:schedule_id;type:varchar(64);index;not null" json:"schedule_id"`
	SPVID         string `gorm:"column:spv_id;type:varchar(32);index;not null" json:"spv_id"`

	// PeriodsCovered is above one when a catch-up run collapsed missed
	// periods.
	PeriodsCovered  int             `gorm:"column:periods_covered;not null;default:1" json:"periods_covered"`
	GrossAmount     decimal.Decimal `gorm:"column:gross_amount;type:decimal(20,2);not null" json:"gross_amount"`
	ReinvestedTotal decimal.Decimal `gorm:"column:reinvested_total;type:decimal(20,2);not null;default:0" json:"reinvested_total"`
	CashTotal       decimal.Decimal `gorm:"column:cash_total;type:decimal(20,2);not null;default:0" json:"cash_total"`

	ExecutedAt time.Time `gorm:"column:executed_at;not null" json:"executed_at"`

	Lines []*PayoutLine `gorm:"-" json:"lines,omitempty"`
}

func (PayoutTransaction) TableName() string { return "payout_transactions" }

// PayoutLine is one investor's slice of a distribution run.
type PayoutLine struct {
	gorm.Model
	TransactionID string `gorm:"column:transaction_id;type:varchar(64);index;not null" json:"transaction_id"`
	InvestmentID  string `gorm:"column:investment_id;type:varchar(64);index;not null" json:"investment_id"`
	InvestorID    string `gorm:"column:investor_id;type:varchar(32);index;not null" json:"investor_id"`

	Shares int64           `gorm:"column:shares;not null" json:"shares"`
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`

	ReinvestedAmount decimal.Decimal `gorm:"column:reinvested_amount;type:decimal(20,2);not null;default:0" json:"reinvested_amount"`
	CashAmount       decimal.Decimal `gorm:"column:cash_amount;type:decimal(20,2);not null;default:0" json:"cash_amount"`
	Disposition      LineDisposition `gorm:"column:disposition;type:varchar(16);not null" json:"disposition"`
}

func (PayoutLine) TableName() string { return "payout_lines" }

package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketCondition shifts the exit multiplier for a simulated run.
type MarketCondition string

const (
	ConditionBear    MarketCondition = "bear"
	ConditionNeutral MarketCondition = "neutral"
	ConditionBull    MarketCondition = "bull"
)

// Factor is the fixed multiplier adjustment per condition.
func (m MarketCondition) Factor() decimal.Decimal {
	switch m {
	case ConditionBear:
		return decimal.NewFromFloat(0.8)
	case ConditionBull:
		return decimal.NewFromFloat(1.2)
	default:
		return decimal.NewFromInt(1)
	}
}

// IsValid reports whether m is a known condition.
func (m MarketCondition) IsValid() bool {
	switch m {
	case ConditionBear, ConditionNeutral, ConditionBull:
		return true
	}
	return false
}

// Params are the inputs of one simulated exit.
type Params struct {
	HoldingPeriodDays int             `json:"holding_period_days"`
	ExitMultiplier    decimal.Decimal `json:"exit_multiplier"`
	MarketCondition   MarketCondition `json:"market_condition"`
}

// Validate rejects unusable parameters before any run is created.
func (p Params) Validate() error {
	if p.HoldingPeriodDays <= 0 {
		return fmt.Errorf("%w: holding period must be positive, got %d", ErrInvalidParams, p.HoldingPeriodDays)
	}
	if !p.ExitMultiplier.IsPositive() {
		return fmt.Errorf("%w: exit multiplier must be positive, got %s", ErrInvalidParams, p.ExitMultiplier)
	}
	if !p.MarketCondition.IsValid() {
		return fmt.Errorf("%w: unknown market condition %q", ErrInvalidParams, p.MarketCondition)
	}
	return nil
}

// RunStatus is the lifecycle state of a scenario run.
type RunStatus int8

const (
	RunStatusPending   RunStatus = 1
	RunStatusRunning   RunStatus = 2
	RunStatusCompleted RunStatus = 3
	RunStatusFailed    RunStatus = 4
)

func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ScenarioRun is one stored simulation. The result is written once at
// completion and never mutated; re-running creates a new row.
type ScenarioRun struct {
	gorm.Model
	RunID string `gorm:"column:run_id;type:varchar(64);uniqueIndex;not null" json:"run_id"`
	SPVID string `gorm:"column:spv_id;type:varchar(32);index;not null" json:"spv_id"`
	// Template is the named parameter set used, empty for custom runs.
	Template string `gorm:"column:template;type:varchar(32)" json:"template,omitempty"`

	HoldingPeriodDays int             `gorm:"column:holding_period_days;not null" json:"holding_period_days"`
	ExitMultiplier    decimal.Decimal `gorm:"column:exit_multiplier;type:decimal(10,4);not null" json:"exit_multiplier"`
	MarketCondition   MarketCondition `gorm:"column:market_condition;type:varchar(16);not null" json:"market_condition"`

	Status     RunStatus `gorm:"column:status;type:tinyint;not null;default:1" json:"status"`
	ResultJSON string    `gorm:"column:result_json;type:text" json:"-"`
	FailReason string    `gorm:"column:fail_reason;type:varchar(255)" json:"fail_reason,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ScenarioRun) TableName() string { return "scenario_runs" }

// Params returns the run's parameter set.
func (r *ScenarioRun) Params() Params {
	return Params{
		HoldingPeriodDays: r.HoldingPeriodDays,
		ExitMultiplier:    r.ExitMultiplier,
		MarketCondition:   r.MarketCondition,
	}
}

// Complete stores the result once.
func (r *ScenarioRun) Complete(resultJSON string) {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.ResultJSON = resultJSON
	r.CompletedAt = &now
}

// Fail marks the run failed with its reason.
func (r *ScenarioRun) Fail(reason string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FailReason = reason
	r.CompletedAt = &now
}

// SnapshotPosition is one active investment inside a snapshot.
type SnapshotPosition struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Shares       int64           `json:"shares"`
}

// Snapshot is a read-only point-in-time view of an SPV's positions. Taking a
// snapshot never locks or mutates ledger state.
type Snapshot struct {
	SPVID             string             `json:"spv_id"`
	TotalIssuedShares int64              `json:"total_issued_shares"`
	FundedAt          time.Time          `json:"funded_at"`
	TakenAt           time.Time          `json:"taken_at"`
	Positions         []SnapshotPosition `json:"positions"`
}

// TimelineEvent is one synthetic event of a simulated holding.
type TimelineEvent struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// InvestorProjection is one investor's projected outcome.
type InvestorProjection struct {
	InvestmentID string          `json:"investment_id"`
	InvestorID   string          `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Shares       int64           `json:"shares"`
	OwnershipPct decimal.Decimal `json:"ownership_pct"`
	Payout       decimal.Decimal `json:"payout"`
	ReturnPct    decimal.Decimal `json:"return_pct"`
	// AnnualizedReturnPct uses float math; it is a projection figure, not
	// a ledger amount.
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
}

// Result is the full output of one simulation.
type Result struct {
	ExitValue   decimal.Decimal      `json:"exit_value"`
	Timeline    []TimelineEvent      `json:"timeline"`
	Projections []InvestorProjection `json:"projections"`
}

// Simulate projects a hypothetical exit over a snapshot. Pure: no state is
// read or written outside its arguments. The SPV's exit value is total active
// capital times the condition-adjusted multiplier, split across investors by
// ownership share.
func Simulate(snapshot *Snapshot, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(snapshot.Positions) == 0 {
		return nil, fmt.Errorf("%w: spv %s", ErrEmptySnapshot, snapshot.SPVID)
	}

	var totalShares int64
	totalInvested := decimal.Zero
	for _, p := range snapshot.Positions {
		totalShares += p.Shares
		totalInvested = totalInvested.Add(p.Amount)
	}
	if totalShares <= 0 {
		return nil, fmt.Errorf("%w: spv %s has no shares outstanding", ErrEmptySnapshot, snapshot.SPVID)
	}

	effectiveMultiplier := params.ExitMultiplier.Mul(params.MarketCondition.Factor())
	exitValue := totalInvested.Mul(effectiveMultiplier).Round(2)
	exitDate := snapshot.TakenAt.AddDate(0, 0, params.HoldingPeriodDays)

	divisor := decimal.NewFromInt(totalShares)
	hundred := decimal.NewFromInt(100)
	exponent := 365.0 / float64(params.HoldingPeriodDays)

	projections := make([]InvestorProjection, 0, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		ownership := decimal.NewFromInt(p.Shares).Div(divisor)
		payout := exitValue.Mul(ownership).Round(2)
		returnPct := payout.Sub(p.Amount).Div(p.Amount).Mul(hundred).Round(2)

		growth := payout.InexactFloat64() / p.Amount.InexactFloat64()
		annualized := (math.Pow(growth, exponent) - 1) * 100

		projections = append(projections, InvestorProjection{
			InvestmentID:        p.InvestmentID,
			InvestorID:          p.InvestorID,
			Amount:              p.Amount,
			Shares:              p.Shares,
			OwnershipPct:        ownership.Mul(hundred).Round(4),
			Payout:              payout,
			ReturnPct:           returnPct,
			AnnualizedReturnPct: annualized,
		})
	}

	return &Result{
		ExitValue: exitValue,
		Timeline: []TimelineEvent{
			{Name: "funding", Date: snapshot.FundedAt},
			{Name: "lock_in", Date: snapshot.TakenAt},
			{Name: "exit", Date: exitDate},
		},
		Projections: projections,
	}, nil
}

// Domain errors.
var (
	ErrRunNotFound     = errors.New("scenario run not found")
	ErrInvalidParams   = errors.New("invalid scenario parameters")
	ErrEmptySnapshot   = errors.New("snapshot has no active positions")
	ErrUnknownTemplate = errors.New("unknown scenario template")
)

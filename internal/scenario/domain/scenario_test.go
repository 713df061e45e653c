package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func singleInvestorSnapshot(amount int64, shares int64) *Snapshot {
	taken := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return &Snapshot{
		SPVID:             "SPV1",
		TotalIssuedShares: shares,
		FundedAt:          taken.AddDate(0, -1, 0),
		TakenAt:           taken,
		Positions: []SnapshotPosition{
			{InvestmentID: "INV1", InvestorID: "alice", Amount: decimal.NewFromInt(amount), Shares: shares},
		},
	}
}

func TestSimulateSingleInvestor(t *testing.T) {
	snapshot := singleInvestorSnapshot(10000, 100)
	params := Params{
		HoldingPeriodDays: 365,
		ExitMultiplier:    decimal.NewFromFloat(1.5),
		MarketCondition:   ConditionNeutral,
	}

	result, err := Simulate(snapshot, params)
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}

	if !result.ExitValue.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("ExitValue = %s, want 15000", result.ExitValue)
	}
	if len(result.Projections) != 1 {
		t.Fatalf("got %d projections, want 1", len(result.Projections))
	}

	p := result.Projections[0]
	if !p.Payout.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Payout = %s, want 15000", p.Payout)
	}
	if !p.ReturnPct.Equal(decimal.NewFromInt(50)) {
		t.Errorf("ReturnPct = %s, want 50", p.ReturnPct)
	}
	// One year at 1.5x annualizes to 50%.
	if math.Abs(p.AnnualizedReturnPct-50) > 0.01 {
		t.Errorf("AnnualizedReturnPct = %f, want ~50", p.AnnualizedReturnPct)
	}
}

func TestSimulateTimeline(t *testing.T) {
	snapshot := singleInvestorSnapshot(10000, 100)
	params := Params{
		HoldingPeriodDays: 365,
		ExitMultiplier:    decimal.NewFromFloat(1.5),
		MarketCondition:   ConditionNeutral,
	}

	result, err := Simulate(snapshot, params)
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}

	names := make([]string, 0, len(result.Timeline))
	for _, event := range result.Timeline {
		names = append(names, event.Name)
	}
	want := []string{"funding", "lock_in", "exit"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("timeline = %v, want %v", names, want)
		}
	}

	exit := result.Timeline[2].Date
	if !exit.Equal(snapshot.TakenAt.AddDate(0, 0, 365)) {
		t.Errorf("exit date = %s, want snapshot + 365d", exit)
	}
}

func TestSimulateMarketConditions(t *testing.T) {
	tests := []struct {
		condition MarketCondition
		want      string
	}{
		{ConditionBear, "12000"},    // 10000 * 1.5 * 0.8
		{ConditionNeutral, "15000"}, // 10000 * 1.5 * 1.0
		{ConditionBull, "18000"},    // 10000 * 1.5 * 1.2
	}
	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			result, err := Simulate(singleInvestorSnapshot(10000, 100), Params{
				HoldingPeriodDays: 365,
				ExitMultiplier:    decimal.NewFromFloat(1.5),
				MarketCondition:   tt.condition,
			})
			if err != nil {
				t.Fatalf("Simulate() error: %v", err)
			}
			if !result.ExitValue.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ExitValue = %s, want %s", result.ExitValue, tt.want)
			}
		})
	}
}

func TestSimulateOwnershipSplit(t *testing.T) {
	taken := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	snapshot := &Snapshot{
		SPVID:             "SPV1",
		TotalIssuedShares: 1000,
		FundedAt:          taken,
		TakenAt:           taken,
		Positions: []SnapshotPosition{
			{InvestmentID: "I1", InvestorID: "a", Amount: decimal.NewFromInt(50000), Shares: 500},
			{InvestmentID: "I2", InvestorID: "b", Amount: decimal.NewFromInt(30000), Shares: 300},
			{InvestmentID: "I3", InvestorID: "c", Amount: decimal.NewFromInt(20000), Shares: 200},
		},
	}

	result, err := Simulate(snapshot, Params{
		HoldingPeriodDays: 730,
		ExitMultiplier:    decimal.NewFromInt(2),
		MarketCondition:   ConditionNeutral,
	})
	if err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}

	wantPayouts := []string{"100000", "60000", "40000"}
	for i, p := range result.Projections {
		if !p.Payout.Equal(decimal.RequireFromString(wantPayouts[i])) {
			t.Errorf("projection[%d].Payout = %s, want %s", i, p.Payout, wantPayouts[i])
		}
		if !p.ReturnPct.Equal(decimal.NewFromInt(100)) {
			t.Errorf("projection[%d].ReturnPct = %s, want 100", i, p.ReturnPct)
		}
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	good := Params{HoldingPeriodDays: 365, ExitMultiplier: decimal.NewFromInt(1), MarketCondition: ConditionNeutral}

	tests := []struct {
		name   string
		params Params
	}{
		{"zero holding period", Params{HoldingPeriodDays: 0, ExitMultiplier: decimal.NewFromInt(1), MarketCondition: ConditionNeutral}},
		{"negative multiplier", Params{HoldingPeriodDays: 10, ExitMultiplier: decimal.NewFromInt(-1), MarketCondition: ConditionNeutral}},
		{"unknown condition", Params{HoldingPeriodDays: 10, ExitMultiplier: decimal.NewFromInt(1), MarketCondition: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Simulate(singleInvestorSnapshot(1000, 10), tt.params); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Simulate() = %v, want ErrInvalidParams", err)
			}
		})
	}

	empty := &Snapshot{SPVID: "SPV1", TakenAt: time.Now()}
	if _, err := Simulate(empty, good); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("Simulate(empty) = %v, want ErrEmptySnapshot", err)
	}
}

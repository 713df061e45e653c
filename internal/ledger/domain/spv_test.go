package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestSPV(t *testing.T, target int64, plannedShares int64) *SPV {
	t.Helper()
	spv, err := NewSPV("SPV1", "SPV-2026-0001", "DL1", decimal.NewFromInt(target), plannedShares, AllocationSnapshot{
		DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 10, ReservePct: 10,
	})
	if err != nil {
		t.Fatalf("NewSPV() error: %v", err)
	}
	return spv
}

func TestNewSPVSharePrice(t *testing.T) {
	spv := newTestSPV(t, 100000, 1000)
	if !spv.SharePrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("SharePrice = %s, want 100", spv.SharePrice)
	}

	if _, err := NewSPV("SPV2", "c", "d", decimal.NewFromInt(1000), 0, AllocationSnapshot{}); err == nil {
		t.Error("NewSPV() with zero shares should fail")
	}
	if _, err := NewSPV("SPV3", "c", "d", decimal.Zero, 100, AllocationSnapshot{}); err == nil {
		t.Error("NewSPV() with zero target should fail")
	}
}

func TestSharesFor(t *testing.T) {
	spv := newTestSPV(t, 100000, 1000) // share price 100

	tests := []struct {
		name    string
		amount  string
		want    int64
		wantErr error
	}{
		{name: "one share", amount: "100", want: 1},
		{name: "many shares", amount: "5000", want: 50},
		{name: "below one share", amount: "99.99", wantErr: ErrSubShareAmount},
		{name: "not a whole multiple", amount: "150", wantErr: ErrSubShareAmount},
		{name: "zero", amount: "0", wantErr: ErrSubShareAmount},
		{name: "negative", amount: "-100", wantErr: ErrSubShareAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := spv.SharesFor(decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SharesFor(%s) error = %v, want %v", tt.amount, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SharesFor(%s) error: %v", tt.amount, err)
			}
			if got != tt.want {
				t.Errorf("SharesFor(%s) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func TestWholeShareFloor(t *testing.T) {
	spv := newTestSPV(t, 100000, 1000) // share price 100

	tests := []struct {
		name          string
		amount        string
		wantShares    int64
		wantRemainder string
	}{
		{name: "exact", amount: "300", wantShares: 3, wantRemainder: "0"},
		{name: "floors with remainder", amount: "250.75", wantShares: 2, wantRemainder: "50.75"},
		{name: "all remainder", amount: "99.99", wantShares: 0, wantRemainder: "99.99"},
		{name: "zero", amount: "0", wantShares: 0, wantRemainder: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, remainder := spv.WholeShareFloor(decimal.RequireFromString(tt.amount))
			if shares != tt.wantShares {
				t.Errorf("shares = %d, want %d", shares, tt.wantShares)
			}
			if !remainder.Equal(decimal.RequireFromString(tt.wantRemainder)) {
				t.Errorf("remainder = %s, want %s", remainder, tt.wantRemainder)
			}
			// shares*price + remainder must reconstruct the amount.
			total := spv.SharePrice.Mul(decimal.NewFromInt(shares)).Add(remainder)
			if !total.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("shares*price + remainder = %s, want %s", total, tt.amount)
			}
		})
	}
}

func TestEscrow(t *testing.T) {
	spv := newTestSPV(t, 100000, 1000)

	if err := spv.CreditEscrow(decimal.NewFromInt(500)); err != nil {
		t.Fatalf("CreditEscrow() error: %v", err)
	}
	if err := spv.DebitEscrow(decimal.NewFromInt(200)); err != nil {
		t.Fatalf("DebitEscrow() error: %v", err)
	}
	if !spv.EscrowBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("EscrowBalance = %s, want 300", spv.EscrowBalance)
	}

	err := spv.DebitEscrow(decimal.NewFromInt(301))
	if !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("DebitEscrow() = %v, want ErrInsufficientEscrow", err)
	}
	// A rejected debit must leave the balance untouched.
	if !spv.EscrowBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("EscrowBalance = %s after rejected debit, want 300", spv.EscrowBalance)
	}

	if err := spv.CreditEscrow(decimal.NewFromInt(-1)); err == nil {
		t.Error("CreditEscrow() with negative amount should fail")
	}
}

func TestSharesSumInvariant(t *testing.T) {
	spv := newTestSPV(t, 100000, 1000)

	amounts := []string{"100", "5000", "2500", "300"}
	var investments []*Investment
	for _, amount := range amounts {
		a := decimal.RequireFromString(amount)
		shares, err := spv.SharesFor(a)
		if err != nil {
			t.Fatalf("SharesFor(%s) error: %v", amount, err)
		}
		inv := NewInvestment("INV", "req", "SPV1", "DL1", "investor", a, shares)
		spv.TotalIssuedShares += shares
		if err := spv.CreditEscrow(a); err != nil {
			t.Fatalf("CreditEscrow() error: %v", err)
		}
		investments = append(investments, inv)
	}

	var sum int64
	for _, inv := range investments {
		sum += inv.Shares
	}
	if sum != spv.TotalIssuedShares {
		t.Errorf("sum of investment shares = %d, total issued = %d", sum, spv.TotalIssuedShares)
	}
}

func TestInvestmentExit(t *testing.T) {
	inv := NewInvestment("INV1", "req1", "SPV1", "DL1", "inv-a", decimal.NewFromInt(1000), 10)

	if err := inv.Exit(decimal.NewFromInt(1500)); err != nil {
		t.Fatalf("Exit() error: %v", err)
	}
	if inv.IsActive() {
		t.Error("investment still active after exit")
	}
	if !inv.Amount.Equal(decimal.NewFromInt(1000)) || inv.Shares != 10 {
		t.Error("amount or shares mutated by exit")
	}
	if err := inv.Exit(decimal.NewFromInt(1)); !errors.Is(err, ErrInvestmentExited) {
		t.Fatalf("second Exit() = %v, want ErrInvestmentExited", err)
	}
}

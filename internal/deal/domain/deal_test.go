package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAllocationPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    AllocationPlan
		wantErr error
	}{
		{
			name: "even split",
			plan: AllocationPlan{DirectSalePct: 25, BundlesPct: 25, AutoInvestPct: 25, ReservePct: 25},
		},
		{
			name: "single channel",
			plan: AllocationPlan{DirectSalePct: 100},
		},
		{
			name: "typical split",
			plan: AllocationPlan{DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 10, ReservePct: 10},
		},
		{
			name:    "sums to 99",
			plan:    AllocationPlan{DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 10, ReservePct: 9},
			wantErr: ErrInvalidAllocation,
		},
		{
			name:    "sums to 101",
			plan:    AllocationPlan{DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 11, ReservePct: 10},
			wantErr: ErrInvalidAllocation,
		},
		{
			name:    "negative percentage",
			plan:    AllocationPlan{DirectSalePct: 110, BundlesPct: -10, AutoInvestPct: 0, ReservePct: 0},
			wantErr: ErrInvalidAllocation,
		},
		{
			name:    "all zero",
			plan:    AllocationPlan{},
			wantErr: ErrInvalidAllocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllocationPlanCap(t *testing.T) {
	plan := AllocationPlan{DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 10, ReservePct: 10}
	target := decimal.NewFromInt(100000)

	tests := []struct {
		channel Channel
		want    string
	}{
		{ChannelDirectSale, "60000"},
		{ChannelBundles, "20000"},
		{ChannelAutoInvest, "10000"},
		{ChannelReserve, "10000"},
	}
	for _, tt := range tests {
		got := plan.Cap(target, tt.channel)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Cap(%s) = %s, want %s", tt.channel, got, tt.want)
		}
	}
}

func newFundingDeal(t *testing.T) *Deal {
	t.Helper()
	deal, err := NewDeal("DL1", "test asset", decimal.NewFromInt(100000), 1000)
	if err != nil {
		t.Fatalf("NewDeal() error: %v", err)
	}
	plan := AllocationPlan{DirectSalePct: 60, BundlesPct: 20, AutoInvestPct: 10, ReservePct: 10}
	if err := deal.SetAllocationPlan(plan); err != nil {
		t.Fatalf("SetAllocationPlan() error: %v", err)
	}
	if err := deal.Advance(DealStatusOpen); err != nil {
		t.Fatalf("Advance(open) error: %v", err)
	}
	return deal
}

func TestRecordChannelRaise(t *testing.T) {
	t.Run("within cap", func(t *testing.T) {
		deal := newFundingDeal(t)
		if err := deal.RecordChannelRaise(ChannelDirectSale, decimal.NewFromInt(50000)); err != nil {
			t.Fatalf("RecordChannelRaise() error: %v", err)
		}
		if got := deal.RaisedAmount(); !got.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("RaisedAmount() = %s, want 50000", got)
		}
	})

	t.Run("exactly at cap", func(t *testing.T) {
		deal := newFundingDeal(t)
		if err := deal.RecordChannelRaise(ChannelBundles, decimal.NewFromInt(20000)); err != nil {
			t.Fatalf("RecordChannelRaise() error: %v", err)
		}
	})

	t.Run("exceeds cap", func(t *testing.T) {
		deal := newFundingDeal(t)
		if err := deal.RecordChannelRaise(ChannelDirectSale, decimal.NewFromInt(50000)); err != nil {
			t.Fatalf("first raise error: %v", err)
		}
		err := deal.RecordChannelRaise(ChannelDirectSale, decimal.NewFromInt(10001))
		if !errors.Is(err, ErrChannelCapacityExceeded) {
			t.Fatalf("RecordChannelRaise() = %v, want ErrChannelCapacityExceeded", err)
		}
		// The rejected raise must not change the channel total.
		if got := deal.DirectSaleRaised; !got.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("DirectSaleRaised = %s, want 50000 after rejection", got)
		}
	})

	t.Run("plan not set", func(t *testing.T) {
		deal, err := NewDeal("DL2", "no plan", decimal.NewFromInt(1000), 100)
		if err != nil {
			t.Fatalf("NewDeal() error: %v", err)
		}
		if err := deal.Advance(DealStatusOpen); err != nil {
			t.Fatalf("Advance() error: %v", err)
		}
		if err := deal.RecordChannelRaise(ChannelDirectSale, decimal.NewFromInt(100)); !errors.Is(err, ErrInvalidAllocation) {
			t.Fatalf("RecordChannelRaise() = %v, want ErrInvalidAllocation", err)
		}
	})

	t.Run("raised amount sums all channels", func(t *testing.T) {
		deal := newFundingDeal(t)
		raises := map[Channel]int64{
			ChannelDirectSale: 30000,
			ChannelBundles:    15000,
			ChannelAutoInvest: 5000,
			ChannelReserve:    10000,
		}
		for channel, amount := range raises {
			if err := deal.RecordChannelRaise(channel, decimal.NewFromInt(amount)); err != nil {
				t.Fatalf("RecordChannelRaise(%s) error: %v", channel, err)
			}
		}
		if got := deal.RaisedAmount(); !got.Equal(decimal.NewFromInt(60000)) {
			t.Errorf("RaisedAmount() = %s, want 60000", got)
		}
	})
}

func TestDealAdvance(t *testing.T) {
	t.Run("strictly forward", func(t *testing.T) {
		deal := newFundingDeal(t)
		if err := deal.Advance(DealStatusFunded); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Advance(open → funded) = %v, want ErrInvalidTransition", err)
		}
		if err := deal.Advance(DealStatusFunding); err != nil {
			t.Fatalf("Advance(funding) error: %v", err)
		}
		if err := deal.Advance(DealStatusOpen); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Advance(back to open) = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("funded requires plan", func(t *testing.T) {
		deal, err := NewDeal("DL3", "no plan", decimal.NewFromInt(1000), 100)
		if err != nil {
			t.Fatalf("NewDeal() error: %v", err)
		}
		for _, status := range []DealStatus{DealStatusOpen, DealStatusFunding} {
			if err := deal.Advance(status); err != nil {
				t.Fatalf("Advance(%s) error: %v", status, err)
			}
		}
		if err := deal.Advance(DealStatusFunded); !errors.Is(err, ErrInvalidAllocation) {
			t.Fatalf("Advance(funded) = %v, want ErrInvalidAllocation", err)
		}
	})

	t.Run("funded sets timestamp and freezes plan", func(t *testing.T) {
		deal := newFundingDeal(t)
		if err := deal.Advance(DealStatusFunding); err != nil {
			t.Fatalf("Advance(funding) error: %v", err)
		}
		if err := deal.Advance(DealStatusFunded); err != nil {
			t.Fatalf("Advance(funded) error: %v", err)
		}
		if deal.FundedAt == nil {
			t.Error("FundedAt not set after funding")
		}
		err := deal.SetAllocationPlan(AllocationPlan{DirectSalePct: 100})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("SetAllocationPlan() after funding = %v, want ErrInvalidTransition", err)
		}
	})
}

package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitProRata(t *testing.T) {
	tests := []struct {
		name   string
		total  string
		shares []int64
		want   []string
	}{
		{
			name:   "proportional example",
			total:  "1000",
			shares: []int64{500, 300, 200},
			want:   []string{"500", "300", "200"},
		},
		{
			name:   "single holder",
			total:  "123.45",
			shares: []int64{7},
			want:   []string{"123.45"},
		},
		{
			name:   "thirds round to cents",
			total:  "100",
			shares: []int64{1, 1, 1},
			want:   []string{"33.34", "33.33", "33.33"},
		},
		{
			name:   "uneven cents favor larger remainders",
			total:  "0.05",
			shares: []int64{1, 1, 1},
			want:   []string{"0.02", "0.02", "0.01"},
		},
		{
			name:   "zero total",
			total:  "0",
			shares: []int64{10, 20},
			want:   []string{"0", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			got, err := SplitProRata(total, tt.shares)
			if err != nil {
				t.Fatalf("SplitProRata() error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d slices, want %d", len(got), len(tt.want))
			}

			sum := decimal.Zero
			for i, amount := range got {
				if !amount.Equal(decimal.RequireFromString(tt.want[i])) {
					t.Errorf("slice[%d] = %s, want %s", i, amount, tt.want[i])
				}
				sum = sum.Add(amount)
			}
			if !sum.Equal(total) {
				t.Errorf("sum of slices = %s, want %s exactly", sum, total)
			}
		})
	}
}

func TestSplitProRataExactSum(t *testing.T) {
	// Awkward share distributions must still sum exactly, whatever the
	// per-slice rounding did.
	cases := []struct {
		total  string
		shares []int64
	}{
		{"999.99", []int64{3, 7, 11, 13}},
		{"1", []int64{999, 1}},
		{"10000", []int64{1, 2, 3, 4, 5, 6, 7}},
		{"0.01", []int64{50, 50}},
	}
	for _, c := range cases {
		total := decimal.RequireFromString(c.total)
		got, err := SplitProRata(total, c.shares)
		if err != nil {
			t.Fatalf("SplitProRata(%s, %v) error: %v", c.total, c.shares, err)
		}
		sum := decimal.Zero
		for _, amount := range got {
			if amount.IsNegative() {
				t.Errorf("SplitProRata(%s, %v) produced negative slice %s", c.total, c.shares, amount)
			}
			sum = sum.Add(amount)
		}
		if !sum.Equal(total) {
			t.Errorf("SplitProRata(%s, %v) sums to %s", c.total, c.shares, sum)
		}
	}
}

func TestSplitProRataErrors(t *testing.T) {
	if _, err := SplitProRata(decimal.NewFromInt(100), nil); !errors.Is(err, ErrNoActiveHoldings) {
		t.Errorf("empty shares = %v, want ErrNoActiveHoldings", err)
	}
	if _, err := SplitProRata(decimal.NewFromInt(100), []int64{10, 0}); err == nil {
		t.Error("zero share count should fail")
	}
	if _, err := SplitProRata(decimal.NewFromInt(-1), []int64{10}); err == nil {
		t.Error("negative total should fail")
	}
}

package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newActiveFollowing(t *testing.T, copyType CopyType, targetDealID string, copyAmount, stopLossPct int64) *CopyFollowing {
	t.Helper()
	following, err := NewCopyFollowing("CF1", "follower", "trader", copyType, targetDealID,
		decimal.NewFromInt(copyAmount), decimal.NewFromInt(stopLossPct), false)
	if err != nil {
		t.Fatalf("NewCopyFollowing() error: %v", err)
	}
	return following
}

func TestNewCopyFollowingValidation(t *testing.T) {
	tests := []struct {
		name       string
		follower   string
		trader     string
		copyType   CopyType
		targetDeal string
		amount     int64
		stopLoss   int64
		wantErr    error
	}{
		{"self copy", "alice", "alice", CopyFullProfile, "", 1000, 10, ErrSelfCopy},
		{"unknown copy type", "a", "b", "everything", "", 1000, 10, ErrInvalidCopyType},
		{"single deal without target", "a", "b", CopySingleDeal, "", 1000, 10, ErrInvalidCopyType},
		{"zero amount", "a", "b", CopyFullProfile, "", 0, 10, nil},
		{"stop loss above 100", "a", "b", CopyFullProfile, "", 1000, 101, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCopyFollowing("CF1", tt.follower, tt.trader, tt.copyType, tt.targetDeal,
				decimal.NewFromInt(tt.amount), decimal.NewFromInt(tt.stopLoss), false)
			if err == nil {
				t.Fatal("NewCopyFollowing() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewCopyFollowing() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	following := newActiveFollowing(t, CopyFullProfile, "", 1000, 0)
	if !following.IsActive() {
		t.Error("new following must be active")
	}
	if !following.CumulativePL.IsZero() {
		t.Errorf("CumulativePL = %s, want 0", following.CumulativePL)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		f       *CopyFollowing
		channel string
		dealID  string
		want    bool
	}{
		{"full profile matches any deal", newActiveFollowing(t, CopyFullProfile, "", 1000, 0), "direct", "D1", true},
		{"full profile matches bundles too", newActiveFollowing(t, CopyFullProfile, "", 1000, 0), "bundles", "D2", true},
		{"bundle matches bundles channel", newActiveFollowing(t, CopyBundle, "", 1000, 0), "bundles", "D1", true},
		{"bundle ignores other channels", newActiveFollowing(t, CopyBundle, "", 1000, 0), "direct", "D1", false},
		{"single deal matches its target", newActiveFollowing(t, CopySingleDeal, "D7", 1000, 0), "direct", "D7", true},
		{"single deal ignores other deals", newActiveFollowing(t, CopySingleDeal, "D7", 1000, 0), "direct", "D8", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Matches(tt.channel, tt.dealID); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.channel, tt.dealID, got, tt.want)
			}
		})
	}
}

func TestStopLossBreached(t *testing.T) {
	tests := []struct {
		name     string
		stopLoss int64
		pl       string
		want     bool
	}{
		{"zero percentage disables the check", 0, "-100000", false},
		{"profit never breaches", 20, "500", false},
		{"loss below cutoff", 20, "-199.99", false},
		{"loss exactly at cutoff", 20, "-200", true},
		{"loss past cutoff", 20, "-350", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			following := newActiveFollowing(t, CopyFullProfile, "", 1000, tt.stopLoss)
			following.ApplyPL(decimal.RequireFromString(tt.pl))
			if got := following.StopLossBreached(); got != tt.want {
				t.Errorf("StopLossBreached() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyPLAccumulates(t *testing.T) {
	following := newActiveFollowing(t, CopyFullProfile, "", 1000, 50)
	following.ApplyPL(decimal.NewFromInt(300))
	following.ApplyPL(decimal.NewFromInt(-450))
	if !following.CumulativePL.Equal(decimal.NewFromInt(-150)) {
		t.Errorf("CumulativePL = %s, want -150", following.CumulativePL)
	}
}

func TestFollowingTransitions(t *testing.T) {
	following := newActiveFollowing(t, CopyFullProfile, "", 1000, 10)

	if err := following.PauseForStopLoss(); err != nil {
		t.Fatalf("PauseForStopLoss() error: %v", err)
	}
	if following.Status != FollowingStatusStopLossPaused {
		t.Errorf("status = %s, want stop_loss_paused", following.Status)
	}
	if following.IsActive() {
		t.Error("paused following must not be active")
	}
	if err := following.PauseForStopLoss(); !errors.Is(err, ErrFollowingNotActive) {
		t.Errorf("second PauseForStopLoss() = %v, want ErrFollowingNotActive", err)
	}

	// A paused following can still be stopped by its follower.
	if err := following.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if following.StoppedAt == nil {
		t.Error("StoppedAt must be set on stop")
	}
	if err := following.Stop(); !errors.Is(err, ErrFollowingNotActive) {
		t.Errorf("second Stop() = %v, want ErrFollowingNotActive", err)
	}
}

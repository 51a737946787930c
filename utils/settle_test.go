package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func receiptFor(userID int64, stake string) *BetReceipt {
	return &BetReceipt{UserID: userID, Game: "coinflip", Stake: decimal.RequireFromString(stake)}
}

func TestSettleClassification(t *testing.T) {
	tests := []struct {
		multiplier string
		wantPayout string
		wantClass  Classification
	}{
		{"2", "200", ResultWin},
		{"0.5", "50", ResultWin}, // partial return still counts as a win
		{"1", "100", ResultPush},
		{"0", "0", ResultLoss},
		{"-1", "0", ResultLoss}, // negative multipliers clamp to zero
	}

	for _, tt := range tests {
		s := Settle(receiptFor(1, "100"), decimal.RequireFromString(tt.multiplier))
		if !s.Payout.Equal(decimal.RequireFromString(tt.wantPayout)) {
			t.Errorf("Settle(x%s): payout = %s, want %s", tt.multiplier, s.Payout, tt.wantPayout)
		}
		if s.Class != tt.wantClass {
			t.Errorf("Settle(x%s): class = %s, want %s", tt.multiplier, s.Class, tt.wantClass)
		}
	}
}

func TestSettleRoundsPayout(t *testing.T) {
	s := Settle(receiptFor(1, "10"), decimal.RequireFromString("1.333"))
	if !s.Payout.Equal(decimal.RequireFromString("13.33")) {
		t.Errorf("expected payout 13.33, got %s", s.Payout)
	}
}

func TestApplySettlementCreditsAndProgresses(t *testing.T) {
	ResetMemoryStore()

	userID := int64(20)
	receipt, err := PlaceBet(userID, "coinflip", "100")
	if err != nil {
		t.Fatalf("place bet failed: %v", err)
	}

	s := Settle(receipt, decimal.RequireFromString("2"))
	balance, err := ApplySettlement(receipt, s)
	if err != nil {
		t.Fatalf("apply settlement failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("1100")) {
		t.Errorf("expected balance 1100, got %s", balance)
	}

	acct, _ := GetAccount(userID)
	if acct.Wins != 1 {
		t.Errorf("expected a recorded win, got %d", acct.Wins)
	}
	// 100 profit at XPPerProfit per point.
	if acct.TotalXP != 100*XPPerProfit {
		t.Errorf("expected %d XP, got %d", 100*XPPerProfit, acct.TotalXP)
	}

	entries, _ := RecentHistory(userID, 1)
	if len(entries) != 1 || entries[0].Type != "win" {
		t.Errorf("expected a win history entry, got %+v", entries)
	}
}

func TestApplySettlementLossKeepsBalance(t *testing.T) {
	ResetMemoryStore()

	userID := int64(21)
	receipt, err := PlaceBet(userID, "wheel", "400")
	if err != nil {
		t.Fatalf("place bet failed: %v", err)
	}

	s := Settle(receipt, decimal.Zero)
	balance, err := ApplySettlement(receipt, s)
	if err != nil {
		t.Fatalf("apply settlement failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("600")) {
		t.Errorf("expected balance 600, got %s", balance)
	}

	acct, _ := GetAccount(userID)
	if acct.Losses != 1 {
		t.Errorf("expected a recorded loss, got %d", acct.Losses)
	}
	if acct.TotalXP != 0 {
		t.Errorf("losses must not grant XP, got %d", acct.TotalXP)
	}
}

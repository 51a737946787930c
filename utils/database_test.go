package utils

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDebitInsufficientFunds(t *testing.T) {
	ResetMemoryStore()

	userID := int64(1)
	if _, err := Debit(userID, decimal.RequireFromString("5000")); err != ErrInsufficientFunds {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}

	acct, _ := GetAccount(userID)
	if !acct.Points.Equal(decimal.RequireFromString(StartingPoints)) {
		t.Errorf("failed debit must not touch the balance, got %s", acct.Points)
	}
}

func TestDebitCreditRoundTrip(t *testing.T) {
	ResetMemoryStore()

	userID := int64(2)
	balance, err := Debit(userID, decimal.RequireFromString("250.50"))
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("749.50")) {
		t.Errorf("expected 749.50 after debit, got %s", balance)
	}

	balance, err = Credit(userID, decimal.RequireFromString("100.25"))
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("849.75")) {
		t.Errorf("expected 849.75 after credit, got %s", balance)
	}
}

func TestDebitRejectsNonPositive(t *testing.T) {
	ResetMemoryStore()

	for _, amount := range []string{"0", "-5"} {
		if _, err := Debit(3, decimal.RequireFromString(amount)); err != ErrInvalidAmount {
			t.Errorf("Debit(%s): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ResetMemoryStore()

	userID := int64(4)
	stake := decimal.RequireFromString("100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Debit(userID, stake); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 1000 starting points funds exactly ten 100-point debits.
	if succeeded != 10 {
		t.Errorf("expected 10 successful debits, got %d", succeeded)
	}
	acct, _ := GetAccount(userID)
	if !acct.Points.IsZero() {
		t.Errorf("expected zero balance, got %s", acct.Points)
	}
}

func TestCreditOnceIsIdempotent(t *testing.T) {
	ResetMemoryStore()

	userID := int64(5)
	amount := decimal.RequireFromString("0.01")
	points := decimal.RequireFromString("41666.67")

	applied, err := CreditOnce(userID, "BTC", "tx-abc", amount, points)
	if err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	if !applied {
		t.Fatal("first credit should apply")
	}

	applied, err = CreditOnce(userID, "BTC", "tx-abc", amount, points)
	if err != nil {
		t.Fatalf("second credit errored: %v", err)
	}
	if applied {
		t.Error("second credit with the same txid must be a no-op")
	}

	acct, _ := GetAccount(userID)
	want := decimal.RequireFromString(StartingPoints).Add(points)
	if !acct.Points.Equal(want) {
		t.Errorf("expected %s points, got %s", want, acct.Points)
	}

	wallet, _ := GetWallet(userID, "BTC")
	if !wallet.Balance.Equal(amount) {
		t.Errorf("expected wallet balance %s, got %s", amount, wallet.Balance)
	}

	processed, _ := IsProcessed("BTC", "tx-abc")
	if !processed {
		t.Error("txid should be marked processed")
	}
}

func TestCreditOnceSameTxidDifferentCurrency(t *testing.T) {
	ResetMemoryStore()

	if applied, _ := CreditOnce(6, "BTC", "tx-1", decimal.New(1, -2), decimal.New(1, 0)); !applied {
		t.Fatal("BTC credit should apply")
	}
	if applied, _ := CreditOnce(6, "LTC", "tx-1", decimal.New(1, -2), decimal.New(1, 0)); !applied {
		t.Error("same txid on a different chain is a distinct deposit")
	}
}

func TestHistoryWindowTrims(t *testing.T) {
	ResetMemoryStore()

	userID := int64(7)
	for i := 0; i < HistoryWindow+10; i++ {
		if err := AppendHistory(userID, HistoryEntry{Type: "loss", Game: "coinflip"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	entries, err := RecentHistory(userID, HistoryWindow*2)
	if err != nil {
		t.Fatalf("recent history failed: %v", err)
	}
	if len(entries) != HistoryWindow {
		t.Errorf("expected history trimmed to %d entries, got %d", HistoryWindow, len(entries))
	}
}

func TestNextAddressIndexMonotonic(t *testing.T) {
	ResetMemoryStore()

	for want := int64(0); want < 3; want++ {
		idx, err := NextAddressIndex("BTC")
		if err != nil {
			t.Fatalf("next index failed: %v", err)
		}
		if idx != want {
			t.Errorf("expected index %d, got %d", want, idx)
		}
	}

	// Independent sequence per currency.
	idx, _ := NextAddressIndex("LTC")
	if idx != 0 {
		t.Errorf("expected LTC sequence to start at 0, got %d", idx)
	}
}

func TestRecordOutcomeProgression(t *testing.T) {
	ResetMemoryStore()

	userID := int64(8)
	if err := RecordOutcome(userID, true, 20); err != nil {
		t.Fatalf("record outcome failed: %v", err)
	}
	if err := RecordOutcome(userID, false, 0); err != nil {
		t.Fatalf("record outcome failed: %v", err)
	}

	acct, _ := GetAccount(userID)
	if acct.Wins != 1 || acct.Losses != 1 {
		t.Errorf("expected 1W/1L, got %dW/%dL", acct.Wins, acct.Losses)
	}
	if acct.TotalXP != 20 {
		t.Errorf("expected 20 XP, got %d", acct.TotalXP)
	}
}

package coinflip

import (
	"errors"
	"testing"

	"lcc-go/utils"

	"github.com/shopspring/decimal"
)

type stubPolicy struct{ armed bool }

func (p *stubPolicy) Armed(int64) bool { return p.armed }
func (p *stubPolicy) Consume(int64) bool {
	if p.armed {
		p.armed = false
		return true
	}
	return false
}

func TestFlipMatchesSeededSource(t *testing.T) {
	utils.ResetMemoryStore()

	seed := int64(42)
	expected := Flip(utils.NewSeededSource(seed))

	result, err := play(1, "100", Heads, utils.NewSeededSource(seed), &stubPolicy{})
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if result.Landed != expected {
		t.Errorf("landed %s, want %s from the same seed", result.Landed, expected)
	}

	want := decimal.RequireFromString("900")
	if result.Landed == Heads {
		want = decimal.RequireFromString("1100")
		if !result.Settlement.Payout.Equal(decimal.RequireFromString("200")) {
			t.Errorf("win payout = %s, want 200", result.Settlement.Payout)
		}
	}
	if !result.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", result.Balance, want)
	}
}

func TestForcedLossLandsOpposite(t *testing.T) {
	utils.ResetMemoryStore()

	for seed := int64(0); seed < 10; seed++ {
		result, err := play(2, "10", Heads, utils.NewSeededSource(seed), &stubPolicy{armed: true})
		if err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if result.Landed != Tails {
			t.Fatalf("seed %d: forced round landed %s, want tails", seed, result.Landed)
		}
		if result.Settlement.Class != utils.ResultLoss {
			t.Fatalf("seed %d: forced round classified %s", seed, result.Settlement.Class)
		}
	}
}

func TestInvalidSideRejectedBeforeDebit(t *testing.T) {
	utils.ResetMemoryStore()

	if _, err := play(3, "100", Side("edge"), utils.NewSeededSource(1), &stubPolicy{}); !errors.Is(err, utils.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	acct, _ := utils.GetAccount(3)
	if !acct.Points.Equal(decimal.RequireFromString(utils.StartingPoints)) {
		t.Errorf("rejected play must not debit, balance = %s", acct.Points)
	}
}

func TestOpposite(t *testing.T) {
	if Opposite(Heads) != Tails || Opposite(Tails) != Heads {
		t.Error("opposite faces wrong")
	}
}

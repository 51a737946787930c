package pump

import (
	"errors"
	"math"
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

type fixedSource struct{ v float64 }

func (f fixedSource) Float64() float64 { return f.v }
func (f fixedSource) Intn(n int) int   { return 0 }

func setup() {
	utils.ResetMemoryStore()
	utils.InitializeRounds(utils.NewMemoryRegistry())
}

func TestPopChance(t *testing.T) {
	if got := PopChance(Medium, 0); got != 0.50 {
		t.Errorf("medium first pump pop chance = %v, want 0.50", got)
	}
	if got := PopChance(Medium, 1); math.Abs(got-0.55) > 1e-9 {
		t.Errorf("medium second pump pop chance = %v, want 0.55", got)
	}
	if got := PopChance(Extreme, 10); got != popCap {
		t.Errorf("pop chance must cap at %v, got %v", popCap, got)
	}
}

func TestLadderMonotonic(t *testing.T) {
	for diff := range baseRates {
		prev := LadderMultiplier(diff, 0)
		if !prev.Equal(decimal.NewFromInt(1)) {
			t.Errorf("%s: zero-pump multiplier = %s, want 1", diff, prev)
		}
		for k := 1; k <= maxPumps; k++ {
			cur := LadderMultiplier(diff, k)
			if !cur.GreaterThan(prev) {
				t.Errorf("%s: ladder not increasing at pump %d (%s <= %s)", diff, k, cur, prev)
			}
			prev = cur
		}
	}
}

func TestLadderReflectsFairOddsWithEdge(t *testing.T) {
	// One easy pump survives with probability 0.75, so the ladder pays
	// 0.97/0.75 = 1.2933..., rounded to 1.29.
	if got := LadderMultiplier(Easy, 1); !got.Equal(decimal.RequireFromString("1.29")) {
		t.Errorf("easy one-pump multiplier = %s, want 1.29", got)
	}
}

func TestPumpSurviveThenCashout(t *testing.T) {
	setup()

	round, err := open(1, "100", Easy, &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// 0.99 >= every pop chance, so the balloon never pops.
	outcome, err := pump(round, fixedSource{v: 0.99})
	if err != nil {
		t.Fatalf("pump failed: %v", err)
	}
	if outcome.Finished || outcome.Pumps != 1 {
		t.Fatalf("expected one surviving pump, got %+v", outcome)
	}

	final, err := Cashout(round)
	if err != nil {
		t.Fatalf("cashout failed: %v", err)
	}
	if !final.Settlement.Multiplier.Equal(LadderMultiplier(Easy, 1)) {
		t.Errorf("cashout multiplier = %s, want %s", final.Settlement.Multiplier, LadderMultiplier(Easy, 1))
	}

	wantBalance := decimal.RequireFromString("900").
		Add(decimal.RequireFromString("100").Mul(LadderMultiplier(Easy, 1)).Round(2))
	if !final.Balance.Equal(wantBalance) {
		t.Errorf("balance = %s, want %s", final.Balance, wantBalance)
	}
}

func TestPumpPopSettlesLoss(t *testing.T) {
	setup()

	round, err := open(1, "100", Easy, &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// 0.0 < every pop chance, so the first pump pops.
	outcome, err := pump(round, fixedSource{v: 0.0})
	if err != nil {
		t.Fatalf("pump failed: %v", err)
	}
	if !outcome.Popped || !outcome.Finished {
		t.Fatalf("expected a pop, got %+v", outcome)
	}
	if !outcome.Balance.Equal(decimal.RequireFromString("900")) {
		t.Errorf("balance = %s, want 900", outcome.Balance)
	}
	if _, ok := utils.Rounds.Get(1, "pump"); ok {
		t.Error("popped round should be closed")
	}
}

func TestCashoutRequiresOnePump(t *testing.T) {
	setup()

	round, err := open(1, "100", Easy, &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := Cashout(round); !errors.Is(err, utils.ErrInvalidAmount) {
		t.Errorf("zero-pump cashout should be rejected, got %v", err)
	}

	// The round stays open after the rejected cashout.
	if _, ok := utils.Rounds.Get(1, "pump"); !ok {
		t.Error("round should still be active")
	}
}

func TestForcedLossPopsImmediately(t *testing.T) {
	setup()

	round, err := open(1, "100", Easy, &stubPolicy{armed: true})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	outcome, err := pump(round, fixedSource{v: 0.99})
	if err != nil {
		t.Fatalf("pump failed: %v", err)
	}
	if !outcome.Popped {
		t.Error("cursed balloon should pop on the first pump")
	}
}

func TestMaxPumpsAutoCashout(t *testing.T) {
	setup()

	round, err := open(1, "100", Easy, &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	var outcome *Outcome
	for k := 0; k < maxPumps; k++ {
		outcome, err = pump(round, fixedSource{v: 0.99})
		if err != nil {
			t.Fatalf("pump %d failed: %v", k+1, err)
		}
	}
	if outcome == nil || !outcome.Finished || outcome.Popped {
		t.Fatalf("hitting the pump cap should cash out, got %+v", outcome)
	}
	if outcome.Pumps != maxPumps {
		t.Errorf("pumps = %d, want %d", outcome.Pumps, maxPumps)
	}
}

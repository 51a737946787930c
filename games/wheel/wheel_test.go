package wheel

import (
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

func TestSampleColorFrequencies(t *testing.T) {
	src := utils.NewSeededSource(7)
	const trials = 100_000

	counts := make(map[Color]int)
	for i := 0; i < trials; i++ {
		counts[SampleColor(src)]++
	}

	expected := map[Color]float64{
		Gray: 0.50, Yellow: 0.25, Red: 0.15, Blue: 0.07, Green: 0.03,
	}
	for color, want := range expected {
		got := float64(counts[color]) / trials
		if got < want-0.01 || got > want+0.01 {
			t.Errorf("%s frequency %.4f outside %.2f±0.01", color, got, want)
		}
	}
}

func TestSpinForcedLossAlwaysGray(t *testing.T) {
	src := utils.NewSeededSource(1)
	for i := 0; i < 100; i++ {
		if got := Spin(src, true); got != Gray {
			t.Fatalf("forced spin landed %s, want gray", got)
		}
	}
}

func TestMultipliers(t *testing.T) {
	if !Multiplier(Gray).IsZero() {
		t.Error("gray must pay nothing")
	}
	if !Multiplier(Green).Equal(decimal.RequireFromString("10")) {
		t.Errorf("green pays %s, want 10", Multiplier(Green))
	}
}

func TestPlaySettlesAgainstBalance(t *testing.T) {
	utils.ResetMemoryStore()

	result, err := play(1, "100", utils.NewSeededSource(3), &stubPolicy{})
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	start := decimal.RequireFromString(utils.StartingPoints)
	want := start.Sub(result.Stake).Add(result.Settlement.Payout)
	if !result.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", result.Balance, want)
	}
}

func TestPlayForcedLoss(t *testing.T) {
	utils.ResetMemoryStore()

	result, err := play(2, "100", utils.NewSeededSource(3), &stubPolicy{armed: true})
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if result.Landed != Gray {
		t.Errorf("forced round landed %s, want gray", result.Landed)
	}
	if !result.Balance.Equal(decimal.RequireFromString("900")) {
		t.Errorf("balance = %s, want 900", result.Balance)
	}
}

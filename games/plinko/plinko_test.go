package plinko

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

func setup() {
	utils.ResetMemoryStore()
	utils.InitializeRounds(utils.NewMemoryRegistry())
}

func TestTablesAreSymmetric(t *testing.T) {
	for rows, table := range tables {
		if len(table) != rows+1 {
			t.Errorf("rows=%d: table has %d slots, want %d", rows, len(table), rows+1)
		}
		for i := range table {
			j := len(table) - 1 - i
			if !table[i].Equal(table[j]) {
				t.Errorf("rows=%d: slot %d (%s) != slot %d (%s)", rows, i, table[i], j, table[j])
			}
		}
	}
}

func TestDropBallInRange(t *testing.T) {
	src := utils.NewSeededSource(11)
	for _, rows := range []int{8, 12, 16} {
		for i := 0; i < 10_000; i++ {
			slot := DropBall(src, rows)
			if slot < 0 || slot > rows {
				t.Fatalf("rows=%d: slot %d out of range", rows, slot)
			}
		}
	}
}

func TestWorstSlot(t *testing.T) {
	if got := worstSlot(8); !tables[8][got].Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("worst slot for 8 rows pays %s, want 0.5", tables[8][got])
	}
	if got := worstSlot(16); !tables[16][got].Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("worst slot for 16 rows pays %s, want 0.2", tables[16][got])
	}
}

func TestOpenRejectsUnknownRows(t *testing.T) {
	setup()

	if _, err := open(1, "100", 9, utils.NewSeededSource(1), &stubPolicy{}); !errors.Is(err, utils.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSessionAccrual(t *testing.T) {
	setup()

	round, err := open(1, "100", 8, utils.NewSeededSource(2), &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	state := round.State.(*State)
	if state.drops != 1 {
		t.Fatalf("open should include the first drop, got %d", state.drops)
	}
	if !state.totalStaked.Equal(decimal.RequireFromString("100")) {
		t.Errorf("staked = %s, want 100", state.totalStaked)
	}

	if err := dropAgain(round, utils.NewSeededSource(3)); err != nil {
		t.Fatalf("second drop failed: %v", err)
	}
	if state.drops != 2 {
		t.Errorf("drops = %d, want 2", state.drops)
	}
	if !state.totalStaked.Equal(decimal.RequireFromString("200")) {
		t.Errorf("staked = %s, want 200", state.totalStaked)
	}

	acct, _ := utils.GetAccount(1)
	if !acct.Points.Equal(decimal.RequireFromString("800")) {
		t.Errorf("balance = %s, want 800 before cashout", acct.Points)
	}
}

func TestCashoutPaysAccrued(t *testing.T) {
	setup()

	round, err := open(1, "100", 8, utils.NewSeededSource(2), &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	state := round.State.(*State)
	accrued := state.accrued

	outcome, err := Cashout(round)
	if err != nil {
		t.Fatalf("cashout failed: %v", err)
	}
	if !outcome.Settlement.Payout.Equal(accrued.Round(2)) {
		t.Errorf("payout = %s, want accrued %s", outcome.Settlement.Payout, accrued)
	}

	wantBalance := decimal.RequireFromString("900").Add(accrued.Round(2))
	if !outcome.Balance.Equal(wantBalance) {
		t.Errorf("balance = %s, want %s", outcome.Balance, wantBalance)
	}

	if _, ok := utils.Rounds.Get(1, "plinko"); ok {
		t.Error("cashed-out round should be closed")
	}
}

func TestDropAgainRejectedOnResolvedRound(t *testing.T) {
	setup()

	round, err := open(1, "100", 8, utils.NewSeededSource(2), &stubPolicy{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	// The expiry sweep resolves a timed-out round and settles it before
	// unregistering it. A drop landing in that window must not stake again.
	if !round.TryResolve(utils.RoundExpired) {
		t.Fatal("resolve failed")
	}
	if _, err := settle(round); err != nil {
		t.Fatalf("expiry settle failed: %v", err)
	}

	acct, _ := utils.GetAccount(1)
	before := acct.Points

	if err := dropAgain(round, utils.NewSeededSource(3)); !errors.Is(err, utils.ErrGameInProgress) {
		t.Fatalf("drop on a settled round should be rejected, got %v", err)
	}

	acct, _ = utils.GetAccount(1)
	if !acct.Points.Equal(before) {
		t.Errorf("rejected drop moved the balance: %s -> %s", before, acct.Points)
	}

	state := round.State.(*State)
	if state.drops != 1 {
		t.Errorf("drops = %d, want 1", state.drops)
	}
}

func TestForcedLossHitsWorstSlot(t *testing.T) {
	setup()

	round, err := open(1, "100", 8, utils.NewSeededSource(2), &stubPolicy{armed: true})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	state := round.State.(*State)
	if state.lastSlot != worstSlot(8) {
		t.Errorf("forced first drop landed slot %d, want worst slot %d", state.lastSlot, worstSlot(8))
	}
	if !state.accrued.Equal(decimal.RequireFromString("50")) {
		t.Errorf("accrued = %s, want 50 from the 0.5x slot", state.accrued)
	}

	// Only the first drop is forced.
	if state.forced {
		t.Error("forced flag should be consumed after one drop")
	}
}

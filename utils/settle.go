package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Classification is the settlement result of a round. By this domain's
// convention a positive payout counts as a win even when it is below the
// stake; only a zero payout is a loss.
type Classification string

const (
	ResultWin  Classification = "win"
	ResultLoss Classification = "loss"
	ResultPush Classification = "push"
)

// Settlement is the computed payout for one round.
type Settlement struct {
	Payout     decimal.Decimal
	Multiplier decimal.Decimal
	Class      Classification
}

var one = decimal.NewFromInt(1)

// Settle maps a stake and outcome multiplier to a payout. The payout is never
// negative and is rounded to the points precision before crediting.
func Settle(receipt *BetReceipt, multiplier decimal.Decimal) Settlement {
	if multiplier.IsNegative() {
		multiplier = decimal.Zero
	}

	payout := receipt.Stake.Mul(multiplier).Round(2)

	class := ResultLoss
	switch {
	case multiplier.Equal(one):
		class = ResultPush
	case payout.IsPositive():
		class = ResultWin
	}

	return Settlement{Payout: payout, Multiplier: multiplier, Class: class}
}

// ApplySettlement credits the payout, bumps progression counters, and appends
// the history record. Returns the balance after settlement. Progression and
// history failures are logged, never propagated; the credit itself is the only
// step that can fail the call.
func ApplySettlement(receipt *BetReceipt, s Settlement) (decimal.Decimal, error) {
	var balance decimal.Decimal
	var err error

	if s.Payout.IsPositive() {
		balance, err = Credit(receipt.UserID, s.Payout)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to credit payout: %w", err)
		}
	} else {
		acct, err := GetAccount(receipt.UserID)
		if err != nil {
			return decimal.Zero, err
		}
		balance = acct.Points
	}

	var xp int64
	if profit := s.Payout.Sub(receipt.Stake); profit.IsPositive() {
		xp = profit.IntPart() * XPPerProfit
	}
	if err := RecordOutcome(receipt.UserID, s.Class == ResultWin, xp); err != nil {
		Log.Warn("failed to record outcome", zap.Int64("user_id", receipt.UserID), zap.Error(err))
	}

	entry := HistoryEntry{
		Type:       string(s.Class),
		Game:       receipt.Game,
		Amount:     s.Payout,
		Multiplier: s.Multiplier,
	}
	if err := AppendHistory(receipt.UserID, entry); err != nil {
		Log.Warn("failed to append history", zap.Int64("user_id", receipt.UserID), zap.Error(err))
	}

	MetricSettlements.WithLabelValues(receipt.Game, string(s.Class)).Inc()

	return balance, nil
}

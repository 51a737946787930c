package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BetReceipt is the ephemeral proof that a stake was debited. It is consumed
// by settlement and never persisted beyond the history log.
type BetReceipt struct {
	UserID   int64
	Game     string
	Stake    decimal.Decimal
	PlacedAt time.Time
}

// ParseBet parses a bet string against the current balance. Supports explicit
// amounts, "all"/"half", percentages, and k/m suffixes. Amounts are truncated
// to the points precision of two decimals.
func ParseBet(betStr string, balance decimal.Decimal) (decimal.Decimal, error) {
	betStr = strings.TrimSpace(strings.ToLower(betStr))
	betStr = strings.ReplaceAll(betStr, ",", "")
	betStr = strings.ReplaceAll(betStr, "_", "")

	switch betStr {
	case "all", "allin", "max":
		return balance.Truncate(2), nil
	case "half":
		return balance.Div(decimal.NewFromInt(2)).RoundFloor(2), nil
	}

	if strings.HasSuffix(betStr, "%") {
		percentStr := strings.TrimSuffix(betStr, "%")
		percent, err := decimal.NewFromString(percentStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: bad percentage %q", ErrInvalidAmount, betStr)
		}
		if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidAmount)
		}
		return balance.Mul(percent).Div(decimal.NewFromInt(100)).RoundFloor(2), nil
	}

	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(betStr, "k") {
		multiplier = decimal.NewFromInt(1000)
		betStr = strings.TrimSuffix(betStr, "k")
	} else if strings.HasSuffix(betStr, "m") {
		multiplier = decimal.NewFromInt(1_000_000)
		betStr = strings.TrimSuffix(betStr, "m")
	}

	bet, err := decimal.NewFromString(betStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, betStr)
	}

	bet = bet.Mul(multiplier).Truncate(2)
	if !bet.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: bet must be positive", ErrInvalidAmount)
	}
	return bet, nil
}

// PlaceBet validates a raw bet string and atomically debits the stake,
// returning the receipt settlement works from. The bet-placed event is
// fire-and-forget; a delivery failure never rolls back the debit.
func PlaceBet(userID int64, game string, rawAmount string) (*BetReceipt, error) {
	acct, err := GetCachedAccount(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	stake, err := ParseBet(rawAmount, acct.Points)
	if err != nil {
		return nil, err
	}

	if _, err := Debit(userID, stake); err != nil {
		return nil, err
	}

	receipt := &BetReceipt{
		UserID:   userID,
		Game:     game,
		Stake:    stake,
		PlacedAt: time.Now(),
	}

	MetricBetsPlaced.WithLabelValues(game).Inc()
	Events.BetPlaced(receipt)

	return receipt, nil
}

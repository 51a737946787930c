package utils

import "github.com/shopspring/decimal"

// General Configuration
const (
	BotColor     = 0x5865F2
	WinColor     = 0x2ECC71
	LossColor    = 0xE74C3C
	NeutralColor = 0xF39C12
	PlayingColor = 0x3498DB
)

// Economy & XP
const (
	StartingPoints = "1000.00"
	XPPerProfit    = 2
	PointsEmoji    = "🪙"
)

// Round lifecycle
const (
	RoundTimeoutMinutes   = 10
	RequiredConfirmations = 2
	HistoryWindow         = 50
)

// CurrencyConfig describes a supported deposit asset.
type CurrencyConfig struct {
	Name   string
	Symbol string
	// PointRate is the amount of crypto equal to one point.
	PointRate decimal.Decimal
	// BaseUnits is the number of base units (sats, litoshis) per whole coin.
	BaseUnits decimal.Decimal
}

// Currencies lists the deposit assets the bot accepts.
var Currencies = map[string]CurrencyConfig{
	"BTC": {
		Name:      "Bitcoin",
		Symbol:    "₿",
		PointRate: decimal.RequireFromString("0.00000024"),
		BaseUnits: decimal.NewFromInt(100_000_000),
	},
	"LTC": {
		Name:      "Litecoin",
		Symbol:    "Ł",
		PointRate: decimal.RequireFromString("0.00008"),
		BaseUnits: decimal.NewFromInt(100_000_000),
	},
}

// Ranks with XP requirements and colors
type Rank struct {
	Name       string
	Icon       string
	XPRequired int64
	Color      int
}

var Ranks = []Rank{
	{"Novice", "🥉", 0, 0xcd7f32},
	{"Apprentice", "🥈", 10000, 0xc0c0c0},
	{"Gambler", "🥇", 40000, 0xffd700},
	{"High Roller", "💰", 125000, 0x22a7f0},
	{"Card Shark", "🦈", 350000, 0x1f3a93},
	{"Pit Boss", "👑", 650000, 0x9b59b6},
	{"Legend", "🌟", 2000000, 0xf1c40f},
	{"Casino Elite", "💎", 4500000, 0x1abc9c},
}

// GetRank returns the rank matching a total XP amount plus the XP needed for the next rank.
func GetRank(totalXP int64) (Rank, int64) {
	for i := len(Ranks) - 1; i >= 0; i-- {
		if totalXP >= Ranks[i].XPRequired {
			var nextXP int64
			if i < len(Ranks)-1 {
				nextXP = Ranks[i+1].XPRequired
			} else {
				nextXP = totalXP
			}
			return Ranks[i], nextXP
		}
	}
	return Ranks[0], Ranks[1].XPRequired
}

// UI Messages
const (
	GameTimeoutMessage = "Your game timed out. Any accrued winnings were cashed out automatically."
)

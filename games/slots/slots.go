package slots

import (
	"errors"
	"fmt"
	"strings"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const gameName = "slots"

const (
	gridRows = 3
	gridCols = 5
)

// lineDivisor normalizes the summed line multipliers so the overall return
// stays below 1 despite eight paylines.
var lineDivisor = decimal.NewFromInt(8)

// symbols is the weighted reel strip. Weights sum to 100.
var symbols = []struct {
	Glyph  string
	Weight int
}{
	{"🍒", 20},
	{"🍋", 18},
	{"🍊", 16},
	{"🍉", 14},
	{"🔔", 12},
	{"⭐", 9},
	{"🍀", 6},
	{"💎", 4},
	{"🎰", 1},
}

// paytable maps a symbol to its multiplier for 3, 4, and 5 matches on a row.
var paytable = map[string][3]decimal.Decimal{
	"🍒": {decimal.NewFromInt(2), decimal.NewFromInt(4), decimal.NewFromInt(10)},
	"🍋": {decimal.NewFromInt(2), decimal.NewFromInt(5), decimal.NewFromInt(12)},
	"🍊": {decimal.NewFromInt(3), decimal.NewFromInt(6), decimal.NewFromInt(15)},
	"🍉": {decimal.NewFromInt(3), decimal.NewFromInt(8), decimal.NewFromInt(20)},
	"🔔": {decimal.NewFromInt(4), decimal.NewFromInt(10), decimal.NewFromInt(30)},
	"⭐":  {decimal.NewFromInt(5), decimal.NewFromInt(15), decimal.NewFromInt(50)},
	"🍀": {decimal.NewFromInt(8), decimal.NewFromInt(25), decimal.NewFromInt(80)},
	"💎": {decimal.NewFromInt(12), decimal.NewFromInt(40), decimal.NewFromInt(150)},
	"🎰": {decimal.NewFromInt(25), decimal.NewFromInt(75), decimal.NewFromInt(250)},
}

// SampleSymbol draws one symbol from the weighted strip.
func SampleSymbol(src utils.RandSource) string {
	roll := src.Intn(100)
	acc := 0
	for _, s := range symbols {
		acc += s.Weight
		if roll < acc {
			return s.Glyph
		}
	}
	return symbols[0].Glyph
}

// Grid is a 3x5 spin outcome, indexed [row][col].
type Grid [gridRows][gridCols]string

// SpinGrid fills a grid from the weighted strip.
func SpinGrid(src utils.RandSource) Grid {
	var g Grid
	for r := 0; r < gridRows; r++ {
		for c := 0; c < gridCols; c++ {
			g[r][c] = SampleSymbol(src)
		}
	}
	return g
}

// LineHit is one winning payline.
type LineHit struct {
	Line       string
	Symbol     string
	Count      int
	Multiplier decimal.Decimal
}

// EvaluateGrid scores the three rows and five columns. A row pays on its most
// frequent symbol appearing at least three times; a column pays when all three
// cells match.
func EvaluateGrid(g Grid) []LineHit {
	var hits []LineHit

	for r := 0; r < gridRows; r++ {
		counts := lo.CountValues(g[r][:])
		best, bestCount := "", 0
		for glyph, count := range counts {
			if count > bestCount {
				best, bestCount = glyph, count
			}
		}
		if bestCount >= 3 {
			hits = append(hits, LineHit{
				Line:       fmt.Sprintf("row %d", r+1),
				Symbol:     best,
				Count:      bestCount,
				Multiplier: paytable[best][bestCount-3],
			})
		}
	}

	for c := 0; c < gridCols; c++ {
		if g[0][c] == g[1][c] && g[1][c] == g[2][c] {
			hits = append(hits, LineHit{
				Line:       fmt.Sprintf("column %d", c+1),
				Symbol:     g[0][c],
				Count:      3,
				Multiplier: paytable[g[0][c]][0],
			})
		}
	}

	return hits
}

// TotalMultiplier sums the line hits and normalizes by the line divisor.
func TotalMultiplier(hits []LineHit) decimal.Decimal {
	sum := lo.Reduce(hits, func(acc decimal.Decimal, h LineHit, _ int) decimal.Decimal {
		return acc.Add(h.Multiplier)
	}, decimal.Zero)
	return sum.Div(lineDivisor).Round(4)
}

// Result is a settled slots round.
type Result struct {
	Grid       Grid
	Hits       []LineHit
	Stake      decimal.Decimal
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Play runs one complete spin.
func Play(userID int64, rawBet string) (*Result, error) {
	return play(userID, rawBet, utils.NewTimeSource(), utils.Curses)
}

func play(userID int64, rawBet string, src utils.RandSource, policy utils.LossPolicy) (*Result, error) {
	receipt, err := utils.PlaceBet(userID, gameName, rawBet)
	if err != nil {
		return nil, err
	}

	grid := SpinGrid(src)
	if policy.Consume(userID) {
		grid = scrubWins(grid, src)
		utils.Events.CurseTriggered(userID, gameName)
	}

	hits := EvaluateGrid(grid)
	settlement := utils.Settle(receipt, TotalMultiplier(hits))
	balance, err := utils.ApplySettlement(receipt, settlement)
	if err != nil {
		return nil, err
	}

	return &Result{Grid: grid, Hits: hits, Stake: receipt.Stake, Settlement: settlement, Balance: balance}, nil
}

// scrubWins respins until the grid pays nothing, bounded so a pathological
// source cannot loop forever.
func scrubWins(g Grid, src utils.RandSource) Grid {
	for attempt := 0; attempt < 50; attempt++ {
		if len(EvaluateGrid(g)) == 0 {
			return g
		}
		g = SpinGrid(src)
	}
	// Fall back to a hand-built dead grid.
	dead := [gridCols]string{"🍒", "🍋", "🍊", "🍉", "🔔"}
	for r := 0; r < gridRows; r++ {
		for c := 0; c < gridCols; c++ {
			g[r][c] = dead[(c+r)%gridCols]
		}
	}
	return g
}

func renderGrid(g Grid) string {
	var sb strings.Builder
	for r := 0; r < gridRows; r++ {
		sb.WriteString(strings.Join(g[r][:], " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RegisterSlotsCommand registers the /slots command
func RegisterSlotsCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "slots",
		Description: "Spin the five-reel slot machine.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Bet amount (e.g., 500, 10k, half, all)",
				Required:    true,
			},
		},
	}
}

// HandleSlotsCommand handles the /slots slash command
func HandleSlotsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "bet" {
			betStr = strings.TrimSpace(opt.StringValue())
		}
	}

	result, err := Play(userID, betStr)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, errorEmbed(userID, err), nil, true)
		return
	}

	embed := utils.ResultEmbed("Slots", result.Stake, result.Settlement.Payout, result.Balance, result.Settlement.Class)
	desc := renderGrid(result.Grid)
	if len(result.Hits) > 0 {
		lines := lo.Map(result.Hits, func(h LineHit, _ int) string {
			return fmt.Sprintf("%s x%d on %s (x%s)", h.Symbol, h.Count, h.Line, h.Multiplier.StringFixed(0))
		})
		desc += "\n" + strings.Join(lines, "\n")
	}
	embed.Description = desc + "\n" + embed.Description
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
}

func errorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Slots",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Slots", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Slots", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Slots", "Something went wrong. Try again.", utils.LossColor)
	}
}

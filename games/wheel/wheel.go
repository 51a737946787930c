package wheel

import (
	"errors"
	"fmt"
	"strings"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

const gameName = "wheel"

// houseFloorRate is the fixed-probability forced-gray override applied before
// the weighted draw.
const houseFloorRate = 0.04

// Color is a wheel segment.
type Color string

const (
	Gray   Color = "gray"
	Yellow Color = "yellow"
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
)

// segments is the weighted distribution the wheel spins over. Weights sum to 100.
var segments = []struct {
	Color  Color
	Weight int
}{
	{Gray, 50},
	{Yellow, 25},
	{Red, 15},
	{Blue, 7},
	{Green, 3},
}

var multipliers = map[Color]decimal.Decimal{
	Gray:   decimal.Zero,
	Yellow: decimal.RequireFromString("1.5"),
	Red:    decimal.RequireFromString("2"),
	Blue:   decimal.RequireFromString("4"),
	Green:  decimal.RequireFromString("10"),
}

var emojis = map[Color]string{
	Gray: "⬜", Yellow: "🟨", Red: "🟥", Blue: "🟦", Green: "🟩",
}

// SampleColor draws a color from the declared weights only, with no house
// floor applied.
func SampleColor(src utils.RandSource) Color {
	roll := src.Intn(100)
	acc := 0
	for _, seg := range segments {
		acc += seg.Weight
		if roll < acc {
			return seg.Color
		}
	}
	return Gray
}

// Spin produces the landing color. A consumed forced-loss flag or the 4%
// house floor both land on gray before the weighted draw happens.
func Spin(src utils.RandSource, forceLoss bool) Color {
	if forceLoss {
		return Gray
	}
	if src.Float64() < houseFloorRate {
		return Gray
	}
	return SampleColor(src)
}

// Multiplier returns the payout multiplier for a color.
func Multiplier(c Color) decimal.Decimal {
	return multipliers[c]
}

// Result is a settled wheel round.
type Result struct {
	Landed     Color
	Stake      decimal.Decimal
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Play runs one complete round: debit, spin, settle, credit.
func Play(userID int64, rawBet string) (*Result, error) {
	return play(userID, rawBet, utils.NewTimeSource(), utils.Curses)
}

func play(userID int64, rawBet string, src utils.RandSource, policy utils.LossPolicy) (*Result, error) {
	receipt, err := utils.PlaceBet(userID, gameName, rawBet)
	if err != nil {
		return nil, err
	}

	forced := policy.Consume(userID)
	if forced {
		utils.Events.CurseTriggered(userID, gameName)
	}

	landed := Spin(src, forced)
	settlement := utils.Settle(receipt, Multiplier(landed))
	balance, err := utils.ApplySettlement(receipt, settlement)
	if err != nil {
		return nil, err
	}

	return &Result{Landed: landed, Stake: receipt.Stake, Settlement: settlement, Balance: balance}, nil
}

// RegisterWheelCommand registers the /wheel command
func RegisterWheelCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "wheel",
		Description: "Spin the wheel of colors.",
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

// HandleWheelCommand handles the /wheel slash command
func HandleWheelCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
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

	embed := utils.ResultEmbed("Wheel", result.Stake, result.Settlement.Payout, result.Balance, result.Settlement.Class)
	embed.Description = fmt.Sprintf("The wheel stopped on %s **%s** (x%s).\n%s",
		emojis[result.Landed], result.Landed, result.Settlement.Multiplier.StringFixed(2), embed.Description)
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
}

func errorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Wheel",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Wheel", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Wheel", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Wheel", "Something went wrong. Try again.", utils.LossColor)
	}
}

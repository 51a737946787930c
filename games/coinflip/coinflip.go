package coinflip

import (
	"errors"
	"fmt"
	"strings"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

const gameName = "coinflip"

// Side is a coin face.
type Side string

const (
	Heads Side = "heads"
	Tails Side = "tails"
)

var winMultiplier = decimal.NewFromInt(2)

// Flip samples a uniform coin face.
func Flip(src utils.RandSource) Side {
	if src.Intn(2) == 0 {
		return Heads
	}
	return Tails
}

// Opposite returns the other face.
func Opposite(s Side) Side {
	if s == Heads {
		return Tails
	}
	return Heads
}

// Result is a settled coinflip round.
type Result struct {
	Chosen     Side
	Landed     Side
	Stake      decimal.Decimal
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Play runs one complete round: debit, sample, settle, credit.
func Play(userID int64, rawBet string, chosen Side) (*Result, error) {
	return play(userID, rawBet, chosen, utils.NewTimeSource(), utils.Curses)
}

func play(userID int64, rawBet string, chosen Side, src utils.RandSource, policy utils.LossPolicy) (*Result, error) {
	if chosen != Heads && chosen != Tails {
		return nil, utils.ErrInvalidAmount
	}

	receipt, err := utils.PlaceBet(userID, gameName, rawBet)
	if err != nil {
		return nil, err
	}

	landed := Flip(src)
	if policy.Consume(userID) {
		landed = Opposite(chosen)
		utils.Events.CurseTriggered(userID, gameName)
	}

	multiplier := decimal.Zero
	if landed == chosen {
		multiplier = winMultiplier
	}

	settlement := utils.Settle(receipt, multiplier)
	balance, err := utils.ApplySettlement(receipt, settlement)
	if err != nil {
		return nil, err
	}

	return &Result{Chosen: chosen, Landed: landed, Stake: receipt.Stake, Settlement: settlement, Balance: balance}, nil
}

// RegisterCoinflipCommand registers the /coinflip command
func RegisterCoinflipCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "coinflip",
		Description: "Flip a coin, double or nothing.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Bet amount (e.g., 500, 10k, half, all)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "side",
				Description: "Heads or tails",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Heads", Value: string(Heads)},
					{Name: "Tails", Value: string(Tails)},
				},
			},
		},
	}
}

// HandleCoinflipCommand handles the /coinflip slash command
func HandleCoinflipCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr, sideStr string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "bet":
			betStr = strings.TrimSpace(opt.StringValue())
		case "side":
			sideStr = opt.StringValue()
		}
	}

	result, err := Play(userID, betStr, Side(sideStr))
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, playErrorEmbed(userID, err), nil, true)
		return
	}

	embed := utils.ResultEmbed("Coinflip", result.Stake, result.Settlement.Payout, result.Balance, result.Settlement.Class)
	embed.Description = fmt.Sprintf("The coin landed on **%s**. You called **%s**.\n%s", result.Landed, result.Chosen, embed.Description)
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
}

func playErrorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Coinflip",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Coinflip", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Coinflip", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Coinflip", "Something went wrong. Try again.", utils.LossColor)
	}
}

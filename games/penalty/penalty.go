package penalty

import (
	"errors"
	"fmt"
	"strings"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

const gameName = "penalty"

// Role is which side of the shootout the player takes.
type Role string

const (
	Striker Role = "striker"
	Keeper  Role = "keeper"
)

// Direction is a shot or dive target.
type Direction string

const (
	Left   Direction = "left"
	Center Direction = "center"
	Right  Direction = "right"
)

var directions = []Direction{Left, Center, Right}

var dirEmojis = map[Direction]string{Left: "⬅️", Center: "⏺️", Right: "➡️"}

// Payouts per role. The keeper pays more because matching one of three
// directions is the harder outcome.
var (
	strikerMultiplier = decimal.RequireFromString("1.45")
	keeperMultiplier  = decimal.RequireFromString("2.85")
)

// PickDirection samples a uniform opponent direction.
func PickDirection(src utils.RandSource) Direction {
	return directions[src.Intn(len(directions))]
}

// Wins reports whether the player's pick beats the opponent's for the given
// role. The striker scores on a mismatch, the keeper saves on a match.
func Wins(role Role, player, opponent Direction) bool {
	if role == Striker {
		return player != opponent
	}
	return player == opponent
}

// RoleMultiplier returns the win multiplier for a role.
func RoleMultiplier(role Role) decimal.Decimal {
	if role == Keeper {
		return keeperMultiplier
	}
	return strikerMultiplier
}

// Result is a settled penalty round.
type Result struct {
	Role       Role
	Player     Direction
	Opponent   Direction
	Stake      decimal.Decimal
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Play runs one complete shootout round.
func Play(userID int64, rawBet string, role Role, player Direction) (*Result, error) {
	return play(userID, rawBet, role, player, utils.NewTimeSource(), utils.Curses)
}

func play(userID int64, rawBet string, role Role, player Direction, src utils.RandSource, policy utils.LossPolicy) (*Result, error) {
	if role != Striker && role != Keeper {
		return nil, utils.ErrInvalidAmount
	}
	if player != Left && player != Center && player != Right {
		return nil, utils.ErrInvalidAmount
	}

	receipt, err := utils.PlaceBet(userID, gameName, rawBet)
	if err != nil {
		return nil, err
	}

	opponent := PickDirection(src)
	if policy.Consume(userID) {
		opponent = losingOpponent(role, player, opponent)
		utils.Events.CurseTriggered(userID, gameName)
	}

	multiplier := decimal.Zero
	if Wins(role, player, opponent) {
		multiplier = RoleMultiplier(role)
	}

	settlement := utils.Settle(receipt, multiplier)
	balance, err := utils.ApplySettlement(receipt, settlement)
	if err != nil {
		return nil, err
	}

	return &Result{
		Role:       role,
		Player:     player,
		Opponent:   opponent,
		Stake:      receipt.Stake,
		Settlement: settlement,
		Balance:    balance,
	}, nil
}

// losingOpponent returns an opponent direction that defeats the player. For a
// striker that is the same direction; for a keeper, any other one. The sampled
// direction is reused when it already loses so forced rounds stay varied.
func losingOpponent(role Role, player, sampled Direction) Direction {
	if role == Striker {
		return player
	}
	if sampled != player {
		return sampled
	}
	for _, d := range directions {
		if d != player {
			return d
		}
	}
	return sampled
}

// RegisterPenaltyCommand registers the /penalty command
func RegisterPenaltyCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "penalty",
		Description: "Take or save a penalty kick.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Bet amount (e.g., 500, 10k, half, all)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "role",
				Description: "Shoot or keep goal",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Striker (1.45x)", Value: string(Striker)},
					{Name: "Keeper (2.85x)", Value: string(Keeper)},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "direction",
				Description: "Where to shoot or dive",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Left", Value: string(Left)},
					{Name: "Center", Value: string(Center)},
					{Name: "Right", Value: string(Right)},
				},
			},
		},
	}
}

// HandlePenaltyCommand handles the /penalty slash command
func HandlePenaltyCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr, roleStr, dirStr string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "bet":
			betStr = strings.TrimSpace(opt.StringValue())
		case "role":
			roleStr = opt.StringValue()
		case "direction":
			dirStr = opt.StringValue()
		}
	}

	result, err := Play(userID, betStr, Role(roleStr), Direction(dirStr))
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, errorEmbed(userID, err), nil, true)
		return
	}

	var action string
	if result.Role == Striker {
		action = fmt.Sprintf("You shot %s **%s**, the keeper dove %s **%s**.",
			dirEmojis[result.Player], result.Player, dirEmojis[result.Opponent], result.Opponent)
	} else {
		action = fmt.Sprintf("You dove %s **%s**, the striker shot %s **%s**.",
			dirEmojis[result.Player], result.Player, dirEmojis[result.Opponent], result.Opponent)
	}

	embed := utils.ResultEmbed("Penalty", result.Stake, result.Settlement.Payout, result.Balance, result.Settlement.Class)
	embed.Description = action + "\n" + embed.Description
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
}

func errorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Penalty",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Penalty", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Penalty", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Penalty", "Something went wrong. Try again.", utils.LossColor)
	}
}

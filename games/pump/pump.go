package pump

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const gameName = "pump"

const (
	houseEdge = 0.97
	maxPumps  = 15

	// Pop chance grows 10% per pump and never exceeds this cap.
	popGrowth = 1.1
	popCap    = 0.95
)

// Difficulty sets the base pop chance of the balloon.
type Difficulty string

const (
	Easy    Difficulty = "easy"
	Medium  Difficulty = "medium"
	Hard    Difficulty = "hard"
	Extreme Difficulty = "extreme"
)

var baseRates = map[Difficulty]float64{
	Easy:    0.25,
	Medium:  0.50,
	Hard:    0.70,
	Extreme: 0.85,
}

// ladders holds the precomputed cash-out multiplier per pump count, one
// ladder per difficulty. Index 0 is the zero-pump floor of 1.00.
var ladders = map[Difficulty][]decimal.Decimal{}

func init() {
	for diff := range baseRates {
		ladder := make([]decimal.Decimal, maxPumps+1)
		ladder[0] = decimal.NewFromInt(1)
		survive := 1.0
		for k := 1; k <= maxPumps; k++ {
			survive *= 1 - PopChance(diff, k-1)
			ladder[k] = decimal.NewFromFloat(houseEdge / survive).Round(2)
		}
		ladders[diff] = ladder
	}
}

// PopChance returns the probability the balloon pops on the next pump, given
// how many pumps already succeeded.
func PopChance(diff Difficulty, pumps int) float64 {
	p := baseRates[diff]
	for i := 0; i < pumps; i++ {
		p *= popGrowth
	}
	if p > popCap {
		return popCap
	}
	return p
}

// LadderMultiplier returns the cash-out multiplier after the given number of
// successful pumps. Fair odds against survival, shaded by the house edge.
func LadderMultiplier(diff Difficulty, pumps int) decimal.Decimal {
	ladder := ladders[diff]
	if pumps < 0 {
		return ladder[0]
	}
	if pumps >= len(ladder) {
		return ladder[len(ladder)-1]
	}
	return ladder[pumps]
}

// State is the balloon of one pump round.
type State struct {
	mu     sync.Mutex
	diff   Difficulty
	pumps  int
	forced bool

	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// Open debits the stake and inflates a fresh balloon.
func Open(userID int64, rawBet string, diff Difficulty) (*utils.Round, error) {
	return open(userID, rawBet, diff, utils.Curses)
}

func open(userID int64, rawBet string, diff Difficulty, policy utils.LossPolicy) (*utils.Round, error) {
	if _, ok := baseRates[diff]; !ok {
		return nil, utils.ErrInvalidAmount
	}

	round, err := utils.Rounds.Open(userID, gameName, nil)
	if err != nil {
		return nil, err
	}

	receipt, err := utils.PlaceBet(userID, gameName, rawBet)
	if err != nil {
		utils.Rounds.Close(round)
		return nil, err
	}
	round.Receipt = receipt
	round.Stake = receipt.Stake

	forced := policy.Consume(userID)
	if forced {
		utils.Events.CurseTriggered(userID, gameName)
	}

	round.State = &State{diff: diff, forced: forced}
	return round, nil
}

// Outcome is the result of a pump or cash-out action.
type Outcome struct {
	Popped     bool
	Finished   bool
	Pumps      int
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Pump inflates once. A pop settles the round as a loss; reaching the pump
// cap cashes out automatically.
func Pump(round *utils.Round) (*Outcome, error) {
	return pump(round, utils.NewTimeSource())
}

func pump(round *utils.Round, src utils.RandSource) (*Outcome, error) {
	state := round.State.(*State)
	state.mu.Lock()

	popped := src.Float64() < PopChance(state.diff, state.pumps)
	if state.forced {
		popped = true
		state.forced = false
	}

	if popped {
		pumps := state.pumps
		state.mu.Unlock()

		if !round.TryResolve(utils.RoundResolved) {
			return nil, utils.ErrGameInProgress
		}
		settlement := utils.Settle(round.Receipt, decimal.Zero)
		balance, err := utils.ApplySettlement(round.Receipt, settlement)
		utils.Rounds.Close(round)
		if err != nil {
			return nil, err
		}
		return &Outcome{Popped: true, Finished: true, Pumps: pumps, Settlement: settlement, Balance: balance}, nil
	}

	state.pumps++
	atCap := state.pumps == maxPumps
	pumps := state.pumps
	state.mu.Unlock()

	if atCap {
		return Cashout(round)
	}
	return &Outcome{Pumps: pumps}, nil
}

// Cashout settles at the current ladder multiplier. At least one successful
// pump is required.
func Cashout(round *utils.Round) (*Outcome, error) {
	state := round.State.(*State)
	state.mu.Lock()
	pumps := state.pumps
	diff := state.diff
	state.mu.Unlock()

	if pumps < 1 {
		return nil, utils.ErrInvalidAmount
	}
	if !round.TryResolve(utils.RoundResolved) {
		return nil, utils.ErrGameInProgress
	}

	settlement := utils.Settle(round.Receipt, LadderMultiplier(diff, pumps))
	balance, err := utils.ApplySettlement(round.Receipt, settlement)
	utils.Rounds.Close(round)
	if err != nil {
		return nil, err
	}
	return &Outcome{Finished: true, Pumps: pumps, Settlement: settlement, Balance: balance}, nil
}

// Setup installs the timeout policy: a pumped balloon cashes out where it
// stands, an untouched one is forfeited.
func Setup() {
	utils.Rounds.RegisterExpiryHandler(gameName, func(round *utils.Round) {
		state, ok := round.State.(*State)
		if !ok || round.Receipt == nil {
			return
		}

		state.mu.Lock()
		pumps := state.pumps
		diff := state.diff
		state.mu.Unlock()

		multiplier := decimal.Zero
		if pumps > 0 {
			multiplier = LadderMultiplier(diff, pumps)
		}
		settlement := utils.Settle(round.Receipt, multiplier)
		if _, err := utils.ApplySettlement(round.Receipt, settlement); err != nil {
			utils.Log.Error("failed to settle expired pump round",
				zap.String("round_id", round.ID), zap.Error(err))
		}

		if state.session != nil && state.interaction != nil {
			embeds := []*discordgo.MessageEmbed{utils.GameTimeoutEmbed()}
			empty := []discordgo.MessageComponent{}
			_, _ = state.session.InteractionResponseEdit(state.interaction, &discordgo.WebhookEdit{
				Embeds: &embeds, Components: &empty,
			})
		}
	})
}

func sessionComponents(round *utils.Round, pumps int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: fmt.Sprintf("pump:%s:pump", round.ID),
				Style:    discordgo.PrimaryButton,
				Label:    "Pump",
				Emoji:    &discordgo.ComponentEmoji{Name: "🎈"},
			},
			discordgo.Button{
				CustomID: fmt.Sprintf("pump:%s:cashout", round.ID),
				Style:    discordgo.SuccessButton,
				Label:    "Cash out",
				Disabled: pumps < 1,
			},
		}},
	}
}

func sessionEmbed(round *utils.Round) *discordgo.MessageEmbed {
	state := round.State.(*State)
	state.mu.Lock()
	pumps := state.pumps
	diff := state.diff
	state.mu.Unlock()

	embed := utils.CreateBrandedEmbed("Pump",
		fmt.Sprintf("🎈 **%d** pumps in on **%s**. Pop chance next pump: **%.0f%%**.",
			pumps, diff, PopChance(diff, pumps)*100),
		utils.PlayingColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Bet", Value: fmt.Sprintf("%s %s", utils.FormatPoints(round.Stake), utils.PointsEmoji), Inline: true},
		{Name: "Current", Value: fmt.Sprintf("x%s", LadderMultiplier(diff, pumps).StringFixed(2)), Inline: true},
		{Name: "Next", Value: fmt.Sprintf("x%s", LadderMultiplier(diff, pumps+1).StringFixed(2)), Inline: true},
	}
	return embed
}

// RegisterPumpCommand registers the /pump command
func RegisterPumpCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "pump",
		Description: "Pump the balloon, cash out before it pops.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Bet amount (e.g., 500, 10k, half, all)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "difficulty",
				Description: "How fragile the balloon is (default easy)",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Easy", Value: string(Easy)},
					{Name: "Medium", Value: string(Medium)},
					{Name: "Hard", Value: string(Hard)},
					{Name: "Extreme", Value: string(Extreme)},
				},
			},
		},
	}
}

// HandlePumpCommand handles the /pump slash command
func HandlePumpCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr string
	diff := Easy
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "bet":
			betStr = strings.TrimSpace(opt.StringValue())
		case "difficulty":
			diff = Difficulty(opt.StringValue())
		}
	}

	round, err := Open(userID, betStr, diff)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, openErrorEmbed(userID, err), nil, true)
		return
	}

	state := round.State.(*State)
	state.mu.Lock()
	state.session = s
	state.interaction = i.Interaction
	state.mu.Unlock()

	_ = utils.SendInteractionResponse(s, i, sessionEmbed(round), sessionComponents(round, 0), false)
}

// HandlePumpComponent handles button presses. customID: pump:<roundID>:<action>
func HandlePumpComponent(s *discordgo.Session, i *discordgo.InteractionCreate, parts []string) {
	if len(parts) != 3 {
		return
	}
	userID := utils.InteractionUserID(i)

	round, ok := utils.Rounds.Get(userID, gameName)
	if !ok || round.ID != parts[1] {
		_ = utils.AcknowledgeComponentInteraction(s, i)
		_ = utils.TryEphemeralFollowup(s, i, "This balloon belongs to someone else's game.")
		return
	}

	switch parts[2] {
	case "pump":
		outcome, err := Pump(round)
		if err != nil {
			_ = utils.AcknowledgeComponentInteraction(s, i)
			return
		}
		if !outcome.Finished {
			_ = utils.UpdateComponentInteraction(s, i, sessionEmbed(round), sessionComponents(round, outcome.Pumps))
			return
		}
		_ = utils.UpdateComponentInteraction(s, i, finishedEmbed(round, outcome), nil)
	case "cashout":
		outcome, err := Cashout(round)
		if err != nil {
			_ = utils.AcknowledgeComponentInteraction(s, i)
			return
		}
		_ = utils.UpdateComponentInteraction(s, i, finishedEmbed(round, outcome), nil)
	}
}

func finishedEmbed(round *utils.Round, outcome *Outcome) *discordgo.MessageEmbed {
	embed := utils.ResultEmbed("Pump", round.Stake, outcome.Settlement.Payout, outcome.Balance, outcome.Settlement.Class)
	if outcome.Popped {
		embed.Description = fmt.Sprintf("💥 The balloon popped after **%d** pumps.\n%s", outcome.Pumps, embed.Description)
	} else {
		embed.Description = fmt.Sprintf("Cashed out at **%d** pumps, x%s.\n%s",
			outcome.Pumps, outcome.Settlement.Multiplier.StringFixed(2), embed.Description)
	}
	return embed
}

// TryCashout settles the user's active pump round if one exists.
func TryCashout(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	userID := utils.InteractionUserID(i)
	round, ok := utils.Rounds.Get(userID, gameName)
	if !ok {
		return false
	}

	outcome, err := Cashout(round)
	if err != nil {
		msg := "That round already finished."
		if errors.Is(err, utils.ErrInvalidAmount) {
			msg = "Pump at least once before cashing out."
		}
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Pump", msg, utils.NeutralColor), nil, true)
		return true
	}

	_ = utils.SendInteractionResponse(s, i, finishedEmbed(round, outcome), nil, false)
	return true
}

func openErrorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrGameInProgress):
		return utils.CreateBrandedEmbed("Pump", "You already have a balloon in play. Cash it out first.", utils.NeutralColor)
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Pump",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Pump", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Pump", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Pump", "Something went wrong. Try again.", utils.LossColor)
	}
}

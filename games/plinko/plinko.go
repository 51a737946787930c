package plinko

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

const gameName = "plinko"

// driftPerOffset is the per-peg probability bias pushing the ball further from
// center, which feeds the edge slots.
const driftPerOffset = 0.03

// tables maps a board height to its slot multipliers. Index 0 is the far-left
// slot.
var tables = map[int][]decimal.Decimal{
	8: decs("5.6", "2.1", "1.1", "1", "0.5", "1", "1.1", "2.1", "5.6"),
	12: decs("8.1", "3", "1.6", "1", "0.7", "0.7", "0.5",
		"0.7", "0.7", "1", "1.6", "3", "8.1"),
	16: decs("16", "9", "2", "1.4", "1.1", "1", "0.5", "0.3", "0.2",
		"0.3", "0.5", "1", "1.1", "1.4", "2", "9", "16"),
}

func decs(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

// DropBall walks the ball through rows+2 peg ranks and maps the final
// horizontal offset onto a slot index in [0, rows].
func DropBall(src utils.RandSource, rows int) int {
	steps := rows + 2
	pos := 0
	for i := 0; i < steps; i++ {
		pRight := 0.5 + driftPerOffset*float64(pos)
		if pRight < 0.05 {
			pRight = 0.05
		} else if pRight > 0.95 {
			pRight = 0.95
		}
		if src.Float64() < pRight {
			pos++
		} else {
			pos--
		}
	}

	// pos ranges over [-steps, steps]; rescale onto the table.
	idx := int(float64(pos+steps) / float64(2*steps) * float64(rows+1))
	if idx < 0 {
		idx = 0
	} else if idx > rows {
		idx = rows
	}
	return idx
}

// worstSlot returns the index of the lowest-paying slot.
func worstSlot(rows int) int {
	table := tables[rows]
	worst := 0
	for i, m := range table {
		if m.LessThan(table[worst]) {
			worst = i
		}
	}
	return worst
}

// State is the running accumulator of one plinko session. Each drop stakes the
// same amount; winnings accrue and pay out as one settlement at cash-out.
type State struct {
	mu          sync.Mutex
	rows        int
	stake       decimal.Decimal
	drops       int
	totalStaked decimal.Decimal
	accrued     decimal.Decimal
	lastSlot    int
	forced      bool

	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// Open debits the first stake and drops the first ball.
func Open(userID int64, rawBet string, rows int) (*utils.Round, error) {
	return open(userID, rawBet, rows, utils.NewTimeSource(), utils.Curses)
}

func open(userID int64, rawBet string, rows int, src utils.RandSource, policy utils.LossPolicy) (*utils.Round, error) {
	if _, ok := tables[rows]; !ok {
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

	state := &State{
		rows:   rows,
		stake:  receipt.Stake,
		forced: forced,
	}
	round.State = state

	if err := drop(round, src); err != nil {
		return nil, err
	}
	return round, nil
}

// DropAgain debits one more stake and drops another ball into the same board.
func DropAgain(round *utils.Round) error {
	return dropAgain(round, utils.NewTimeSource())
}

func dropAgain(round *utils.Round, src utils.RandSource) error {
	// The expiry sweep resolves the round before it unregisters it, so a
	// racing click can still find it via Get. A settled round must never
	// accept another stake: that debit would have no path back to a payout.
	if round.Status() != utils.RoundAwaitingAction {
		return utils.ErrGameInProgress
	}

	state := round.State.(*State)

	state.mu.Lock()
	stake := state.stake
	state.mu.Unlock()

	if _, err := utils.PlaceBet(round.UserID, gameName, stake.String()); err != nil {
		return err
	}
	return drop(round, src)
}

func drop(round *utils.Round, src utils.RandSource) error {
	state := round.State.(*State)
	state.mu.Lock()
	defer state.mu.Unlock()

	slot := DropBall(src, state.rows)
	if state.forced {
		slot = worstSlot(state.rows)
		state.forced = false
	}

	win := state.stake.Mul(tables[state.rows][slot]).Round(2)
	state.drops++
	state.totalStaked = state.totalStaked.Add(state.stake)
	state.accrued = state.accrued.Add(win)
	state.lastSlot = slot
	return nil
}

// Outcome is a settled plinko session.
type Outcome struct {
	Drops       int
	TotalStaked decimal.Decimal
	Settlement  utils.Settlement
	Balance     decimal.Decimal
}

// Cashout pays the accrued winnings as one settlement against everything
// staked across the session.
func Cashout(round *utils.Round) (*Outcome, error) {
	if !round.TryResolve(utils.RoundResolved) {
		return nil, utils.ErrGameInProgress
	}
	outcome, err := settle(round)
	utils.Rounds.Close(round)
	return outcome, err
}

func settle(round *utils.Round) (*Outcome, error) {
	state := round.State.(*State)
	state.mu.Lock()
	drops := state.drops
	totalStaked := state.totalStaked
	accrued := state.accrued
	state.mu.Unlock()

	receipt := &utils.BetReceipt{
		UserID:   round.UserID,
		Game:     gameName,
		Stake:    totalStaked,
		PlacedAt: round.CreatedAt,
	}

	multiplier := decimal.Zero
	if totalStaked.IsPositive() {
		multiplier = accrued.Div(totalStaked).Round(4)
	}

	settlement := utils.Settlement{
		Payout:     accrued.Round(2),
		Multiplier: multiplier,
		Class:      utils.ResultLoss,
	}
	switch {
	case settlement.Payout.Equal(totalStaked):
		settlement.Class = utils.ResultPush
	case settlement.Payout.IsPositive():
		settlement.Class = utils.ResultWin
	}

	balance, err := utils.ApplySettlement(receipt, settlement)
	if err != nil {
		return nil, err
	}
	return &Outcome{Drops: drops, TotalStaked: totalStaked, Settlement: settlement, Balance: balance}, nil
}

// Setup installs the timeout policy: the session cashes out whatever accrued.
func Setup() {
	utils.Rounds.RegisterExpiryHandler(gameName, func(round *utils.Round) {
		state, ok := round.State.(*State)
		if !ok || round.Receipt == nil {
			return
		}
		if _, err := settle(round); err != nil {
			utils.Log.Error("failed to settle expired plinko round",
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

func sessionComponents(round *utils.Round) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				CustomID: fmt.Sprintf("plinko:%s:drop", round.ID),
				Style:    discordgo.PrimaryButton,
				Label:    "Drop again",
			},
			discordgo.Button{
				CustomID: fmt.Sprintf("plinko:%s:cashout", round.ID),
				Style:    discordgo.SuccessButton,
				Label:    "Cash out",
			},
		}},
	}
}

func sessionEmbed(round *utils.Round) *discordgo.MessageEmbed {
	state := round.State.(*State)
	state.mu.Lock()
	defer state.mu.Unlock()

	table := tables[state.rows]
	embed := utils.CreateBrandedEmbed("Plinko",
		fmt.Sprintf("Ball landed in slot **%d** (x%s).", state.lastSlot+1, table[state.lastSlot].String()),
		utils.PlayingColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Drops", Value: fmt.Sprintf("%d", state.drops), Inline: true},
		{Name: "Staked", Value: fmt.Sprintf("%s %s", utils.FormatPoints(state.totalStaked), utils.PointsEmoji), Inline: true},
		{Name: "Accrued", Value: fmt.Sprintf("%s %s", utils.FormatPoints(state.accrued), utils.PointsEmoji), Inline: true},
	}
	return embed
}

// RegisterPlinkoCommand registers the /plinko command
func RegisterPlinkoCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "plinko",
		Description: "Drop balls down the peg board.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Stake per drop (e.g., 500, 10k, half, all)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "rows",
				Description: "Board height (default 8)",
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "8 rows", Value: 8},
					{Name: "12 rows", Value: 12},
					{Name: "16 rows", Value: 16},
				},
			},
		},
	}
}

// HandlePlinkoCommand handles the /plinko slash command
func HandlePlinkoCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr string
	rows := 8
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "bet":
			betStr = strings.TrimSpace(opt.StringValue())
		case "rows":
			rows = int(opt.IntValue())
		}
	}

	round, err := Open(userID, betStr, rows)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, openErrorEmbed(userID, err), nil, true)
		return
	}

	state := round.State.(*State)
	state.mu.Lock()
	state.session = s
	state.interaction = i.Interaction
	state.mu.Unlock()

	_ = utils.SendInteractionResponse(s, i, sessionEmbed(round), sessionComponents(round), false)
}

// HandlePlinkoComponent handles button presses. customID: plinko:<roundID>:<action>
func HandlePlinkoComponent(s *discordgo.Session, i *discordgo.InteractionCreate, parts []string) {
	if len(parts) != 3 {
		return
	}
	userID := utils.InteractionUserID(i)

	round, ok := utils.Rounds.Get(userID, gameName)
	if !ok || round.ID != parts[1] {
		_ = utils.AcknowledgeComponentInteraction(s, i)
		_ = utils.TryEphemeralFollowup(s, i, "This board belongs to someone else's game.")
		return
	}

	switch parts[2] {
	case "drop":
		if err := DropAgain(round); err != nil {
			_ = utils.AcknowledgeComponentInteraction(s, i)
			if errors.Is(err, utils.ErrInsufficientFunds) {
				_ = utils.TryEphemeralFollowup(s, i, "Not enough points for another drop. Cash out instead.")
			}
			return
		}
		_ = utils.UpdateComponentInteraction(s, i, sessionEmbed(round), sessionComponents(round))
	case "cashout":
		outcome, err := Cashout(round)
		if err != nil {
			_ = utils.AcknowledgeComponentInteraction(s, i)
			return
		}
		embed := utils.ResultEmbed("Plinko", outcome.TotalStaked, outcome.Settlement.Payout, outcome.Balance, outcome.Settlement.Class)
		embed.Description = fmt.Sprintf("Cashed out after **%d** drops at x%s overall.\n%s",
			outcome.Drops, outcome.Settlement.Multiplier.StringFixed(2), embed.Description)
		_ = utils.UpdateComponentInteraction(s, i, embed, nil)
	}
}

// TryCashout settles the user's active plinko session if one exists.
func TryCashout(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	userID := utils.InteractionUserID(i)
	round, ok := utils.Rounds.Get(userID, gameName)
	if !ok {
		return false
	}

	outcome, err := Cashout(round)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Plinko", "That session already finished.", utils.NeutralColor), nil, true)
		return true
	}

	embed := utils.ResultEmbed("Plinko", outcome.TotalStaked, outcome.Settlement.Payout, outcome.Balance, outcome.Settlement.Class)
	embed.Description = fmt.Sprintf("Cashed out after **%d** drops at x%s overall.\n%s",
		outcome.Drops, outcome.Settlement.Multiplier.StringFixed(2), embed.Description)
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
	return true
}

func openErrorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrGameInProgress):
		return utils.CreateBrandedEmbed("Plinko", "You already have a board in play. Cash it out first.", utils.NeutralColor)
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Plinko",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Plinko", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Plinko", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Plinko", "Something went wrong. Try again.", utils.LossColor)
	}
}

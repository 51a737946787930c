package mines

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const gameName = "mines"

const (
	gridDim    = 5
	totalTiles = gridDim * gridDim
)

const houseEdge = 0.97

// forcedLossThreshold is the next-reveal multiplier at which an armed forced
// loss converts the picked tile into a mine.
const forcedLossThreshold = 1.2

// State is the mutable board of one mines round. Guarded by its own mutex;
// the round lifecycle status is guarded separately by the round itself.
type State struct {
	mu         sync.Mutex
	mineCount  int
	mines      map[int]bool
	revealed   map[int]bool
	forced     bool
	serverSeed string

	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// Multiplier returns the cash-out multiplier after the given number of safe
// reveals, with the house edge applied and a floor of 1.00.
func Multiplier(mineCount, revealed int) decimal.Decimal {
	m := houseEdge
	for i := 0; i < revealed; i++ {
		m *= float64(totalTiles-i) / float64(totalTiles-mineCount-i)
	}
	d := decimal.NewFromFloat(m).Round(2)
	if d.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}

func sampleMines(src utils.RandSource, count int) map[int]bool {
	mines := make(map[int]bool, count)
	for len(mines) < count {
		mines[src.Intn(totalTiles)] = true
	}
	return mines
}

// Open debits the stake and starts a round. The exclusivity check happens
// before the debit so a duplicate open never touches the balance. The board is
// drawn from a committed server seed whose hash is shown up front and which is
// revealed at settlement, so a player can re-derive the mine layout.
func Open(userID int64, rawBet string, mineCount int) (*utils.Round, error) {
	seed := utils.GenerateServerSeed()
	round, err := open(userID, rawBet, mineCount,
		utils.NewFairSource(seed, strconv.FormatInt(userID, 10)), utils.Curses)
	if err != nil {
		return nil, err
	}

	state := round.State.(*State)
	state.mu.Lock()
	state.serverSeed = seed
	state.mu.Unlock()
	return round, nil
}

func open(userID int64, rawBet string, mineCount int, src utils.RandSource, policy utils.LossPolicy) (*utils.Round, error) {
	if mineCount < 1 || mineCount > totalTiles-1 {
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

	round.State = &State{
		mineCount: mineCount,
		mines:     sampleMines(src, mineCount),
		revealed:  make(map[int]bool),
		forced:    forced,
	}
	return round, nil
}

// Outcome is the result of a reveal or cash-out action.
type Outcome struct {
	Busted     bool
	Finished   bool
	BustedTile int
	Revealed   int
	Settlement utils.Settlement
	Balance    decimal.Decimal
}

// Reveal uncovers a tile. Hitting a mine settles the round as a loss;
// clearing the last safe tile cashes out automatically.
func Reveal(round *utils.Round, tile int) (*Outcome, error) {
	state := round.State.(*State)
	state.mu.Lock()

	if tile < 0 || tile >= totalTiles || state.revealed[tile] {
		revealed := len(state.revealed)
		state.mu.Unlock()
		return &Outcome{Revealed: revealed}, nil
	}

	if state.forced && !state.mines[tile] &&
		Multiplier(state.mineCount, len(state.revealed)+1).GreaterThanOrEqual(decimal.NewFromFloat(forcedLossThreshold)) {
		for pos := range state.mines {
			if !state.revealed[pos] {
				delete(state.mines, pos)
				break
			}
		}
		state.mines[tile] = true
		state.forced = false
	}

	if state.mines[tile] {
		revealed := len(state.revealed)
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
		return &Outcome{Busted: true, Finished: true, BustedTile: tile, Revealed: revealed, Settlement: settlement, Balance: balance}, nil
	}

	state.revealed[tile] = true
	revealed := len(state.revealed)
	lastSafe := revealed == totalTiles-state.mineCount
	state.mu.Unlock()

	if lastSafe {
		return Cashout(round)
	}
	return &Outcome{Revealed: revealed}, nil
}

// Cashout settles the round at the current multiplier. With zero reveals the
// multiplier floor makes it a push and the stake comes back.
func Cashout(round *utils.Round) (*Outcome, error) {
	if !round.TryResolve(utils.RoundResolved) {
		return nil, utils.ErrGameInProgress
	}

	state := round.State.(*State)
	state.mu.Lock()
	revealed := len(state.revealed)
	mineCount := state.mineCount
	state.mu.Unlock()

	settlement := utils.Settle(round.Receipt, Multiplier(mineCount, revealed))
	balance, err := utils.ApplySettlement(round.Receipt, settlement)
	utils.Rounds.Close(round)
	if err != nil {
		return nil, err
	}
	return &Outcome{Finished: true, Revealed: revealed, Settlement: settlement, Balance: balance}, nil
}

// Setup installs the timeout policy: accrued progress is cashed out, an
// untouched board is forfeited.
func Setup() {
	utils.Rounds.RegisterExpiryHandler(gameName, func(round *utils.Round) {
		state, ok := round.State.(*State)
		if !ok || round.Receipt == nil {
			return
		}

		state.mu.Lock()
		revealed := len(state.revealed)
		mineCount := state.mineCount
		state.mu.Unlock()

		multiplier := decimal.Zero
		if revealed > 0 {
			multiplier = Multiplier(mineCount, revealed)
		}
		settlement := utils.Settle(round.Receipt, multiplier)
		if _, err := utils.ApplySettlement(round.Receipt, settlement); err != nil {
			utils.Log.Error("failed to settle expired mines round",
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

func boardComponents(round *utils.Round, finished bool, bustedTile int) []discordgo.MessageComponent {
	state := round.State.(*State)
	state.mu.Lock()
	defer state.mu.Unlock()

	rows := make([]discordgo.MessageComponent, 0, gridDim)
	for r := 0; r < gridDim; r++ {
		btns := make([]discordgo.MessageComponent, 0, gridDim)
		for c := 0; c < gridDim; c++ {
			tile := r*gridDim + c
			btn := discordgo.Button{
				CustomID: fmt.Sprintf("mines:%s:%d", round.ID, tile),
				Style:    discordgo.SecondaryButton,
				Label:    "​",
			}
			switch {
			case state.revealed[tile]:
				btn.Style = discordgo.SuccessButton
				btn.Emoji = &discordgo.ComponentEmoji{Name: "💠"}
				btn.Label = ""
				btn.Disabled = true
			case finished && tile == bustedTile:
				btn.Style = discordgo.DangerButton
				btn.Emoji = &discordgo.ComponentEmoji{Name: "💥"}
				btn.Label = ""
				btn.Disabled = true
			case finished && state.mines[tile]:
				btn.Emoji = &discordgo.ComponentEmoji{Name: "💣"}
				btn.Label = ""
				btn.Disabled = true
			case finished:
				btn.Disabled = true
			}
			btns = append(btns, btn)
		}
		rows = append(rows, discordgo.ActionsRow{Components: btns})
	}
	return rows
}

func playingEmbed(round *utils.Round) *discordgo.MessageEmbed {
	state := round.State.(*State)
	state.mu.Lock()
	mineCount := state.mineCount
	revealed := len(state.revealed)
	state.mu.Unlock()

	embed := utils.CreateBrandedEmbed("Mines",
		fmt.Sprintf("**%d** mines hidden. Pick tiles, cash out with `/cashout` before you hit one.", mineCount),
		utils.PlayingColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Bet", Value: fmt.Sprintf("%s %s", utils.FormatPoints(round.Stake), utils.PointsEmoji), Inline: true},
		{Name: "Current", Value: fmt.Sprintf("x%s", Multiplier(mineCount, revealed).StringFixed(2)), Inline: true},
		{Name: "Next", Value: fmt.Sprintf("x%s", Multiplier(mineCount, revealed+1).StringFixed(2)), Inline: true},
	}

	state.mu.Lock()
	seed := state.serverSeed
	state.mu.Unlock()
	if seed != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Fairness", Value: fmt.Sprintf("commit `%s`", utils.ServerSeedHash(seed)),
		})
	}
	return embed
}

// fairnessField reveals the committed seed once the round is settled.
func fairnessField(round *utils.Round) *discordgo.MessageEmbedField {
	state := round.State.(*State)
	state.mu.Lock()
	seed := state.serverSeed
	state.mu.Unlock()
	if seed == "" {
		return nil
	}
	return &discordgo.MessageEmbedField{Name: "Server Seed", Value: fmt.Sprintf("`%s`", seed)}
}

// RegisterMinesCommand registers the /mines command
func RegisterMinesCommand() *discordgo.ApplicationCommand {
	minMines := float64(1)
	return &discordgo.ApplicationCommand{
		Name:        "mines",
		Description: "Uncover safe tiles, dodge the mines.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "bet",
				Description: "Bet amount (e.g., 500, 10k, half, all)",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "mines",
				Description: "Number of mines on the board (1-24, default 3)",
				Required:    false,
				MinValue:    &minMines,
				MaxValue:    float64(totalTiles - 1),
			},
		},
	}
}

// HandleMinesCommand handles the /mines slash command
func HandleMinesCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	var betStr string
	mineCount := 3
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "bet":
			betStr = strings.TrimSpace(opt.StringValue())
		case "mines":
			mineCount = int(opt.IntValue())
		}
	}

	round, err := Open(userID, betStr, mineCount)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i, openErrorEmbed(userID, err), nil, true)
		return
	}

	state := round.State.(*State)
	state.mu.Lock()
	state.session = s
	state.interaction = i.Interaction
	state.mu.Unlock()

	_ = utils.SendInteractionResponse(s, i, playingEmbed(round), boardComponents(round, false, -1), false)
}

// HandleMinesComponent handles tile button presses. customID: mines:<roundID>:<tile>
func HandleMinesComponent(s *discordgo.Session, i *discordgo.InteractionCreate, parts []string) {
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

	tile, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}

	outcome, err := Reveal(round, tile)
	if err != nil {
		_ = utils.AcknowledgeComponentInteraction(s, i)
		return
	}

	if !outcome.Finished {
		_ = utils.UpdateComponentInteraction(s, i, playingEmbed(round), boardComponents(round, false, -1))
		return
	}

	embed := utils.ResultEmbed("Mines", round.Stake, outcome.Settlement.Payout, outcome.Balance, outcome.Settlement.Class)
	if outcome.Busted {
		embed.Description = "💥 You hit a mine.\n" + embed.Description
	} else {
		embed.Description = fmt.Sprintf("Cleared **%d** tiles at x%s.\n%s",
			outcome.Revealed, outcome.Settlement.Multiplier.StringFixed(2), embed.Description)
	}
	if f := fairnessField(round); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	_ = utils.UpdateComponentInteraction(s, i, embed, boardComponents(round, true, outcome.BustedTile))
}

// TryCashout settles the user's active mines round if one exists. Returns
// false when the user has no mines round so the caller can try other games.
func TryCashout(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	userID := utils.InteractionUserID(i)
	round, ok := utils.Rounds.Get(userID, gameName)
	if !ok {
		return false
	}

	outcome, err := Cashout(round)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Mines", "That round already finished.", utils.NeutralColor), nil, true)
		return true
	}

	embed := utils.ResultEmbed("Mines", round.Stake, outcome.Settlement.Payout, outcome.Balance, outcome.Settlement.Class)
	embed.Description = fmt.Sprintf("Cashed out after **%d** tiles at x%s.\n%s",
		outcome.Revealed, outcome.Settlement.Multiplier.StringFixed(2), embed.Description)
	if f := fairnessField(round); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	_ = utils.SendInteractionResponse(s, i, embed, nil, false)
	return true
}

func openErrorEmbed(userID int64, err error) *discordgo.MessageEmbed {
	switch {
	case errors.Is(err, utils.ErrGameInProgress):
		return utils.CreateBrandedEmbed("Mines", "You already have a board in play. Finish it or `/cashout` first.", utils.NeutralColor)
	case errors.Is(err, utils.ErrInsufficientFunds):
		acct, aerr := utils.GetCachedAccount(userID)
		if aerr == nil {
			return utils.CreateBrandedEmbed("Mines",
				fmt.Sprintf("Not enough points. Balance: **%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
				utils.LossColor)
		}
		return utils.CreateBrandedEmbed("Mines", "Not enough points.", utils.LossColor)
	case errors.Is(err, utils.ErrInvalidAmount):
		return utils.CreateBrandedEmbed("Mines", "Invalid bet.", utils.LossColor)
	default:
		return utils.CreateBrandedEmbed("Mines", "Something went wrong. Try again.", utils.LossColor)
	}
}

package main

import (
	"fmt"
	"strings"

	"lcc-go/games/mines"
	"lcc-go/games/plinko"
	"lcc-go/games/pump"
	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
)

func registerBalanceCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "balance",
		Description: "Check your points balance.",
	}
}

func handleBalanceCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	acct, err := utils.GetCachedAccount(userID)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Balance", "Something went wrong. Try again.", utils.LossColor), nil, true)
		return
	}

	embed := utils.CreateBrandedEmbed("Balance",
		fmt.Sprintf("**%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
		utils.BotColor)
	_ = utils.SendInteractionResponse(s, i, embed, nil, true)
}

func registerProfileCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "profile",
		Description: "View your rank, record, and wallets.",
	}
}

func handleProfileCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	acct, err := utils.GetCachedAccount(userID)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Profile", "Something went wrong. Try again.", utils.LossColor), nil, true)
		return
	}

	rank, nextXP := utils.GetRank(acct.TotalXP)
	embed := utils.CreateBrandedEmbed(
		fmt.Sprintf("%s %s", rank.Icon, rank.Name),
		fmt.Sprintf("**%s** %s", utils.FormatPoints(acct.Points), utils.PointsEmoji),
		rank.Color)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "XP", Value: fmt.Sprintf("%d / %d", acct.TotalXP, nextXP), Inline: true},
		{Name: "Record", Value: fmt.Sprintf("%dW / %dL", acct.Wins, acct.Losses), Inline: true},
	}

	for _, currency := range []string{"BTC", "LTC"} {
		wallet, werr := utils.GetWallet(userID, currency)
		if werr != nil || wallet.Balance.IsZero() {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   utils.Currencies[currency].Name,
			Value:  fmt.Sprintf("%s %s", wallet.Balance.String(), currency),
			Inline: true,
		})
	}

	_ = utils.SendInteractionResponse(s, i, embed, nil, true)
}

func registerHistoryCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "history",
		Description: "Your recent bets and deposits.",
	}
}

func handleHistoryCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := utils.InteractionUserID(i)

	entries, err := utils.RecentHistory(userID, 10)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("History", "Something went wrong. Try again.", utils.LossColor), nil, true)
		return
	}
	if len(entries) == 0 {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("History", "Nothing here yet. Place a bet!", utils.NeutralColor), nil, true)
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		switch e.Type {
		case "deposit":
			fmt.Fprintf(&sb, "💰 deposit **+%s** %s\n", utils.FormatPoints(e.Amount), utils.PointsEmoji)
		case "win":
			fmt.Fprintf(&sb, "🟢 %s **+%s** %s (x%s)\n",
				e.Game, utils.FormatPoints(e.Amount), utils.PointsEmoji, e.Multiplier.StringFixed(2))
		case "push":
			fmt.Fprintf(&sb, "⚪ %s push\n", e.Game)
		default:
			fmt.Fprintf(&sb, "🔴 %s loss\n", e.Game)
		}
	}

	_ = utils.SendInteractionResponse(s, i,
		utils.CreateBrandedEmbed("History", sb.String(), utils.BotColor), nil, true)
}

func registerCashoutCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "cashout",
		Description: "Cash out your active round.",
	}
}

func handleCashoutCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if mines.TryCashout(s, i) || plinko.TryCashout(s, i) || pump.TryCashout(s, i) {
		return
	}
	_ = utils.SendInteractionResponse(s, i,
		utils.CreateBrandedEmbed("Cash Out", "You have no active round.", utils.NeutralColor), nil, true)
}

func registerCurseCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "curse",
		Description: "Admin: force a user's next round to lose.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Who to curse",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "lift",
				Description: "Lift an existing curse instead",
				Required:    false,
			},
		},
	}
}

func handleCurseCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	callerID := utils.InteractionUserID(i)
	if !adminIDs[callerID] {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Curse", "You are not allowed to use this.", utils.LossColor), nil, true)
		return
	}

	var targetRaw string
	lift := false
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			targetRaw = opt.UserValue(nil).ID
		case "lift":
			lift = opt.BoolValue()
		}
	}

	targetID, err := utils.ParseUserID(targetRaw)
	if err != nil {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Curse", "Invalid user.", utils.LossColor), nil, true)
		return
	}

	if lift {
		utils.Curses.Disarm(targetID)
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Curse", fmt.Sprintf("Curse lifted from <@%d>.", targetID), utils.NeutralColor), nil, true)
		return
	}

	utils.Curses.Arm(targetID)
	_ = utils.SendInteractionResponse(s, i,
		utils.CreateBrandedEmbed("Curse", fmt.Sprintf("<@%d>'s next round will not go well.", targetID), utils.NeutralColor), nil, true)
}

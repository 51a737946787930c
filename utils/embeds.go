package utils

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

// CreateBrandedEmbed creates an embed with consistent branding
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Lucky Chips Casino",
		},
	}
}

// FormatPoints renders a points amount with two decimals and thousands separators.
func FormatPoints(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	// Insert separators into the integer part.
	dot := len(s) - 3
	intPart, fracPart := s[:dot], s[dot:]
	neg := false
	if len(intPart) > 0 && intPart[0] == '-' {
		neg = true
		intPart = intPart[1:]
	}
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out) + fracPart
	}
	return string(out) + fracPart
}

// GameTimeoutEmbed is shown when a round is force-resolved on its deadline.
func GameTimeoutEmbed() *discordgo.MessageEmbed {
	return CreateBrandedEmbed("Game Timed Out", GameTimeoutMessage, NeutralColor)
}

// ResultEmbed summarizes a settled round.
func ResultEmbed(game string, stake, payout, balance decimal.Decimal, class Classification) *discordgo.MessageEmbed {
	color := LossColor
	verdict := fmt.Sprintf("You lost **%s** %s", FormatPoints(stake), PointsEmoji)
	switch class {
	case ResultWin:
		color = WinColor
		verdict = fmt.Sprintf("You won **%s** %s", FormatPoints(payout), PointsEmoji)
	case ResultPush:
		color = NeutralColor
		verdict = "Push. Your stake was returned."
	}

	embed := CreateBrandedEmbed(game, verdict, color)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Bet", Value: fmt.Sprintf("%s %s", FormatPoints(stake), PointsEmoji), Inline: true},
		{Name: "New Balance", Value: fmt.Sprintf("%s %s", FormatPoints(balance), PointsEmoji), Inline: true},
	}
	return embed
}

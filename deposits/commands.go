package deposits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lcc-go/utils"

	"github.com/bwmarrin/discordgo"
)

// RegisterDepositCommand registers the /deposit command
func RegisterDepositCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "deposit",
		Description: "Show your deposit address and check for new deposits.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "currency",
				Description: "Which coin to deposit",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Bitcoin (BTC)", Value: "BTC"},
					{Name: "Litecoin (LTC)", Value: "LTC"},
				},
			},
		},
	}
}

// HandleDepositCommand handles the /deposit slash command. It resolves the
// user's address, registers it with the sweep, and runs one immediate scan so
// a confirmed deposit credits without waiting for the next cron pass.
func HandleDepositCommand(s *discordgo.Session, i *discordgo.InteractionCreate, poller *Poller) {
	userID := utils.InteractionUserID(i)

	var currency string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "currency" {
			currency = opt.StringValue()
		}
	}
	cfg, ok := utils.Currencies[currency]
	if !ok {
		_ = utils.SendInteractionResponse(s, i,
			utils.CreateBrandedEmbed("Deposit", "Unsupported currency.", utils.LossColor), nil, true)
		return
	}

	// The explorer round-trip can exceed the 3 second interaction window.
	_ = utils.DeferInteractionResponse(s, i, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := poller.ScanNow(ctx, userID, currency)
	if err != nil && !errors.Is(err, utils.ErrExternalService) {
		_ = utils.EditOriginalInteraction(s, i,
			utils.CreateBrandedEmbed("Deposit", "Something went wrong. Try again.", utils.LossColor), nil)
		return
	}

	address, aerr := poller.ResolveAddress(userID, currency)
	if aerr != nil {
		_ = utils.EditOriginalInteraction(s, i,
			utils.CreateBrandedEmbed("Deposit",
				fmt.Sprintf("%s deposits are not available right now.", cfg.Name), utils.LossColor), nil)
		return
	}

	embed := utils.CreateBrandedEmbed(fmt.Sprintf("%s Deposit %s", cfg.Symbol, cfg.Name),
		fmt.Sprintf("Send %s to the address below. Deposits credit after **%d** confirmations at a rate of **%s %s** per point.",
			cfg.Name, utils.RequiredConfirmations, cfg.PointRate.String(), currency),
		utils.BotColor)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Address", Value: fmt.Sprintf("`%s`", address)},
	}

	switch {
	case err != nil:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Status", Value: "Explorer unreachable, the background sweep will retry.",
		})
	case result.Status == StatusCredited:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Credited",
			Value: fmt.Sprintf("**%s %s** → **%s** %s\n`%s`",
				result.Amount.String(), currency, utils.FormatPoints(result.Points), utils.PointsEmoji, result.Txid),
		})
	case result.Status == StatusPending:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Pending",
			Value: fmt.Sprintf("**%s %s** at %d/%d confirmations\n`%s`",
				result.Amount.String(), currency, result.Confirmations, utils.RequiredConfirmations, result.Txid),
		})
	}

	_ = utils.EditOriginalInteraction(s, i, embed, nil)
}

package handlers

import (
	"log"
	"strings"

	"forum-reminder-bot/bot"
	"forum-reminder-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// maxChoices is the platform cap on autocomplete results.
const maxChoices = 25

// HandleAutocomplete handles all autocomplete interactions.
func HandleAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "remind", "simulate":
		for _, opt := range data.Options {
			if opt.Name == "event_id" && opt.Focused {
				handleEventAutocomplete(b, s, i, opt.StringValue())
			}
		}
	}
}

func handleEventAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, typed string) {
	events, err := b.Gateway.ScheduledEvents(b.Context(), i.GuildID)
	if err != nil {
		log.Printf("Error listing events for autocomplete: %v", err)
	}

	typed = strings.ToLower(typed)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(events))
	for _, ev := range events {
		if typed != "" && !strings.Contains(strings.ToLower(ev.Name), typed) && !strings.HasPrefix(ev.ID, typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  utils.Truncate(ev.Name, 100),
			Value: ev.ID,
		})
		if len(choices) == maxChoices {
			break
		}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		log.Printf("Error responding to autocomplete interaction: %v", err)
	}
}

package handlers

import (
	"errors"
	"log"

	"forum-reminder-bot/bot"
	"forum-reminder-bot/command"
	"forum-reminder-bot/models"
	"forum-reminder-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name
	if requiredLevel, ok := command.Permissions[commandName]; ok {
		if !b.Auth.CheckPermission(i, requiredLevel) {
			respond(s, i, "🚫 You don't have permission to use this command.")
			return
		}
	}

	switch commandName {
	case "ping":
		HandlePing(b, s, i)
	case "notify":
		HandleNotify(b, s, i)
	case "events":
		HandleEvents(b, s, i)
	case "remind":
		HandleRemind(b, s, i)
	case "simulate":
		HandleSimulate(b, s, i)
	case "reminder_channel":
		HandleReminderChannel(b, s, i)
	case "close":
		HandleClose(b, s, i)
	case "threads":
		HandleThreads(b, s, i)
	case "notified":
		HandleNotified(b, s, i)
	case "guilds":
		HandleGuilds(b, s, i)
	case "voice":
		HandleVoice(b, s, i)
	default:
		respond(s, i, "🚫 Internal error: unknown command.")
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           discordgo.MessageFlagsEphemeral,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		log.Printf("Error responding to /%s: %v", i.ApplicationCommandData().Name, err)
	}
}

// deferReply acknowledges a command whose work may outlast the response deadline.
func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Printf("Error deferring /%s: %v", i.ApplicationCommandData().Name, err)
		return false
	}
	return true
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:         utils.Truncate(content, 2000),
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		log.Printf("Error sending followup for /%s: %v", i.ApplicationCommandData().Name, err)
	}
}

// explain turns an operation error into a message for the operator.
func explain(err error) string {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		return "❌ I don't have the permissions needed for that: " + err.Error()
	case errors.Is(err, models.ErrNotFound):
		return "❌ Not found: " + err.Error()
	case errors.Is(err, models.ErrNoChannel):
		return "❌ There is no channel I can post in. Set one with /reminder_channel set."
	default:
		return "❌ Something went wrong: " + err.Error()
	}
}

func actorOf(i *discordgo.InteractionCreate) models.Actor {
	a := models.Actor{GuildID: i.GuildID, ChannelID: i.ChannelID}
	var u *discordgo.User
	if i.Member != nil {
		u = i.Member.User
		a.Name = i.Member.Nick
	} else {
		u = i.User
	}
	if u != nil {
		a.UserID = u.ID
		if a.Name == "" {
			a.Name = u.DisplayName()
		}
	}
	return a
}

func optionString(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

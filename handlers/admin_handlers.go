package handlers

import (
	"fmt"
	"strings"

	"forum-reminder-bot/bot"
	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// maxListed caps how many members a diagnostic listing shows.
const maxListed = 50

func mentions(ids []string) string {
	shown := ids
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	out := make([]string, len(shown))
	for i, id := range shown {
		out[i] = "<@" + id + ">"
	}
	line := strings.Join(out, ", ")
	if rest := len(ids) - len(shown); rest > 0 {
		line += fmt.Sprintf(" and %d more", rest)
	}
	return line
}

// HandleNotified lists the members who opted out of reminders.
func HandleNotified(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	respond(s, i, formatOptOuts(b.Store.OptOutIDs()))
}

func formatOptOuts(ids []string) string {
	if len(ids) == 0 {
		return "👥 Nobody turned reminders off."
	}
	return fmt.Sprintf("👥 %d members turned reminders off: %s", len(ids), mentions(ids))
}

// HandleGuilds lists the servers the bot is connected to.
func HandleGuilds(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	respond(s, i, formatGuilds(b.Gateway.Guilds()))
}

func formatGuilds(guilds []models.Guild) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏠 **Servers (%d)**\n", len(guilds))
	for _, g := range guilds {
		fmt.Fprintf(&sb, "• %s (%s)\n", g.Name, g.ID)
	}
	return sb.String()
}

// HandleVoice lists the members connected to a voice channel, by default the
// one the caller is in.
func HandleVoice(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var channelID string
	if opt := i.ApplicationCommandData().GetOption("channel"); opt != nil {
		channelID = opt.ChannelValue(nil).ID
	} else if vs, err := s.State.VoiceState(i.GuildID, actorOf(i).UserID); err == nil {
		channelID = vs.ChannelID
	}
	if channelID == "" {
		respond(s, i, "⚠️ Pick a voice channel, or join one and run the command without an option.")
		return
	}
	respond(s, i, formatVoice(channelID, b.Gateway.VoiceMembers(i.GuildID, channelID)))
}

func formatVoice(channelID string, ids []string) string {
	if len(ids) == 0 {
		return fmt.Sprintf("🔈 <#%s> is empty.", channelID)
	}
	return fmt.Sprintf("🔈 %d connected to <#%s>: %s", len(ids), channelID, mentions(ids))
}

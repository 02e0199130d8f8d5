package handlers

import (
	"log"

	"forum-reminder-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	b.Session.AddHandler(InteractionCreate(b))
	b.Session.AddHandler(ThreadUpdateHandler(b))
	b.Session.AddHandler(ThreadDeleteHandler(b))

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v in %d guilds", s.State.User.Username, s.State.User.Discriminator, len(r.Guilds))
	})
}

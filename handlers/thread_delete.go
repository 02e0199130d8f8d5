package handlers

import (
	"log"

	"forum-reminder-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// ThreadDeleteHandler drops the closure record of a deleted thread.
func ThreadDeleteHandler(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, t *discordgo.ThreadDelete) {
		if t.Channel == nil {
			return
		}
		if err := b.Threads.ObserveDelete(t.ID); err != nil {
			log.Printf("Error forgetting deleted thread %s in guild %s: %v", t.ID, t.GuildID, err)
		}
	}
}

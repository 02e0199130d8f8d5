package handlers

import (
	"log"

	"forum-reminder-bot/bot"
	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// ThreadUpdateHandler tracks posts locked or reopened outside the bot.
func ThreadUpdateHandler(b *bot.Bot) func(s *discordgo.Session, t *discordgo.ThreadUpdate) {
	return func(s *discordgo.Session, t *discordgo.ThreadUpdate) {
		if t.Channel == nil {
			return
		}
		after := b.Gateway.ThreadFrom(t.Channel)
		var before *models.Thread
		if t.BeforeUpdate != nil {
			prev := b.Gateway.ThreadFrom(t.BeforeUpdate)
			before = &prev
		}
		if err := b.Threads.ObserveUpdate(b.Context(), before, after); err != nil {
			log.Printf("Error handling update of thread %s: %v", t.ID, err)
		}
	}
}

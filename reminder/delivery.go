package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

const embedColor = 0x5865F2

// part is one message of a reminder. A target fails when a required part
// fails; optional parts are logged and skipped.
type part struct {
	msg      *discordgo.MessageSend
	required bool
}

func mentionList(ps []models.Participant) string {
	mentions := make([]string, len(ps))
	for i, p := range ps {
		mentions[i] = p.Mention()
	}
	return strings.Join(mentions, ", ")
}

// reminderMessages builds the plain mention message, which triggers the
// notifications, and the summary embed with mentions disabled so the same
// users are not notified twice.
func reminderMessages(ev models.ScheduledEvent, toPing []models.Participant, channelLabel, footer string) []part {
	mentions := mentionList(toPing)

	desc := fmt.Sprintf("**%s** is about to start!\n\n🔔 Participants: %s", ev.Name, mentions)
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⏰ Reminder: %s", ev.Name),
		Description: desc,
		Color:       embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s | channel: %s", footer, channelLabel),
		},
	}
	if ev.Start != nil {
		embed.Timestamp = ev.Start.UTC().Format(time.RFC3339)
		embed.Description = fmt.Sprintf("**%s** starts <t:%d:R>!\n\n🔔 Participants: %s", ev.Name, ev.Start.Unix(), mentions)
	}

	return []part{
		{
			msg: &discordgo.MessageSend{
				Content: mentions,
				AllowedMentions: &discordgo.MessageAllowedMentions{
					Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
				},
			},
		},
		{
			msg: &discordgo.MessageSend{
				Embeds:          []*discordgo.MessageEmbed{embed},
				AllowedMentions: &discordgo.MessageAllowedMentions{},
			},
			required: true,
		},
	}
}

// deliveryTargets is the ordered target list: the resolved channel, then the
// guild system channel when it differs. One retry, no more.
func deliveryTargets(g models.Guild, primary string) []string {
	targets := []string{primary}
	if g.SystemChannelID != "" && g.SystemChannelID != primary {
		targets = append(targets, g.SystemChannelID)
	}
	return targets
}

// deliver sends parts to the first target that accepts every required part
// and returns that target.
func (s *Scheduler) deliver(ctx context.Context, g models.Guild, primary string, parts []part) (string, error) {
	var errs []error
	for _, target := range deliveryTargets(g, primary) {
		if err := s.sendParts(ctx, target, parts); err != nil {
			log.Printf("Reminder delivery to channel %s failed: %v", target, err)
			errs = append(errs, fmt.Errorf("channel %s: %w", target, err))
			continue
		}
		return target, nil
	}
	return "", errors.Join(errs...)
}

func (s *Scheduler) sendParts(ctx context.Context, channelID string, parts []part) error {
	for _, p := range parts {
		err := s.platform.Send(ctx, channelID, p.msg)
		if err == nil {
			continue
		}
		if p.required {
			return err
		}
		log.Printf("Mention message to channel %s failed, sending summary anyway: %v", channelID, err)
	}
	return nil
}

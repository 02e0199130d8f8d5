package reminder

import (
	"context"
	"fmt"

	"forum-reminder-bot/models"
)

// Plan is the ping computation for one event.
type Plan struct {
	Event      models.ScheduledEvent
	Interested []models.Participant
	// Present holds the IDs connected to the event's voice channel.
	Present  []string
	OptedOut []models.Participant
	ToPing   []models.Participant
}

func (s *Scheduler) plan(ctx context.Context, guildID string, ev models.ScheduledEvent) Plan {
	interested := s.people.InterestedUsers(ctx, guildID, ev)

	var present []string
	if ev.IsVoice && ev.ChannelID != "" {
		present = s.platform.VoiceMembers(guildID, ev.ChannelID)
	}

	toPing, optedOut := ComputePingList(interested, s.state.OptedOut, present)
	return Plan{
		Event:      ev,
		Interested: interested,
		Present:    present,
		OptedOut:   optedOut,
		ToPing:     toPing,
	}
}

// ComputePingList keeps the interested participants who neither opted out nor
// are already present. Opted-out participants are returned separately for
// reporting.
func ComputePingList(interested []models.Participant, optedOut func(userID string) bool, present []string) (toPing, skipped []models.Participant) {
	here := make(map[string]struct{}, len(present))
	for _, id := range present {
		here[id] = struct{}{}
	}

	for _, p := range interested {
		if optedOut(p.ID) {
			skipped = append(skipped, p)
			continue
		}
		if _, ok := here[p.ID]; ok {
			continue
		}
		toPing = append(toPing, p)
	}
	return toPing, skipped
}

// ResolveChannel picks where the reminder for ev goes. First match wins:
// the guild override, the event's own channel, the system channel, then the
// first text channel the bot can post in.
func (s *Scheduler) ResolveChannel(g models.Guild, ev models.ScheduledEvent) (string, error) {
	if id, ok := s.state.ReminderChannel(g.ID); ok && s.platform.CanSend(id) {
		return id, nil
	}
	if ev.ChannelID != "" && s.platform.CanSend(ev.ChannelID) {
		return ev.ChannelID, nil
	}
	if g.SystemChannelID != "" && s.platform.CanSend(g.SystemChannelID) {
		return g.SystemChannelID, nil
	}
	for _, id := range s.platform.TextChannels(g.ID) {
		if s.platform.CanSend(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("guild %s: %w", g.ID, models.ErrNoChannel)
}

package gateway

import (
	"context"
	"fmt"

	"forum-reminder-bot/models"
	"forum-reminder-bot/resolver"

	"github.com/bwmarrin/discordgo"
)

func toStatus(s discordgo.GuildScheduledEventStatus) models.EventStatus {
	switch s {
	case discordgo.GuildScheduledEventStatusScheduled:
		return models.EventScheduled
	case discordgo.GuildScheduledEventStatusActive:
		return models.EventActive
	case discordgo.GuildScheduledEventStatusCompleted:
		return models.EventCompleted
	default:
		return models.EventCancelled
	}
}

func toEvent(ev *discordgo.GuildScheduledEvent) models.ScheduledEvent {
	voice := ev.EntityType == discordgo.GuildScheduledEventEntityTypeVoice ||
		ev.EntityType == discordgo.GuildScheduledEventEntityTypeStageInstance
	out := models.ScheduledEvent{
		ID:        ev.ID,
		GuildID:   ev.GuildID,
		Name:      ev.Name,
		Status:    toStatus(ev.Status),
		ChannelID: ev.ChannelID,
		IsVoice:   voice,
	}
	if !ev.ScheduledStartTime.IsZero() {
		start := ev.ScheduledStartTime
		out.Start = &start
	}
	return out
}

func toParticipant(u *discordgo.GuildScheduledEventUser) (models.Participant, bool) {
	if u == nil || u.User == nil || u.User.ID == "" {
		return models.Participant{}, false
	}
	p := models.Participant{
		ID:          u.User.ID,
		Name:        u.User.Username,
		DisplayName: u.User.DisplayName(),
	}
	if u.Member != nil && u.Member.Nick != "" {
		p.DisplayName = u.Member.Nick
	}
	return p, true
}

// ScheduledEvents lists a guild's scheduled events.
func (g *Gateway) ScheduledEvents(ctx context.Context, guildID string) ([]models.ScheduledEvent, error) {
	evs, err := g.s.GuildScheduledEvents(guildID, false, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]models.ScheduledEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, toEvent(ev))
	}
	return out, nil
}

// ScheduledEvent fetches one event.
func (g *Gateway) ScheduledEvent(ctx context.Context, guildID, eventID string) (models.ScheduledEvent, error) {
	ev, err := g.s.GuildScheduledEvent(guildID, eventID, false, discordgo.WithContext(ctx))
	if err != nil {
		return models.ScheduledEvent{}, mapErr(err)
	}
	return toEvent(ev), nil
}

func (g *Gateway) eventUsers(ctx context.Context, guildID, eventID string, limit int, beforeID, afterID string) ([]models.Participant, error) {
	users, err := g.s.GuildScheduledEventUsers(guildID, eventID, limit, true, beforeID, afterID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]models.Participant, 0, len(users))
	for _, u := range users {
		if p, ok := toParticipant(u); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// EventUsers pages forward through the interested users.
func (g *Gateway) EventUsers(ctx context.Context, guildID, eventID, afterID string, limit int) ([]models.Participant, error) {
	return g.eventUsers(ctx, guildID, eventID, limit, "", afterID)
}

// GuildEventUsers pages backward, the token being the lowest user ID seen.
func (g *Gateway) GuildEventUsers(ctx context.Context, guildID, eventID, token string) (resolver.Page, error) {
	const limit = 100
	users, err := g.eventUsers(ctx, guildID, eventID, limit, token, "")
	if err != nil {
		return resolver.Page{}, fmt.Errorf("guild event users: %w", err)
	}
	page := resolver.Page{Users: users}
	if len(users) == limit {
		page.Next = lowestID(users)
	}
	return page, nil
}

// lowestID compares snowflakes as decimal numbers.
func lowestID(ps []models.Participant) string {
	low := ""
	for _, p := range ps {
		if low == "" || len(p.ID) < len(low) || len(p.ID) == len(low) && p.ID < low {
			low = p.ID
		}
	}
	return low
}

// Resolver builds the participant resolver with every strategy backed by
// this session. apiBase overrides the REST root of the raw fallback.
func (g *Gateway) Resolver(apiBase string) *resolver.Resolver {
	return resolver.New(
		resolver.EventUsers{Lister: g},
		resolver.GuildEventUsers{Pager: g},
		resolver.EventAttribute{},
		resolver.REST{Client: g.s, Base: apiBase},
	)
}

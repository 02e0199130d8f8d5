package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"forum-reminder-bot/models"
)

// ForceRemind sends the reminder for one event right away, ignoring the
// window. Errors are returned to the operator instead of being swallowed.
func (s *Scheduler) ForceRemind(ctx context.Context, guildID, eventID string, actor models.Actor) (Outcome, error) {
	g, err := s.platform.Guild(guildID)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch guild: %w", err)
	}
	ev, err := s.platform.ScheduledEvent(ctx, guildID, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch event %s: %w", eventID, err)
	}
	channelID, err := s.ResolveChannel(g, ev)
	if err != nil {
		return Outcome{}, err
	}

	plan := s.plan(ctx, guildID, ev)
	if len(plan.ToPing) == 0 {
		return Outcome{Plan: plan, ChannelID: channelID}, nil
	}

	who := actor.Name
	if who == "" {
		who = actor.UserID
	}
	msgs := reminderMessages(ev, plan.ToPing, s.channelLabel(channelID), "Forced by "+who)
	used, err := s.deliver(ctx, g, channelID, msgs)
	if err != nil {
		return Outcome{Plan: plan, ChannelID: channelID}, err
	}
	return Outcome{Plan: plan, ChannelID: used, Sent: true}, nil
}

// Simulate computes who would be pinged for the event without sending.
func (s *Scheduler) Simulate(ctx context.Context, guildID, eventID string) (Plan, error) {
	ev, err := s.platform.ScheduledEvent(ctx, guildID, eventID)
	if err != nil {
		return Plan{}, fmt.Errorf("fetch event %s: %w", eventID, err)
	}
	return s.plan(ctx, guildID, ev), nil
}

// Occurrence is one upcoming start of an event.
type Occurrence struct {
	EventID string
	GuildID string
	Name    string
	Start   time.Time
}

// Link is the platform URL of the event.
func (o Occurrence) Link() string {
	return fmt.Sprintf("https://discord.com/events/%s/%s", o.GuildID, o.EventID)
}

const weeklyRepeats = 3

// Upcoming lists the next n starts in the guild. Events named "weekly" are
// expanded with their next three weekly repeats.
func (s *Scheduler) Upcoming(ctx context.Context, guildID string, n int) ([]Occurrence, error) {
	events, err := s.platform.ScheduledEvents(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	now := s.now()

	var out []Occurrence
	for _, ev := range events {
		if ev.Status != models.EventScheduled || ev.Start == nil {
			continue
		}
		starts := []time.Time{*ev.Start}
		if strings.Contains(strings.ToLower(ev.Name), "weekly") {
			for i := 1; i <= weeklyRepeats; i++ {
				starts = append(starts, ev.Start.AddDate(0, 0, 7*i))
			}
		}
		for _, st := range starts {
			if st.After(now) {
				out = append(out, Occurrence{EventID: ev.ID, GuildID: guildID, Name: ev.Name, Start: st})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// NotifyEnabled reports whether the user receives reminders.
func (s *Scheduler) NotifyEnabled(userID string) bool {
	return !s.state.OptedOut(userID)
}

// SetNotify opts the user in (on) or out. changed is false when the user was
// already in that state.
func (s *Scheduler) SetNotify(userID string, on bool) (changed bool, err error) {
	return s.state.SetOptOut(userID, !on)
}

// SetReminderChannel validates the channel and stores it as the guild's
// reminder target.
func (s *Scheduler) SetReminderChannel(guildID, channelID string) (models.Channel, error) {
	ch, err := s.platform.Channel(channelID)
	if err != nil {
		return models.Channel{}, err
	}
	if ch.GuildID != "" && ch.GuildID != guildID {
		return models.Channel{}, fmt.Errorf("channel %s is not in this guild: %w", channelID, models.ErrNotFound)
	}
	if !s.platform.CanSend(channelID) {
		return models.Channel{}, fmt.Errorf("cannot post in channel %s: %w", channelID, models.ErrPermissionDenied)
	}
	if err := s.state.SetReminderChannel(guildID, channelID); err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

// ClearReminderChannel drops the guild override.
func (s *Scheduler) ClearReminderChannel(guildID string) (bool, error) {
	return s.state.ClearReminderChannel(guildID)
}

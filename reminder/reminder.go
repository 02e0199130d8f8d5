// Package reminder pings interested members shortly before a guild
// scheduled event starts.
//
// A tick walks every guild's scheduled events; an event whose start is within
// the lead window gets one mention message plus one summary embed in the
// resolved reminder channel. After a successful send the pass pauses for a
// little longer than one tick so the next tick is skipped by the cron
// wrapper. Without OncePerEvent an event still inside the window on a later
// tick is reminded again.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Platform is the slice of the messaging platform the scheduler uses.
type Platform interface {
	Guilds() []models.Guild
	Guild(guildID string) (models.Guild, error)
	Channel(channelID string) (models.Channel, error)
	ScheduledEvents(ctx context.Context, guildID string) ([]models.ScheduledEvent, error)
	ScheduledEvent(ctx context.Context, guildID, eventID string) (models.ScheduledEvent, error)
	CanSend(channelID string) bool
	TextChannels(guildID string) []string
	VoiceMembers(guildID, channelID string) []string
	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error
}

// Participants resolves who is interested in an event.
type Participants interface {
	InterestedUsers(ctx context.Context, guildID string, event models.ScheduledEvent) []models.Participant
}

// State is the persisted preference data the scheduler reads and edits.
type State interface {
	OptedOut(userID string) bool
	SetOptOut(userID string, optOut bool) (bool, error)
	ReminderChannel(guildID string) (string, bool)
	SetReminderChannel(guildID, channelID string) error
	ClearReminderChannel(guildID string) (bool, error)
}

// Scheduler runs the reminder pass and the reminder related operator
// commands.
type Scheduler struct {
	platform Platform
	people   Participants
	state    State
	cfg      models.ReminderConfig
	loc      *time.Location

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	reminded map[string]time.Time // event ID -> start time already reminded
}

// New builds a scheduler. loc is used for human readable dates only.
func New(platform Platform, people Participants, state State, cfg models.ReminderConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		platform: platform,
		people:   people,
		state:    state,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		sleep:    sleepContext,
		reminded: make(map[string]time.Time),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Location is the zone used for rendering event dates.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Due reports whether the event is inside the reminder window at now:
// scheduled, with a known start, and 0 < start-now <= lead.
func (s *Scheduler) Due(ev models.ScheduledEvent, now time.Time) bool {
	if ev.Status != models.EventScheduled || ev.Start == nil {
		return false
	}
	delta := ev.Start.Sub(now)
	return delta > 0 && delta <= s.cfg.Lead
}

// Tick runs one reminder pass over every guild. Per-guild and per-event
// failures are logged and joined into the returned error; the pass always
// continues with the next event.
func (s *Scheduler) Tick(ctx context.Context) error {
	var errs []error
	s.pruneReminded(s.now())

	for _, g := range s.platform.Guilds() {
		events, err := s.platform.ScheduledEvents(ctx, g.ID)
		if err != nil {
			log.Printf("Could not fetch scheduled events for guild %s: %v", g.ID, err)
			errs = append(errs, fmt.Errorf("guild %s: %w", g.ID, err))
			continue
		}

		for _, ev := range events {
			if ctx.Err() != nil {
				return errors.Join(append(errs, ctx.Err())...)
			}
			if !s.Due(ev, s.now()) {
				continue
			}
			if s.cfg.OncePerEvent && s.alreadyReminded(ev) {
				continue
			}

			out, err := s.remind(ctx, g, ev)
			if err != nil {
				if errors.Is(err, models.ErrNoChannel) {
					log.Printf("No sendable channel for reminder of %q (guild %s)", ev.Name, g.ID)
					continue
				}
				log.Printf("Reminder for %q failed: %v", ev.Name, err)
				errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
				continue
			}
			if !out.Sent {
				continue
			}

			log.Printf("Reminder sent for %q (pinged %d members) in channel %s", ev.Name, len(out.Plan.ToPing), out.ChannelID)
			s.markReminded(ev)
			if err := s.sleep(ctx, s.cfg.Pause); err != nil {
				return errors.Join(append(errs, err)...)
			}
		}
	}
	return errors.Join(errs...)
}

// Outcome describes what a reminder attempt did.
type Outcome struct {
	Plan      Plan
	ChannelID string
	Sent      bool
}

func (s *Scheduler) remind(ctx context.Context, g models.Guild, ev models.ScheduledEvent) (Outcome, error) {
	channelID, err := s.ResolveChannel(g, ev)
	if err != nil {
		return Outcome{}, err
	}

	plan := s.plan(ctx, g.ID, ev)
	if len(plan.ToPing) == 0 {
		log.Printf("Nobody to ping for %q (all present or opted out)", ev.Name)
		return Outcome{Plan: plan, ChannelID: channelID}, nil
	}

	msgs := reminderMessages(ev, plan.ToPing, s.channelLabel(channelID),
		"Times are shown in each member's local time zone.")
	used, err := s.deliver(ctx, g, channelID, msgs)
	if err != nil {
		return Outcome{Plan: plan, ChannelID: channelID}, err
	}
	return Outcome{Plan: plan, ChannelID: used, Sent: true}, nil
}

func (s *Scheduler) channelLabel(channelID string) string {
	if ch, err := s.platform.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return channelID
}

func (s *Scheduler) alreadyReminded(ev models.ScheduledEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, ok := s.reminded[ev.ID]
	return ok && ev.Start != nil && start.Equal(*ev.Start)
}

func (s *Scheduler) markReminded(ev models.ScheduledEvent) {
	if !s.cfg.OncePerEvent || ev.Start == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminded[ev.ID] = *ev.Start
}

func (s *Scheduler) pruneReminded(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, start := range s.reminded {
		if start.Before(now) {
			delete(s.reminded, id)
		}
	}
}

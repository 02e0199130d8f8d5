package resolver

import (
	"context"
	"fmt"

	"forum-reminder-bot/models"
)

// EventUserLister pages through the per-event interested user list.
type EventUserLister interface {
	EventUsers(ctx context.Context, guildID, eventID, afterID string, limit int) ([]models.Participant, error)
}

// Page is one response of the per-guild listing. Next is empty when the
// response was a bare list or the last page.
type Page struct {
	Users []models.Participant
	Next  string
}

// GuildEventUserPager lists interested users through a guild-keyed call.
type GuildEventUserPager interface {
	GuildEventUsers(ctx context.Context, guildID, eventID, token string) (Page, error)
}

const (
	pageSize = 100
	maxPages = 10
)

// EventUsers pages the per-event list by after-ID until a short page.
type EventUsers struct {
	Lister EventUserLister
}

func (s EventUsers) Name() string { return "event-users" }

func (s EventUsers) Interested(ctx context.Context, guildID string, event models.ScheduledEvent) ([]models.Participant, error) {
	if s.Lister == nil {
		return nil, models.ErrUnavailable
	}
	var (
		all   []models.Participant
		after string
	)
	for i := 0; i < maxPages; i++ {
		page, err := s.Lister.EventUsers(ctx, guildID, event.ID, after, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].ID
	}
	return all, nil
}

// GuildEventUsers follows the guild-keyed listing, unwrapping the
// (users, token) shape page by page.
type GuildEventUsers struct {
	Pager GuildEventUserPager
}

func (s GuildEventUsers) Name() string { return "guild-event-users" }

func (s GuildEventUsers) Interested(ctx context.Context, guildID string, event models.ScheduledEvent) ([]models.Participant, error) {
	if s.Pager == nil {
		return nil, models.ErrUnavailable
	}
	var (
		all   []models.Participant
		token string
	)
	for i := 0; i < maxPages; i++ {
		page, err := s.Pager.GuildEventUsers(ctx, guildID, event.ID, token)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			// Keep what the first pages produced.
			return all, nil
		}
		all = append(all, page.Users...)
		if page.Next == "" || page.Next == token {
			break
		}
		token = page.Next
	}
	return all, nil
}

// EventAttribute reads the list embedded in the event payload itself.
type EventAttribute struct{}

func (EventAttribute) Name() string { return "event-attribute" }

func (EventAttribute) Interested(_ context.Context, _ string, event models.ScheduledEvent) ([]models.Participant, error) {
	if event.Users == nil {
		return nil, fmt.Errorf("event %s carries no user list: %w", event.ID, models.ErrUnavailable)
	}
	return event.Users, nil
}

// Package resolver answers "who is interested in this scheduled event".
//
// The platform exposes that list through several calls whose availability
// and response shape vary. Each call is wrapped in a named Strategy; the
// Resolver walks them in order and accepts the first one that returns without
// error, even when the list it returns is empty. Failures never leave this
// package: the worst outcome for a caller is an empty list.
package resolver

import (
	"context"
	"errors"
	"log"

	"forum-reminder-bot/models"
)

// Strategy is one way of retrieving the interested users of an event.
// Returning models.ErrUnavailable (or any error) hands over to the next one.
type Strategy interface {
	Name() string
	Interested(ctx context.Context, guildID string, event models.ScheduledEvent) ([]models.Participant, error)
}

// Resolver tries its strategies in order.
type Resolver struct {
	strategies []Strategy
}

// New returns a resolver using strategies in the given order.
func New(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Strategies lists the configured strategy names in order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// InterestedUsers returns the canonical, de-duplicated participant list.
func (r *Resolver) InterestedUsers(ctx context.Context, guildID string, event models.ScheduledEvent) []models.Participant {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			return nil
		}
		users, err := s.Interested(ctx, guildID, event)
		if err != nil {
			if !errors.Is(err, models.ErrUnavailable) {
				log.Printf("Resolver strategy %s failed for event %s: %v", s.Name(), event.ID, err)
			}
			continue
		}
		return dedupe(users)
	}
	log.Printf("No resolver strategy succeeded for event %s (guild %s)", event.ID, guildID)
	return nil
}

func dedupe(users []models.Participant) []models.Participant {
	seen := make(map[string]struct{}, len(users))
	out := make([]models.Participant, 0, len(users))
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}

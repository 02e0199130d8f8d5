package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Requester performs an authenticated raw API call. *discordgo.Session
// satisfies it and signs requests with the bot token.
type Requester interface {
	Request(method, urlStr string, data interface{}, options ...discordgo.RequestOption) ([]byte, error)
}

// REST is the last resort: a raw call against the public API.
type REST struct {
	Client Requester
	// Base is the API root, discordgo.EndpointAPI when empty.
	Base string
}

func (s REST) Name() string { return "rest" }

func (s REST) Interested(ctx context.Context, guildID string, event models.ScheduledEvent) ([]models.Participant, error) {
	if s.Client == nil {
		return nil, models.ErrUnavailable
	}
	base := s.Base
	if base == "" {
		base = discordgo.EndpointAPI
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	url := fmt.Sprintf("%sguilds/%s/scheduled-events/%s/users?with_member=true&limit=%d", base, guildID, event.ID, pageSize)

	body, err := s.Client.Request(http.MethodGet, url, nil, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("raw user listing: %w", err)
	}
	return ParseEventUsers(body)
}

// flexID accepts an ID encoded as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type restUser struct {
	ID         flexID `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	GlobalName string `json:"global_name"`
}

type restItem struct {
	restUser
	User   *restUser `json:"user"`
	Member *struct {
		Nick string `json:"nick"`
	} `json:"member"`
}

// ParseEventUsers decodes a JSON array whose elements are either
// {user:{...}, member:{...}} wrappers or bare user objects. Elements
// without an ID are skipped.
func ParseEventUsers(body []byte) ([]models.Participant, error) {
	var items []restItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode event users: %w", err)
	}

	out := make([]models.Participant, 0, len(items))
	for _, item := range items {
		u := item.restUser
		if item.User != nil {
			u = *item.User
		}
		if u.ID == "" {
			continue
		}
		name := u.Username
		if name == "" {
			name = u.Name
		}
		if name == "" {
			name = string(u.ID)
		}
		display := name
		if u.GlobalName != "" {
			display = u.GlobalName
		}
		if item.User != nil && item.Member != nil && item.Member.Nick != "" {
			display = item.Member.Nick
		}
		out = append(out, models.Participant{ID: string(u.ID), Name: name, DisplayName: display})
	}
	return out, nil
}

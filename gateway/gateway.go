// Package gateway adapts a discordgo session to the small platform
// interfaces the reminder, resolver and lifecycle packages consume.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// Gateway wraps a live session. Reads prefer the state cache and fall back
// to REST.
type Gateway struct {
	s *discordgo.Session
}

// New wraps s.
func New(s *discordgo.Session) *Gateway {
	return &Gateway{s: s}
}

// Session exposes the wrapped session for raw calls.
func (g *Gateway) Session() *discordgo.Session { return g.s }

// mapErr turns REST 404 and 403 responses into the model sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", models.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", models.ErrPermissionDenied, err)
		}
	}
	return err
}

func toGuild(g *discordgo.Guild) models.Guild {
	return models.Guild{ID: g.ID, Name: g.Name, SystemChannelID: g.SystemChannelID}
}

// Guilds lists the guilds the session is in.
func (g *Gateway) Guilds() []models.Guild {
	g.s.State.RLock()
	defer g.s.State.RUnlock()

	out := make([]models.Guild, 0, len(g.s.State.Guilds))
	for _, gd := range g.s.State.Guilds {
		out = append(out, toGuild(gd))
	}
	return out
}

// Guild returns one guild, from cache when possible.
func (g *Gateway) Guild(guildID string) (models.Guild, error) {
	if gd, err := g.s.State.Guild(guildID); err == nil {
		return toGuild(gd), nil
	}
	gd, err := g.s.Guild(guildID)
	if err != nil {
		return models.Guild{}, mapErr(err)
	}
	return toGuild(gd), nil
}

func (g *Gateway) channel(channelID string, opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := g.s.Channel(channelID, opts...)
	if err != nil {
		return nil, mapErr(err)
	}
	return ch, nil
}

// Channel returns a channel summary.
func (g *Gateway) Channel(channelID string) (models.Channel, error) {
	ch, err := g.channel(channelID)
	if err != nil {
		return models.Channel{}, err
	}
	return models.Channel{ID: ch.ID, Name: ch.Name, GuildID: ch.GuildID}, nil
}

// CanSend reports whether the bot may post in the channel according to the
// cached permission overwrites. Unknown channels are not sendable.
func (g *Gateway) CanSend(channelID string) bool {
	if g.s.State.User == nil {
		return false
	}
	ch, err := g.s.State.Channel(channelID)
	if err != nil {
		return false
	}
	perms, err := g.s.State.UserChannelPermissions(g.s.State.User.ID, channelID)
	if err != nil {
		return false
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)
	if ch.IsThread() {
		need = discordgo.PermissionViewChannel | discordgo.PermissionSendMessagesInThreads
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&need == need
}

// TextChannels lists the guild's text and announcement channels in display
// order.
func (g *Gateway) TextChannels(guildID string) []string {
	gd, err := g.s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	g.s.State.RLock()
	var chans []*discordgo.Channel
	for _, ch := range gd.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews {
			chans = append(chans, ch)
		}
	}
	g.s.State.RUnlock()

	sort.SliceStable(chans, func(i, j int) bool { return chans[i].Position < chans[j].Position })
	ids := make([]string, len(chans))
	for i, ch := range chans {
		ids[i] = ch.ID
	}
	return ids
}

// VoiceMembers lists the users connected to a voice channel.
func (g *Gateway) VoiceMembers(guildID, channelID string) []string {
	gd, err := g.s.State.Guild(guildID)
	if err != nil {
		return nil
	}

	g.s.State.RLock()
	defer g.s.State.RUnlock()
	var ids []string
	for _, vs := range gd.VoiceStates {
		if vs.ChannelID == channelID {
			ids = append(ids, vs.UserID)
		}
	}
	return ids
}

// Send posts a message to a channel.
func (g *Gateway) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	_, err := g.s.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	return mapErr(err)
}

// DirectMessage opens (or reuses) a DM channel and posts to it.
func (g *Gateway) DirectMessage(ctx context.Context, userID string, msg *discordgo.MessageSend) error {
	dm, err := g.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapErr(err)
	}
	return g.Send(ctx, dm.ID, msg)
}

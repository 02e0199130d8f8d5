package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// auditLogLimit is how many thread update entries LockedAt scans.
const auditLogLimit = 100

// ToThread converts a thread channel. parentType is the type of its parent
// channel when known.
func ToThread(ch *discordgo.Channel, parentType discordgo.ChannelType) models.Thread {
	t := models.Thread{
		ID:       ch.ID,
		Name:     ch.Name,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Forum:    parentType == discordgo.ChannelTypeGuildForum,
	}
	if ch.ThreadMetadata != nil {
		t.Locked = ch.ThreadMetadata.Locked
		t.Archived = ch.ThreadMetadata.Archived
	}
	if created, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		t.CreatedAt = created
	}
	return t
}

func (g *Gateway) parentType(parentID string) discordgo.ChannelType {
	if parentID == "" {
		return -1
	}
	if p, err := g.s.State.Channel(parentID); err == nil {
		return p.Type
	}
	return -1
}

// ThreadFrom converts a thread channel, looking its parent up in the cache.
func (g *Gateway) ThreadFrom(ch *discordgo.Channel) models.Thread {
	return ToThread(ch, g.parentType(ch.ParentID))
}

// CachedThread reads the thread from the state cache only.
func (g *Gateway) CachedThread(threadID string) (models.Thread, bool) {
	ch, err := g.s.State.Channel(threadID)
	if err != nil || !ch.IsThread() {
		return models.Thread{}, false
	}
	return g.ThreadFrom(ch), true
}

// Thread fetches the current thread state over REST, bypassing the cache.
func (g *Gateway) Thread(ctx context.Context, threadID string) (models.Thread, error) {
	ch, err := g.s.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		return models.Thread{}, mapErr(err)
	}
	if !ch.IsThread() {
		return models.Thread{}, fmt.Errorf("channel %s is not a thread: %w", threadID, models.ErrNotFound)
	}
	return g.ThreadFrom(ch), nil
}

// ActiveThreads lists the guild's unarchived threads.
func (g *Gateway) ActiveThreads(ctx context.Context, guildID string) ([]models.Thread, error) {
	list, err := g.s.GuildThreadsActive(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]models.Thread, 0, len(list.Threads))
	for _, ch := range list.Threads {
		out = append(out, g.ThreadFrom(ch))
	}
	return out, nil
}

func (g *Gateway) editThread(ctx context.Context, threadID string, edit *discordgo.ChannelEdit) error {
	_, err := g.s.ChannelEdit(threadID, edit, discordgo.WithContext(ctx))
	return mapErr(err)
}

// LockThread sets the locked flag.
func (g *Gateway) LockThread(ctx context.Context, threadID string) error {
	locked := true
	return g.editThread(ctx, threadID, &discordgo.ChannelEdit{Locked: &locked})
}

// ArchiveThread sets the archived flag through the regular edit call.
func (g *Gateway) ArchiveThread(ctx context.Context, threadID string) error {
	archived := true
	return g.editThread(ctx, threadID, &discordgo.ChannelEdit{Archived: &archived})
}

// PatchArchived sends the bare PATCH body, skipping the edit payload.
func (g *Gateway) PatchArchived(ctx context.Context, threadID string) error {
	endpoint := discordgo.EndpointChannel(threadID)
	_, err := g.s.RequestWithBucketID(http.MethodPatch, endpoint, map[string]bool{"archived": true}, endpoint, discordgo.WithContext(ctx))
	return mapErr(err)
}

// DeleteThread deletes the thread.
func (g *Gateway) DeleteThread(ctx context.Context, threadID string) error {
	_, err := g.s.ChannelDelete(threadID, discordgo.WithContext(ctx))
	return mapErr(err)
}

// LockedAt searches the recent thread update entries of the audit log for
// the one that locked threadID.
func (g *Gateway) LockedAt(ctx context.Context, guildID, threadID string) (time.Time, bool) {
	audit, err := g.s.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionThreadUpdate), auditLogLimit, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("Audit log lookup for thread %s failed: %v", threadID, mapErr(err))
		return time.Time{}, false
	}
	return LockedAtFrom(audit.AuditLogEntries, threadID)
}

// LockedAtFrom returns the time of the newest entry that switched threadID to
// locked. Entries are expected newest first.
func LockedAtFrom(entries []*discordgo.AuditLogEntry, threadID string) (time.Time, bool) {
	for _, e := range entries {
		if e == nil || e.TargetID != threadID {
			continue
		}
		for _, c := range e.Changes {
			if c == nil || c.Key == nil || *c.Key != discordgo.AuditLogChangeKeyLocked {
				continue
			}
			if locked, ok := c.NewValue.(bool); !ok || !locked {
				continue
			}
			at, err := discordgo.SnowflakeTimestamp(e.ID)
			if err != nil {
				return time.Time{}, false
			}
			return at.UTC(), true
		}
	}
	return time.Time{}, false
}

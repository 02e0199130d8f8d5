// Package lifecycle drives forum threads through open, closed, archived and
// deleted.
//
// Nothing here sleeps until a deadline. The closure time is persisted when a
// thread is closed and the periodic sweep re-derives what is due from those
// records, so a restart picks up exactly where the previous process stopped.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// ErrNotArchived is returned when every archive path reported success but the
// thread is still open for replies.
var ErrNotArchived = errors.New("thread is still not archived")

// Platform is the slice of the messaging platform the manager uses.
// Lookups report a vanished thread with models.ErrNotFound.
type Platform interface {
	Guilds() []models.Guild
	Guild(guildID string) (models.Guild, error)

	CachedThread(threadID string) (models.Thread, bool)
	Thread(ctx context.Context, threadID string) (models.Thread, error)
	ActiveThreads(ctx context.Context, guildID string) ([]models.Thread, error)

	LockThread(ctx context.Context, threadID string) error
	ArchiveThread(ctx context.Context, threadID string) error
	// PatchArchived is the raw API fallback for ArchiveThread.
	PatchArchived(ctx context.Context, threadID string) error
	DeleteThread(ctx context.Context, threadID string) error

	Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error
	DirectMessage(ctx context.Context, userID string, msg *discordgo.MessageSend) error

	// LockedAt looks up when the thread was locked in the audit log.
	LockedAt(ctx context.Context, guildID, threadID string) (time.Time, bool)
}

// Records is the persisted closure map.
type Records interface {
	ClosedAt(threadID string) (time.Time, bool)
	MarkClosed(threadID string, at time.Time) error
	ForgetClosed(threadID string) (bool, error)
	ClosedThreads() map[string]time.Time
}

// Manager implements the thread state machine.
type Manager struct {
	platform Platform
	records  Records
	cfg      models.ThreadConfig
	loc      *time.Location
	now      func() time.Time
}

// New builds a manager. loc only affects dates shown to humans.
func New(platform Platform, records Records, cfg models.ThreadConfig, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		platform: platform,
		records:  records,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
	}
}

// Result reports the state of a thread after an operation.
type Result struct {
	Thread   models.Thread
	State    models.ThreadState
	Changed  bool
	ClosedAt time.Time
	// ConfirmedIn is where the archive confirmation was posted:
	// "dm", a channel ID, or empty when nothing could be posted.
	ConfirmedIn string
}

func (m *Manager) result(t models.Thread, changed bool) Result {
	r := Result{Thread: t, State: t.State(), Changed: changed}
	if at, ok := m.records.ClosedAt(t.ID); ok {
		r.ClosedAt = at
	}
	return r
}

// StateOf fetches the thread and derives its state. A thread that no longer
// exists is reported as deleted.
func (m *Manager) StateOf(ctx context.Context, threadID string) (models.ThreadState, error) {
	t, err := m.platform.Thread(ctx, threadID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ThreadDeleted, nil
	}
	if err != nil {
		return "", err
	}
	return t.State(), nil
}

// Close locks the thread, records the closure time, posts the notice and
// archives it right away. Closing a closed or archived thread changes nothing.
func (m *Manager) Close(ctx context.Context, threadID string, actor models.Actor) (Result, error) {
	t, err := m.platform.Thread(ctx, threadID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	if t.Archived || t.Locked {
		return m.result(t, false), nil
	}

	// Recorded before locking so the gateway update for our own lock finds
	// the thread already tracked.
	if err := m.records.MarkClosed(threadID, m.now()); err != nil {
		log.Printf("Could not persist closure of thread %s: %v", threadID, err)
	}
	if err := m.platform.LockThread(ctx, threadID); err != nil {
		if _, ferr := m.records.ForgetClosed(threadID); ferr != nil {
			log.Printf("Could not drop closure of thread %s: %v", threadID, ferr)
		}
		return m.result(t, false), fmt.Errorf("lock thread %s: %w", threadID, err)
	}
	t.Locked = true
	log.Printf("Thread '%s' closed by %s", t.Name, actor.Name)
	m.notice(ctx, t, "🔒 This post has been **closed**. It will be archived automatically.")

	res, err := m.Archive(ctx, threadID, actor)
	res.Changed = true
	return res, err
}

// Archive sets the archived flag and verifies it by re-fetching, falling
// back to a raw PATCH when the edit did not stick. The confirmation is never
// posted inside the thread, since that would unarchive it.
func (m *Manager) Archive(ctx context.Context, threadID string, actor models.Actor) (Result, error) {
	t, err := m.platform.Thread(ctx, threadID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch thread %s: %w", threadID, err)
	}
	if t.Archived {
		return m.result(t, false), nil
	}

	if err := m.platform.ArchiveThread(ctx, threadID); err != nil {
		return m.result(t, false), fmt.Errorf("archive thread %s: %w", threadID, err)
	}
	t, err = m.verifyArchived(ctx, t)
	if err != nil {
		return m.result(t, false), err
	}

	res := m.result(t, true)
	res.ConfirmedIn = m.confirm(ctx, t, actor, fmt.Sprintf("📦 The post **%s** has been archived.", t.Name))
	log.Printf("Thread '%s' archived (confirmation: %q)", t.Name, res.ConfirmedIn)
	return res, nil
}

func (m *Manager) verifyArchived(ctx context.Context, t models.Thread) (models.Thread, error) {
	fresh, err := m.platform.Thread(ctx, t.ID)
	if err != nil {
		return t, fmt.Errorf("re-fetch thread %s: %w", t.ID, err)
	}
	if fresh.Archived {
		return fresh, nil
	}

	log.Printf("Thread %s still open after edit, patching archived flag directly", t.ID)
	if err := m.platform.PatchArchived(ctx, t.ID); err != nil {
		return fresh, fmt.Errorf("patch thread %s: %w", t.ID, err)
	}
	fresh, err = m.platform.Thread(ctx, t.ID)
	if err != nil {
		return t, fmt.Errorf("re-fetch thread %s: %w", t.ID, err)
	}
	if !fresh.Archived {
		return fresh, fmt.Errorf("thread %s: %w", t.ID, ErrNotArchived)
	}
	return fresh, nil
}

// confirm posts outside the thread: a DM to the actor, else the guild
// system channel, else the invoking channel when it is not the thread.
func (m *Manager) confirm(ctx context.Context, t models.Thread, actor models.Actor, text string) string {
	msg := &discordgo.MessageSend{Content: text}

	if actor.UserID != "" {
		err := m.platform.DirectMessage(ctx, actor.UserID, msg)
		if err == nil {
			return "dm"
		}
		log.Printf("Could not DM %s: %v", actor.UserID, err)
	}

	var targets []string
	if g, err := m.platform.Guild(t.GuildID); err == nil && g.SystemChannelID != "" {
		targets = append(targets, g.SystemChannelID)
	}
	if actor.ChannelID != "" && actor.ChannelID != t.ID {
		targets = append(targets, actor.ChannelID)
	}
	for _, ch := range targets {
		if err := m.platform.Send(ctx, ch, msg); err != nil {
			log.Printf("Could not post confirmation in %s: %v", ch, err)
			continue
		}
		return ch
	}
	return ""
}

func (m *Manager) notice(ctx context.Context, t models.Thread, text string) {
	if err := m.platform.Send(ctx, t.ID, &discordgo.MessageSend{Content: text}); err != nil {
		log.Printf("Could not post notice in thread %s: %v", t.ID, err)
	}
}

// ObserveUpdate reacts to a thread change seen on the gateway. before is nil
// when the previous state was not cached. Only forum posts are tracked.
func (m *Manager) ObserveUpdate(ctx context.Context, before *models.Thread, after models.Thread) error {
	_, tracked := m.records.ClosedAt(after.ID)

	switch {
	case after.Forum && after.Locked && !tracked && (before == nil || !before.Locked):
		if err := m.records.MarkClosed(after.ID, m.now()); err != nil {
			return fmt.Errorf("record closure of %s: %w", after.ID, err)
		}
		log.Printf("Thread '%s' was closed", after.Name)
		if !after.Archived {
			m.notice(ctx, after, "🔒 This post has been **closed**. It will be archived automatically.")
		}

	case !after.Locked && tracked && (before == nil || before.Locked):
		if _, err := m.records.ForgetClosed(after.ID); err != nil {
			return fmt.Errorf("drop closure of %s: %w", after.ID, err)
		}
		log.Printf("Thread '%s' was reopened, closure record dropped", after.Name)
	}
	return nil
}

// ObserveDelete drops the record of a thread deleted outside the sweep.
func (m *Manager) ObserveDelete(threadID string) error {
	removed, err := m.records.ForgetClosed(threadID)
	if err != nil {
		return fmt.Errorf("drop closure of %s: %w", threadID, err)
	}
	if removed {
		log.Printf("Tracked thread %s was deleted, closure record dropped", threadID)
	}
	return nil
}

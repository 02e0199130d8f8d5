package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
)

// SweepReport counts what one sweep did.
type SweepReport struct {
	Archived  int
	Deleted   int
	Forgotten int
}

// Sweep walks the closure records. Threads past ArchiveAfter that are still
// locked get archived; threads past DeleteAfter that are still locked get
// deleted. A reopened thread loses its record instead. A failed delete
// keeps its record so the next sweep tries again.
func (m *Manager) Sweep(ctx context.Context) (SweepReport, error) {
	var (
		report SweepReport
		errs   []error
	)
	now := m.now()
	closed := m.records.ClosedThreads()

	ids := make([]string, 0, len(closed))
	for id := range closed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		age := now.Sub(closed[id])

		var err error
		switch {
		case age >= m.cfg.DeleteAfter:
			err = m.purge(ctx, id, closed[id], &report)
		case age >= m.cfg.ArchiveAfter:
			err = m.archiveDue(ctx, id, &report)
		}
		if err != nil {
			log.Printf("Sweep of thread %s failed: %v", id, err)
			errs = append(errs, fmt.Errorf("thread %s: %w", id, err))
		}
	}
	return report, errors.Join(errs...)
}

func (m *Manager) forget(id string, report *SweepReport) error {
	if _, err := m.records.ForgetClosed(id); err != nil {
		return err
	}
	report.Forgotten++
	return nil
}

func (m *Manager) archiveDue(ctx context.Context, id string, report *SweepReport) error {
	t, err := m.platform.Thread(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("Closed thread %s is gone, dropping its record", id)
		return m.forget(id, report)
	}
	if err != nil {
		return err
	}

	switch {
	case t.Archived:
		return nil
	case !t.Locked:
		log.Printf("Thread '%s' was reopened before archival, dropping its record", t.Name)
		return m.forget(id, report)
	}

	res, err := m.Archive(ctx, id, models.Actor{GuildID: t.GuildID})
	if err != nil {
		return err
	}
	if res.Changed {
		report.Archived++
	}
	return nil
}

func (m *Manager) purge(ctx context.Context, id string, closedAt time.Time, report *SweepReport) error {
	t, err := m.resolve(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("Thread %s no longer exists, dropping its record", id)
		return m.forget(id, report)
	}
	if err != nil {
		return err
	}
	if !t.Locked {
		log.Printf("Thread '%s' was reopened, dropping its record instead of deleting it", t.Name)
		return m.forget(id, report)
	}

	err = m.platform.DeleteThread(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return m.forget(id, report)
	}
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	report.Deleted++
	log.Printf("Thread '%s' deleted, closed on %s", t.Name, closedAt.Format(time.RFC3339))
	if _, err := m.records.ForgetClosed(id); err != nil {
		return err
	}

	if m.cfg.NotifyOnDelete {
		m.announceDeletion(ctx, t, closedAt)
	}
	return nil
}

// resolve finds the thread through the state cache, a direct fetch, then the
// active thread listing of every guild. ErrNotFound only when all agree.
func (m *Manager) resolve(ctx context.Context, id string) (models.Thread, error) {
	if t, ok := m.platform.CachedThread(id); ok {
		return t, nil
	}

	var errs []error
	t, err := m.platform.Thread(ctx, id)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		errs = append(errs, err)
	}

	for _, g := range m.platform.Guilds() {
		threads, err := m.platform.ActiveThreads(ctx, g.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, t := range threads {
			if t.ID == id {
				return t, nil
			}
		}
	}

	if len(errs) > 0 {
		return models.Thread{}, errors.Join(errs...)
	}
	return models.Thread{}, models.ErrNotFound
}

func (m *Manager) announceDeletion(ctx context.Context, t models.Thread, closedAt time.Time) {
	g, err := m.platform.Guild(t.GuildID)
	if err != nil || g.SystemChannelID == "" {
		return
	}
	text := fmt.Sprintf("🗑️ The post **%s** was deleted, %s after it was closed (%s).",
		t.Name, humanDuration(m.cfg.DeleteAfter), closedAt.In(m.loc).Format("2006-01-02 15:04"))
	if err := m.platform.Send(ctx, g.SystemChannelID, &discordgo.MessageSend{Content: text}); err != nil {
		log.Printf("Could not announce deletion of %s: %v", t.ID, err)
	}
}

// Backfill tracks forum threads that were locked before the bot watched
// them. The closure time comes from the audit log when it has an entry, else
// now. It returns how many threads were picked up.
func (m *Manager) Backfill(ctx context.Context) (int, error) {
	var (
		count int
		errs  []error
	)
	for _, g := range m.platform.Guilds() {
		threads, err := m.platform.ActiveThreads(ctx, g.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", g.ID, err))
			continue
		}
		for _, t := range threads {
			if !t.Forum || !t.Locked || t.Archived {
				continue
			}
			if _, ok := m.records.ClosedAt(t.ID); ok {
				continue
			}

			at, ok := m.platform.LockedAt(ctx, g.ID, t.ID)
			if !ok {
				at = m.now()
			}
			if err := m.records.MarkClosed(t.ID, at); err != nil {
				errs = append(errs, fmt.Errorf("thread %s: %w", t.ID, err))
				continue
			}
			count++
			log.Printf("Backfilled closed thread '%s' (closed %s)", t.Name, at.Format(time.RFC3339))
			m.notice(ctx, t, "📦 This post is already closed. It will be archived automatically.")
		}
	}
	return count, errors.Join(errs...)
}

// Entry is one row of the thread listing.
type Entry struct {
	Thread   models.Thread
	State    models.ThreadState
	ClosedAt time.Time
	// ArchiveAt and DeleteAt are zero for untracked threads.
	ArchiveAt time.Time
	DeleteAt  time.Time
}

// List returns the open forum threads of the guild and every tracked thread
// that belongs to it, with their scheduled archive and delete dates.
func (m *Manager) List(ctx context.Context, guildID string) ([]Entry, error) {
	active, err := m.platform.ActiveThreads(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}

	closed := m.records.ClosedThreads()
	seen := make(map[string]struct{}, len(active))
	var out []Entry

	for _, t := range active {
		_, tracked := closed[t.ID]
		if !t.Forum && !tracked {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, m.entry(t, closed))
	}

	for id := range closed {
		if _, ok := seen[id]; ok {
			continue
		}
		t, ok := m.platform.CachedThread(id)
		if !ok {
			t, err = m.platform.Thread(ctx, id)
			if errors.Is(err, models.ErrNotFound) {
				// Unknown guild once deleted; the next sweep prunes it.
				continue
			}
			if err != nil {
				log.Printf("Could not fetch tracked thread %s: %v", id, err)
				continue
			}
		}
		if t.GuildID != guildID {
			continue
		}
		out = append(out, m.entry(t, closed))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ClosedAt.IsZero() != b.ClosedAt.IsZero() {
			return a.ClosedAt.IsZero()
		}
		if !a.ClosedAt.Equal(b.ClosedAt) {
			return a.ClosedAt.Before(b.ClosedAt)
		}
		return a.Thread.Name < b.Thread.Name
	})
	return out, nil
}

func (m *Manager) entry(t models.Thread, closed map[string]time.Time) Entry {
	e := Entry{Thread: t, State: t.State()}
	if at, ok := closed[t.ID]; ok {
		e.ClosedAt = at
		e.ArchiveAt = at.Add(m.cfg.ArchiveAfter)
		e.DeleteAt = at.Add(m.cfg.DeleteAfter)
	}
	return e
}

// Location is the zone used for dates shown to humans.
func (m *Manager) Location() *time.Location { return m.loc }

func humanDuration(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d == day:
		return "1 day"
	case d > day && d%day == 0:
		return fmt.Sprintf("%d days", d/day)
	default:
		return d.String()
	}
}

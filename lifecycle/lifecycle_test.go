package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"forum-reminder-bot/database"
	"forum-reminder-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	channel string
	content string
}

type fakePlatform struct {
	guilds   []models.Guild
	threads  map[string]*models.Thread
	cached   map[string]bool
	lockedAt map[string]time.Time

	editIgnored  bool // ArchiveThread reports success without effect
	patchIgnored bool
	deleteErr    error
	dmErr        error
	fetchErr     error

	patched []string
	deleted []string
	posts   []post
	dms     []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		guilds:   []models.Guild{{ID: "1", Name: "guild", SystemChannelID: "10"}},
		threads:  map[string]*models.Thread{},
		cached:   map[string]bool{},
		lockedAt: map[string]time.Time{},
	}
}

func (f *fakePlatform) add(t models.Thread) {
	if t.GuildID == "" {
		t.GuildID = "1"
	}
	f.threads[t.ID] = &t
}

func (f *fakePlatform) Guilds() []models.Guild { return f.guilds }

func (f *fakePlatform) Guild(id string) (models.Guild, error) {
	for _, g := range f.guilds {
		if g.ID == id {
			return g, nil
		}
	}
	return models.Guild{}, models.ErrNotFound
}

func (f *fakePlatform) CachedThread(id string) (models.Thread, bool) {
	t, ok := f.threads[id]
	if !ok || !f.cached[id] {
		return models.Thread{}, false
	}
	return *t, true
}

func (f *fakePlatform) Thread(_ context.Context, id string) (models.Thread, error) {
	if f.fetchErr != nil {
		return models.Thread{}, f.fetchErr
	}
	t, ok := f.threads[id]
	if !ok {
		return models.Thread{}, models.ErrNotFound
	}
	return *t, nil
}

func (f *fakePlatform) ActiveThreads(_ context.Context, guildID string) ([]models.Thread, error) {
	var out []models.Thread
	for _, t := range f.threads {
		if t.GuildID == guildID && !t.Archived {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakePlatform) LockThread(_ context.Context, id string) error {
	t, ok := f.threads[id]
	if !ok {
		return models.ErrNotFound
	}
	t.Locked = true
	return nil
}

func (f *fakePlatform) ArchiveThread(_ context.Context, id string) error {
	t, ok := f.threads[id]
	if !ok {
		return models.ErrNotFound
	}
	if !f.editIgnored {
		t.Archived = true
	}
	return nil
}

func (f *fakePlatform) PatchArchived(_ context.Context, id string) error {
	f.patched = append(f.patched, id)
	if !f.patchIgnored {
		f.threads[id].Archived = true
	}
	return nil
}

func (f *fakePlatform) DeleteThread(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.threads[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.threads, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePlatform) Send(_ context.Context, channelID string, msg *discordgo.MessageSend) error {
	f.posts = append(f.posts, post{channel: channelID, content: msg.Content})
	return nil
}

func (f *fakePlatform) DirectMessage(_ context.Context, userID string, _ *discordgo.MessageSend) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms = append(f.dms, userID)
	return nil
}

func (f *fakePlatform) LockedAt(_ context.Context, _, threadID string) (time.Time, bool) {
	at, ok := f.lockedAt[threadID]
	return at, ok
}

func (f *fakePlatform) postsIn(channel string) []string {
	var out []string
	for _, p := range f.posts {
		if p.channel == channel {
			out = append(out, p.content)
		}
	}
	return out
}

var (
	closedAt = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	defaults = models.ThreadConfig{ArchiveAfter: 24 * time.Hour, DeleteAfter: 7 * 24 * time.Hour, NotifyOnDelete: true}
)

type harness struct {
	platform *fakePlatform
	store    *database.Store
	mgr      *Manager
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, err := database.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store := database.NewStore(backend)
	store.Load()

	h := &harness{platform: newFakePlatform(), store: store, now: closedAt}
	h.mgr = New(h.platform, store, defaults, time.UTC)
	h.mgr.now = func() time.Time { return h.now }
	return h
}

func TestDesignReviewPurgeBoundary(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "Design Review", Forum: true, Locked: true, Archived: true})
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(6*24*time.Hour + 23*time.Hour)
	report, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
	assert.Contains(t, h.platform.threads, "42")
	_, tracked := h.store.ClosedAt("42")
	assert.True(t, tracked)

	h.now = closedAt.Add(7*24*time.Hour + time.Hour)
	report, err = h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, []string{"42"}, h.platform.deleted)
	_, tracked = h.store.ClosedAt("42")
	assert.False(t, tracked, "record removed after delete")

	notices := h.platform.postsIn("10")
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "Design Review")
	assert.Contains(t, notices[0], "7 days")
}

func TestSweepDeletesAtExactlyOneWeek(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true, Archived: true})
	h.platform.cached["42"] = true
	h.platform.fetchErr = errors.New("must resolve from the cache")
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(7 * 24 * time.Hour)
	_, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, h.platform.deleted)
}

func TestSweepDropsRecordOfVanishedThread(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.MarkClosed("77", closedAt))

	h.now = closedAt.Add(8 * 24 * time.Hour)
	report, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Forgotten)
	assert.Empty(t, h.platform.deleted)
	assert.Empty(t, h.store.ClosedThreads())
}

func TestSweepKeepsRecordWhenDeleteFails(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true, Archived: true})
	h.platform.deleteErr = models.ErrPermissionDenied
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(8 * 24 * time.Hour)
	_, err := h.mgr.Sweep(context.Background())
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
	_, tracked := h.store.ClosedAt("42")
	assert.True(t, tracked)

	h.platform.deleteErr = nil
	_, err = h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.ClosedThreads())
}

func TestSweepKeepsRecordWhenLookupIsTransient(t *testing.T) {
	h := newHarness(t)
	h.platform.fetchErr = errors.New("HTTP 502")
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(8 * 24 * time.Hour)
	_, err := h.mgr.Sweep(context.Background())
	assert.Error(t, err)
	_, tracked := h.store.ClosedAt("42")
	assert.True(t, tracked)
}

func TestPurgeFindsThreadThroughGuildListing(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true})
	require.NoError(t, h.store.MarkClosed("42", closedAt))
	h.platform.fetchErr = models.ErrNotFound

	h.now = closedAt.Add(8 * 24 * time.Hour)
	_, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, h.platform.deleted)
}

func TestSweepArchivesAfterOneDay(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "RFC", Locked: true})
	h.platform.add(models.Thread{ID: "43", Name: "Fresh", Locked: true})
	require.NoError(t, h.store.MarkClosed("42", closedAt))
	require.NoError(t, h.store.MarkClosed("43", closedAt.Add(12*time.Hour)))

	h.now = closedAt.Add(25 * time.Hour)
	report, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Archived)
	assert.True(t, h.platform.threads["42"].Archived)
	assert.False(t, h.platform.threads["43"].Archived)
	assert.Empty(t, h.platform.postsIn("42"), "nothing posted inside an archived thread")
	assert.Len(t, h.platform.postsIn("10"), 1)
}

func TestSweepDropsReopenedThread(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "RFC"})
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(25 * time.Hour)
	_, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.False(t, h.platform.threads["42"].Archived)
	assert.Empty(t, h.store.ClosedThreads())
}

func TestPurgeSkipsReopenedThread(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "Reopened", Forum: true})
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	h.now = closedAt.Add(8 * 24 * time.Hour)
	report, err := h.mgr.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
	assert.Equal(t, 1, report.Forgotten)
	assert.Empty(t, h.platform.deleted)
	assert.Contains(t, h.platform.threads, "42")
	assert.Empty(t, h.store.ClosedThreads())
	assert.Empty(t, h.platform.postsIn("10"), "no deletion notice")
}

func TestCloseLocksRecordsAndArchives(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "Bug", Forum: true})

	res, err := h.mgr.Close(context.Background(), "42", models.Actor{UserID: "7", Name: "mod", ChannelID: "42"})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, models.ThreadArchived, res.State)
	assert.Equal(t, closedAt, res.ClosedAt)
	assert.Equal(t, "dm", res.ConfirmedIn)
	assert.Equal(t, []string{"7"}, h.platform.dms)

	inThread := h.platform.postsIn("42")
	require.Len(t, inThread, 1, "only the close notice, posted before archiving")
	assert.Contains(t, inThread[0], "closed")
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true})
	h.platform.add(models.Thread{ID: "43", Locked: true, Archived: true})
	require.NoError(t, h.store.MarkClosed("42", closedAt.Add(-time.Hour)))

	res, err := h.mgr.Close(context.Background(), "42", models.Actor{UserID: "7"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, models.ThreadClosed, res.State)
	assert.Equal(t, closedAt.Add(-time.Hour), res.ClosedAt)

	res, err = h.mgr.Close(context.Background(), "43", models.Actor{UserID: "7"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, models.ThreadArchived, res.State)

	assert.Empty(t, h.platform.posts)
	assert.Empty(t, h.platform.dms)
}

func TestArchiveFallsBackToPatch(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true})
	h.platform.editIgnored = true

	res, err := h.mgr.Archive(context.Background(), "42", models.Actor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, h.platform.patched)
	assert.Equal(t, models.ThreadArchived, res.State)
}

func TestArchiveReportsFailureWhenNothingSticks(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true})
	h.platform.editIgnored = true
	h.platform.patchIgnored = true

	_, err := h.mgr.Archive(context.Background(), "42", models.Actor{})
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestConfirmationNeverGoesIntoTheThread(t *testing.T) {
	h := newHarness(t)
	h.platform.guilds[0].SystemChannelID = ""
	h.platform.dmErr = errors.New("cannot DM")
	h.platform.add(models.Thread{ID: "42", Locked: true})
	h.platform.add(models.Thread{ID: "43", Locked: true})

	res, err := h.mgr.Archive(context.Background(), "42", models.Actor{UserID: "7", ChannelID: "42"})
	require.NoError(t, err)
	assert.Empty(t, res.ConfirmedIn)
	assert.Empty(t, h.platform.posts)

	res, err = h.mgr.Archive(context.Background(), "43", models.Actor{UserID: "7", ChannelID: "99"})
	require.NoError(t, err)
	assert.Equal(t, "99", res.ConfirmedIn)
}

func TestObserveUpdate(t *testing.T) {
	h := newHarness(t)
	open := models.Thread{ID: "42", Name: "Idea", Forum: true}
	locked := open
	locked.Locked = true

	require.NoError(t, h.mgr.ObserveUpdate(context.Background(), &open, locked))
	at, ok := h.store.ClosedAt("42")
	require.True(t, ok)
	assert.Equal(t, closedAt, at)
	assert.Len(t, h.platform.postsIn("42"), 1)

	// A second update for an already tracked thread changes nothing.
	h.now = closedAt.Add(time.Hour)
	require.NoError(t, h.mgr.ObserveUpdate(context.Background(), nil, locked))
	at, _ = h.store.ClosedAt("42")
	assert.Equal(t, closedAt, at)
	assert.Len(t, h.platform.postsIn("42"), 1)

	require.NoError(t, h.mgr.ObserveUpdate(context.Background(), &locked, open))
	_, ok = h.store.ClosedAt("42")
	assert.False(t, ok, "reopen drops the record")

	side := models.Thread{ID: "77", Name: "Side chat"}
	sideLocked := side
	sideLocked.Locked = true
	require.NoError(t, h.mgr.ObserveUpdate(context.Background(), &side, sideLocked))
	_, ok = h.store.ClosedAt("77")
	assert.False(t, ok, "threads outside forums are not tracked")
	assert.Empty(t, h.platform.postsIn("77"))
}

func TestBackfillUsesAuditLogTime(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "Old", Forum: true, Locked: true})
	h.platform.add(models.Thread{ID: "43", Name: "Older", Forum: true, Locked: true})
	h.platform.add(models.Thread{ID: "44", Name: "Open", Forum: true})
	h.platform.add(models.Thread{ID: "45", Name: "Not a post", Locked: true})
	h.platform.lockedAt["42"] = closedAt.Add(-3 * 24 * time.Hour)

	n, err := h.mgr.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	at, ok := h.store.ClosedAt("42")
	require.True(t, ok)
	assert.Equal(t, closedAt.Add(-3*24*time.Hour), at)
	at, ok = h.store.ClosedAt("43")
	require.True(t, ok)
	assert.Equal(t, closedAt, at)

	n, err = h.mgr.Backfill(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "already tracked")
}

func TestListShowsScheduledDates(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Name: "Open post", Forum: true})
	h.platform.add(models.Thread{ID: "43", Name: "Closed post", Forum: true, Locked: true, Archived: true})
	h.platform.add(models.Thread{ID: "44", Name: "Elsewhere", GuildID: "2", Locked: true})
	require.NoError(t, h.store.MarkClosed("43", closedAt))
	require.NoError(t, h.store.MarkClosed("44", closedAt))

	entries, err := h.mgr.List(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Open post", entries[0].Thread.Name)
	assert.Equal(t, models.ThreadOpen, entries[0].State)
	assert.True(t, entries[0].DeleteAt.IsZero())

	assert.Equal(t, models.ThreadArchived, entries[1].State)
	assert.Equal(t, closedAt.Add(24*time.Hour), entries[1].ArchiveAt)
	assert.Equal(t, closedAt.Add(7*24*time.Hour), entries[1].DeleteAt)
}

func TestStateOf(t *testing.T) {
	h := newHarness(t)
	h.platform.add(models.Thread{ID: "42", Locked: true})

	state, err := h.mgr.StateOf(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, models.ThreadClosed, state)

	state, err = h.mgr.StateOf(context.Background(), "404")
	require.NoError(t, err)
	assert.Equal(t, models.ThreadDeleted, state)
}

func TestObserveDeleteDropsRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.MarkClosed("42", closedAt))

	require.NoError(t, h.mgr.ObserveDelete("42"))
	require.NoError(t, h.mgr.ObserveDelete("42"))
	assert.Empty(t, h.store.ClosedThreads())
}

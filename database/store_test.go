package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"forum-reminder-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	s := NewStore(backend)
	s.Load()
	return s, dir
}

func TestStoreRoundTrip(t *testing.T) {
	s, dir := newFileStore(t)

	changed, err := s.SetOptOut("123", true)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, s.SetReminderChannel("900", "901"))
	closedAt := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.MarkClosed("555", closedAt))

	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	reloaded := NewStore(backend)
	reloaded.Load()

	assert.Equal(t, []string{"123"}, reloaded.OptOutIDs())
	cid, ok := reloaded.ReminderChannel("900")
	require.True(t, ok)
	assert.Equal(t, "901", cid)
	at, ok := reloaded.ClosedAt("555")
	require.True(t, ok)
	assert.True(t, closedAt.Equal(at))
	assert.Equal(t, s.ClosedThreads(), reloaded.ClosedThreads())
}

func TestStoreNormalizesLegacyIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notified_users.json"),
		[]byte(`[123, "456", " 0789 ", 1234567890123456789]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reminder_channels.json"),
		[]byte(`{"42": 4200, "43": "4300"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "closed_threads.json"),
		[]byte(`{"77": "2024-05-01T10:00:00.123456+00:00", "78": "2024-05-02T08:00:00", "79": "garbage"}`), 0644))

	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	s := NewStore(backend)
	s.Load()

	assert.True(t, s.OptedOut("123"))
	assert.True(t, s.OptedOut("456"))
	assert.True(t, s.OptedOut("789"))
	assert.True(t, s.OptedOut("1234567890123456789"), "snowflakes must survive without float rounding")
	assert.False(t, s.OptedOut("999"))

	cid, ok := s.ReminderChannel("42")
	require.True(t, ok)
	assert.Equal(t, "4200", cid)
	cid, ok = s.ReminderChannel("43")
	require.True(t, ok)
	assert.Equal(t, "4300", cid)

	closed := s.ClosedThreads()
	require.Len(t, closed, 2)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), closed["78"])
}

func TestStoreCorruptFilesResetToEmpty(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notified_users", "reminder_channels", "closed_threads"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte("{not json"), 0644))
	}

	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	s := NewStore(backend)
	s.Load()

	assert.Empty(t, s.OptOutIDs())
	assert.Empty(t, s.ClosedThreads())
	_, ok := s.ReminderChannel("1")
	assert.False(t, ok)

	// The store stays usable and overwrites the corrupt file.
	_, err = s.SetOptOut("5", true)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "notified_users.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[5]`, string(data))
}

func TestStoreSetOptOutIsIdempotent(t *testing.T) {
	s, _ := newFileStore(t)

	changed, err := s.SetOptOut("10", false)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.SetOptOut("10", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetOptOut("10", true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.SetOptOut("10", false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, s.OptedOut("10"))
}

func TestStoreClearAndForget(t *testing.T) {
	s, _ := newFileStore(t)

	removed, err := s.ClearReminderChannel("1")
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, s.SetReminderChannel("1", "2"))
	removed, err = s.ClearReminderChannel("1")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, s.MarkClosed("3", time.Now()))
	removed, err = s.ForgetClosed("3")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok := s.ClosedAt("3")
	assert.False(t, ok)
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	s, dir := newFileStore(t)
	require.NoError(t, s.MarkClosed("1", time.Now()))
	require.NoError(t, s.MarkClosed("2", time.Now()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "closed_threads.json", entries[0].Name())
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "state.db")
	s, err := Open(models.StateConfig{Backend: "sqlite", DBPath: dbPath})
	require.NoError(t, err)

	_, err = s.SetOptOut("11", true)
	require.NoError(t, err)
	require.NoError(t, s.SetReminderChannel("12", "13"))
	require.NoError(t, s.MarkClosed("14", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, s.Close())

	reopened, err := Open(models.StateConfig{Backend: "sqlite", DBPath: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.OptedOut("11"))
	cid, ok := reopened.ReminderChannel("12")
	require.True(t, ok)
	assert.Equal(t, "13", cid)
	at, ok := reopened.ClosedAt("14")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), at)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(models.StateConfig{Backend: "redis"})
	require.Error(t, err)
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
		ok   bool
	}{
		{name: "string", raw: "123", want: "123", ok: true},
		{name: "padded string", raw: " 00123 ", want: "123", ok: true},
		{name: "int", raw: 123, want: "123", ok: true},
		{name: "float", raw: float64(123), want: "123", ok: true},
		{name: "fractional float", raw: 1.5, ok: false},
		{name: "empty", raw: "  ", ok: false},
		{name: "non numeric kept", raw: "abc", want: "abc", ok: true},
		{name: "nil", raw: nil, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeID(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

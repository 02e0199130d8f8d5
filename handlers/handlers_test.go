package handlers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"forum-reminder-bot/lifecycle"
	"forum-reminder-bot/models"
	"forum-reminder-bot/reminder"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"permission", fmt.Errorf("lock thread 1: %w", models.ErrPermissionDenied), "permissions"},
		{"not found", fmt.Errorf("fetch event 9: %w", models.ErrNotFound), "Not found"},
		{"no channel", models.ErrNoChannel, "/reminder_channel set"},
		{"other", errors.New("boom"), "Something went wrong: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, explain(tt.err), tt.want)
		})
	}
}

func TestActorOf(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{Nick: "Mod", User: &discordgo.User{ID: "u1", Username: "moderator"}},
	}}
	assert.Equal(t, models.Actor{UserID: "u1", Name: "Mod", GuildID: "g1", ChannelID: "c1"}, actorOf(i))

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u2", Username: "someone", GlobalName: "Someone"},
	}}
	a := actorOf(dm)
	assert.Equal(t, "u2", a.UserID)
	assert.Equal(t, "Someone", a.Name)
}

func TestNotifyReply(t *testing.T) {
	assert.Contains(t, notifyReply(true, true), "will be pinged")
	assert.Contains(t, notifyReply(true, false), "already on")
	assert.Contains(t, notifyReply(false, true), "no longer")
	assert.Contains(t, notifyReply(false, false), "already off")
}

func TestFormatOccurrences(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 10, 20, 17, 0, 0, 0, time.UTC)
	got := formatOccurrences([]reminder.Occurrence{
		{EventID: "e1", GuildID: "g1", Name: "Weekly Sync", Start: start},
	}, loc)
	assert.Contains(t, got, "[Weekly Sync](https://discord.com/events/g1/e1)")
	assert.Contains(t, got, "18:00 CET")
	assert.Contains(t, got, fmt.Sprintf("<t:%d:R>", start.Unix()))

	assert.Equal(t, "📅 No upcoming events.", formatOccurrences(nil, loc))
}

func TestFormatPlan(t *testing.T) {
	p := reminder.Plan{
		Event:      models.ScheduledEvent{Name: "Weekly Sync"},
		Interested: []models.Participant{{ID: "101", Name: "alice"}, {ID: "102", Name: "bob"}, {ID: "103", DisplayName: "Cleo"}},
		OptedOut:   []models.Participant{{ID: "102", Name: "bob"}},
		Present:    []string{"103"},
		ToPing:     []models.Participant{{ID: "101", Name: "alice"}},
	}
	got := formatPlan(p, []string{"event-users", "rest"})
	assert.Contains(t, got, "Interested (3): alice, bob, Cleo")
	assert.Contains(t, got, "Opted out (1): bob")
	assert.Contains(t, got, "Already in the channel: 1")
	assert.Contains(t, got, "Would ping (1): alice")
	assert.Contains(t, got, "Lookup order: event-users → rest")
	assert.NotContains(t, got, "<@", "a simulation never mentions anyone")
}

func TestFormatOutcome(t *testing.T) {
	plan := reminder.Plan{
		Event:  models.ScheduledEvent{Name: "Raid"},
		ToPing: []models.Participant{{ID: "1"}, {ID: "2"}},
	}
	assert.Equal(t, "✅ Reminder for **Raid** sent to <#c9>, 2 pinged.",
		formatOutcome(reminder.Outcome{Plan: plan, ChannelID: "c9", Sent: true}))
	assert.Contains(t, formatOutcome(reminder.Outcome{Plan: reminder.Plan{Event: plan.Event}}), "Nobody to ping")
}

func TestFormatEntries(t *testing.T) {
	closedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	entries := []lifecycle.Entry{
		{Thread: models.Thread{ID: "t1", Name: "Open"}, State: models.ThreadOpen},
		{
			Thread:    models.Thread{ID: "t2", Name: "Done", Locked: true, Archived: true},
			State:     models.ThreadArchived,
			ClosedAt:  closedAt,
			ArchiveAt: closedAt.Add(24 * time.Hour),
			DeleteAt:  closedAt.Add(7 * 24 * time.Hour),
		},
	}
	got := formatEntries(entries, time.UTC)
	assert.Contains(t, got, "• <#t1> open\n")
	assert.Contains(t, got, "<#t2> archived, closed Thu 01 Oct 2026 12:00 UTC")
	assert.Contains(t, got, fmt.Sprintf("delete <t:%d:R>", closedAt.Add(7*24*time.Hour).Unix()))
	assert.NotContains(t, got, "archive <t:", "archived posts show no archive date")

	assert.Equal(t, "📭 No forum posts to show.", formatEntries(nil, time.UTC))
}

func TestFormatClose(t *testing.T) {
	res := lifecycle.Result{Thread: models.Thread{Name: "Bug"}, State: models.ThreadArchived, Changed: true,
		ClosedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	assert.Equal(t, "🔒 **Bug** is now archived. Closed at Thu 01 Oct 2026 12:00 UTC.", formatClose(res, time.UTC))

	res.Changed = false
	assert.Equal(t, "ℹ️ **Bug** is already archived.", formatClose(res, time.UTC))
}

func TestFormatOptOuts(t *testing.T) {
	assert.Equal(t, "👥 Nobody turned reminders off.", formatOptOuts(nil))
	assert.Equal(t, "👥 2 members turned reminders off: <@101>, <@102>", formatOptOuts([]string{"101", "102"}))

	many := make([]string, maxListed+3)
	for i := range many {
		many[i] = fmt.Sprint(1000 + i)
	}
	got := formatOptOuts(many)
	assert.Contains(t, got, fmt.Sprintf("%d members", maxListed+3))
	assert.Contains(t, got, "<@1049> and 3 more")
	assert.NotContains(t, got, "<@1050>")
}

func TestFormatGuilds(t *testing.T) {
	got := formatGuilds([]models.Guild{{ID: "1", Name: "Home"}, {ID: "2", Name: "Lab"}})
	assert.Equal(t, "🏠 **Servers (2)**\n• Home (1)\n• Lab (2)\n", got)
}

func TestFormatVoice(t *testing.T) {
	assert.Equal(t, "🔈 <#v1> is empty.", formatVoice("v1", nil))
	assert.Equal(t, "🔈 2 connected to <#v1>: <@7>, <@8>", formatVoice("v1", []string{"7", "8"}))
}

func TestFormatPing(t *testing.T) {
	assert.Equal(t, "🏓 Pong! Gateway latency: 42 ms", formatPing(42*time.Millisecond, nil))
	got := formatPing(42*time.Millisecond, []string{"reminder: SERVING", "threads: NOT_SERVING"})
	assert.Equal(t, "🏓 Pong! Gateway latency: 42 ms\n• reminder: SERVING\n• threads: NOT_SERVING", got)
}

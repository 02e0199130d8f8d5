package handlers

import (
	"fmt"
	"strings"
	"time"

	"forum-reminder-bot/bot"
	"forum-reminder-bot/grpc"
	"forum-reminder-bot/lifecycle"
	"forum-reminder-bot/models"
	"forum-reminder-bot/reminder"

	"github.com/bwmarrin/discordgo"
)

const dateLayout = "Mon 02 Jan 2006 15:04 MST"

// healthTimeout bounds each job status query made by /ping.
const healthTimeout = 500 * time.Millisecond

// HandlePing handles the logic for the /ping command. With the health
// endpoint enabled it also reports the status of both periodic jobs.
func HandlePing(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var jobs []string
	if b.Health != nil && b.Health.Addr() != nil {
		addr := b.Health.Addr().String()
		for _, service := range []string{grpc.ServiceReminder, grpc.ServiceThreads} {
			status, err := grpc.Check(b.Context(), addr, service, healthTimeout)
			if err != nil {
				jobs = append(jobs, fmt.Sprintf("%s: unknown (%v)", service, err))
				continue
			}
			jobs = append(jobs, fmt.Sprintf("%s: %s", service, status))
		}
	}
	respond(s, i, formatPing(s.HeartbeatLatency(), jobs))
}

func formatPing(latency time.Duration, jobs []string) string {
	msg := fmt.Sprintf("🏓 Pong! Gateway latency: %d ms", latency.Milliseconds())
	for _, j := range jobs {
		msg += "\n• " + j
	}
	return msg
}

// HandleNotify shows or changes the caller's reminder preference.
func HandleNotify(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := actorOf(i).UserID
	mode := optionString(i.ApplicationCommandData().Options, "mode")
	if mode == "" {
		if b.Reminders.NotifyEnabled(userID) {
			respond(s, i, "🔔 Event reminders are **on** for you.")
		} else {
			respond(s, i, "🔕 Event reminders are **off** for you.")
		}
		return
	}

	on := mode == "on"
	changed, err := b.Reminders.SetNotify(userID, on)
	if err != nil {
		respond(s, i, explain(err))
		return
	}
	respond(s, i, notifyReply(on, changed))
}

func notifyReply(on, changed bool) string {
	switch {
	case on && changed:
		return "🔔 You will be pinged before events you are interested in."
	case on:
		return "🔔 Reminders were already on for you."
	case changed:
		return "🔕 You will no longer be pinged before events."
	default:
		return "🔕 Reminders were already off for you."
	}
}

// HandleEvents lists the next scheduled starts of the guild.
func HandleEvents(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	occ, err := b.Reminders.Upcoming(b.Context(), i.GuildID, 3)
	if err != nil {
		respond(s, i, explain(err))
		return
	}
	respond(s, i, formatOccurrences(occ, b.Reminders.Location()))
}

func formatOccurrences(occ []reminder.Occurrence, loc *time.Location) string {
	if len(occ) == 0 {
		return "📅 No upcoming events."
	}
	var sb strings.Builder
	sb.WriteString("📅 **Upcoming events**\n")
	for _, o := range occ {
		fmt.Fprintf(&sb, "• [%s](%s) %s (<t:%d:R>)\n", o.Name, o.Link(), o.Start.In(loc).Format(dateLayout), o.Start.Unix())
	}
	return sb.String()
}

// HandleRemind sends the reminder for one event immediately.
func HandleRemind(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	eventID := optionString(i.ApplicationCommandData().Options, "event_id")
	if !deferReply(s, i) {
		return
	}
	out, err := b.Reminders.ForceRemind(b.Context(), i.GuildID, eventID, actorOf(i))
	if err != nil {
		followup(s, i, explain(err))
		return
	}
	followup(s, i, formatOutcome(out))
}

func formatOutcome(out reminder.Outcome) string {
	if !out.Sent {
		return fmt.Sprintf("ℹ️ Nobody to ping for **%s** (%d interested, %d opted out).",
			out.Plan.Event.Name, len(out.Plan.Interested), len(out.Plan.OptedOut))
	}
	return fmt.Sprintf("✅ Reminder for **%s** sent to <#%s>, %d pinged.",
		out.Plan.Event.Name, out.ChannelID, len(out.Plan.ToPing))
}

// HandleSimulate shows who a reminder would ping without sending it.
func HandleSimulate(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	eventID := optionString(i.ApplicationCommandData().Options, "event_id")
	if !deferReply(s, i) {
		return
	}
	plan, err := b.Reminders.Simulate(b.Context(), i.GuildID, eventID)
	if err != nil {
		followup(s, i, explain(err))
		return
	}
	followup(s, i, formatPlan(plan, b.Resolver.Strategies()))
}

func labels(ps []models.Participant) string {
	if len(ps) == 0 {
		return "nobody"
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Label()
	}
	return strings.Join(names, ", ")
}

func formatPlan(p reminder.Plan, strategies []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧪 **%s**\n", p.Event.Name)
	fmt.Fprintf(&sb, "Interested (%d): %s\n", len(p.Interested), labels(p.Interested))
	fmt.Fprintf(&sb, "Opted out (%d): %s\n", len(p.OptedOut), labels(p.OptedOut))
	fmt.Fprintf(&sb, "Already in the channel: %d\n", len(p.Present))
	fmt.Fprintf(&sb, "Would ping (%d): %s", len(p.ToPing), labels(p.ToPing))
	if len(strategies) > 0 {
		fmt.Fprintf(&sb, "\nLookup order: %s", strings.Join(strategies, " → "))
	}
	return sb.String()
}

// HandleReminderChannel sets or clears the guild's reminder channel.
func HandleReminderChannel(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		respond(s, i, "🚫 Internal error: missing subcommand.")
		return
	}

	sub := options[0]
	switch sub.Name {
	case "set":
		opt := sub.GetOption("channel")
		if opt == nil {
			respond(s, i, "❌ Pick a channel.")
			return
		}
		ch, err := b.Reminders.SetReminderChannel(i.GuildID, opt.ChannelValue(nil).ID)
		if err != nil {
			respond(s, i, explain(err))
			return
		}
		respond(s, i, fmt.Sprintf("✅ Reminders will be posted in <#%s>.", ch.ID))
	case "clear":
		removed, err := b.Reminders.ClearReminderChannel(i.GuildID)
		if err != nil {
			respond(s, i, explain(err))
			return
		}
		if removed {
			respond(s, i, "✅ Reminder channel cleared. I'll pick one automatically.")
		} else {
			respond(s, i, "ℹ️ No reminder channel was set.")
		}
	default:
		respond(s, i, "🚫 Internal error: unknown subcommand.")
	}
}

// HandleClose closes and archives a forum post.
func HandleClose(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	threadID := optionString(i.ApplicationCommandData().Options, "thread_id")
	if threadID == "" {
		threadID = i.ChannelID
	}
	if !deferReply(s, i) {
		return
	}
	res, err := b.Threads.Close(b.Context(), threadID, actorOf(i))
	if err != nil {
		msg := explain(err)
		if state, serr := b.Threads.StateOf(b.Context(), threadID); serr == nil {
			msg += fmt.Sprintf("\nThe post is currently %s.", state)
		}
		followup(s, i, msg)
		return
	}
	followup(s, i, formatClose(res, b.Threads.Location()))
}

func formatClose(res lifecycle.Result, loc *time.Location) string {
	if !res.Changed {
		return fmt.Sprintf("ℹ️ **%s** is already %s.", res.Thread.Name, res.State)
	}
	msg := fmt.Sprintf("🔒 **%s** is now %s.", res.Thread.Name, res.State)
	if !res.ClosedAt.IsZero() {
		msg += fmt.Sprintf(" Closed at %s.", res.ClosedAt.In(loc).Format(dateLayout))
	}
	return msg
}

// HandleThreads lists the guild's posts with their scheduled dates.
func HandleThreads(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !deferReply(s, i) {
		return
	}
	entries, err := b.Threads.List(b.Context(), i.GuildID)
	if err != nil {
		followup(s, i, explain(err))
		return
	}
	followup(s, i, formatEntries(entries, b.Threads.Location()))
}

func formatEntries(entries []lifecycle.Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return "📭 No forum posts to show."
	}
	var sb strings.Builder
	sb.WriteString("🗂️ **Forum posts**\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "• <#%s> %s", e.Thread.ID, e.State)
		if !e.ClosedAt.IsZero() {
			fmt.Fprintf(&sb, ", closed %s", e.ClosedAt.In(loc).Format(dateLayout))
			if e.State != models.ThreadArchived {
				fmt.Fprintf(&sb, ", archive <t:%d:R>", e.ArchiveAt.Unix())
			}
			fmt.Fprintf(&sb, ", delete <t:%d:R>", e.DeleteAt.Unix())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

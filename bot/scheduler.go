package bot

import (
	"fmt"
	"log"
	"os"
	"time"

	"forum-reminder-bot/grpc"
	"forum-reminder-bot/utils"

	"github.com/robfig/cron/v3"
)

// startScheduler registers the reminder tick and the thread sweep.
func (b *Bot) startScheduler() error {
	log.Println("Initializing scheduler...")
	logger := cron.PrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))
	b.cron = cron.New(
		cron.WithLocation(b.Reminders.Location()),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	tick := fmt.Sprintf("@every %s", b.Settings.Reminder.Interval)
	if _, err := b.cron.AddFunc(tick, b.runReminders); err != nil {
		return fmt.Errorf("could not schedule reminders: %w", err)
	}
	if _, err := b.cron.AddFunc(b.Settings.Threads.Sweep, b.runSweep); err != nil {
		return fmt.Errorf("could not schedule thread sweep %q: %w", b.Settings.Threads.Sweep, err)
	}
	b.cron.Start()
	log.Printf("Reminders scheduled %s, thread sweep %s.", tick, b.Settings.Threads.Sweep)

	if b.Settings.Threads.BackfillAtStartup {
		go b.runBackfill()
	} else {
		log.Println("Skipping closed post backfill as per configuration.")
	}
	return nil
}

func (b *Bot) runReminders() {
	err := b.Reminders.Tick(b.ctx)
	b.report(grpc.ServiceReminder, err)
	if err != nil && b.ctx.Err() == nil {
		utils.Warn("Reminder", "Tick", err.Error())
	}
}

func (b *Bot) runSweep() {
	report, err := b.Threads.Sweep(b.ctx)
	b.report(grpc.ServiceThreads, err)
	if err != nil && b.ctx.Err() == nil {
		utils.Warn("Threads", "Sweep", err.Error())
	}
	if report.Archived+report.Deleted+report.Forgotten > 0 {
		utils.Info("Threads", "Sweep", fmt.Sprintf("archived %d, deleted %d, forgot %d",
			report.Archived, report.Deleted, report.Forgotten))
	}
}

func (b *Bot) runBackfill() {
	log.Println("Looking for posts closed while the bot was offline...")
	n, err := b.Threads.Backfill(b.ctx)
	if err != nil {
		utils.Warn("Threads", "Backfill", err.Error())
	}
	if n > 0 {
		utils.Info("Threads", "Backfill", fmt.Sprintf("tracking %d closed posts", n))
	}
}

func (b *Bot) report(service string, err error) {
	if b.Health != nil {
		b.Health.Report(service, err)
	}
}

// stopScheduler stops the cron jobs, waiting up to timeout for a running
// job to notice the cancelled context.
func (b *Bot) stopScheduler(timeout time.Duration) {
	if b.cron == nil {
		return
	}
	select {
	case <-b.cron.Stop().Done():
	case <-time.After(timeout):
		log.Println("Scheduler stop timed out.")
	}
	log.Println("Scheduler stopped.")
}

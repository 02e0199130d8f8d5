package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // zone names resolve on hosts without zoneinfo

	"forum-reminder-bot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// overlays are optional JSON files under ./config merged over config.yaml.
var overlays = []string{"reminder", "threads"}

// LoadConfig reads every configuration source into the global viper
// instance, in this order:
//  1. .env (environment variables)
//  2. config.yaml (base configuration)
//  3. config/reminder.json and config/threads.json (merged over the base)
//
// Environment variables override file values of the same key.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // bot.token <- BOT_TOKEN

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("No config.yaml found, using environment variables and defaults.")
		} else {
			panic(fmt.Errorf("fatal error in config.yaml: %w", err))
		}
	}

	for _, name := range overlays {
		viper.SetConfigName(name)
		viper.SetConfigType("json")
		viper.AddConfigPath("./config")

		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				continue
			}
			panic(fmt.Errorf("fatal error merging config/%s.json: %w", name, err))
		}
		log.Printf("Merged config/%s.json", name)
	}
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.admin_channel_id", "")
	v.SetDefault("bot.timezone", "Europe/Paris")
	v.SetDefault("bot.api_base", "")

	v.SetDefault("commands.auth.developers", []string{})
	v.SetDefault("commands.auth.admins_roles", []string{})

	v.SetDefault("state.backend", "json")
	v.SetDefault("state.dir", "data")
	v.SetDefault("state.db_path", "data/state.db")

	v.SetDefault("reminder.interval", time.Minute)
	v.SetDefault("reminder.lead", 300*time.Second)
	v.SetDefault("reminder.pause", 65*time.Second)
	v.SetDefault("reminder.once_per_event", false)

	v.SetDefault("threads.archive_after", 24*time.Hour)
	v.SetDefault("threads.delete_after", 7*24*time.Hour)
	v.SetDefault("threads.sweep", "@hourly")
	v.SetDefault("threads.notify_on_delete", true)
	v.SetDefault("threads.backfill_at_startup", true)

	v.SetDefault("grpc.health_addr", "")
}

// Load reads all sources and returns the validated settings.
func Load() (*models.Settings, error) {
	LoadConfig()
	SetDefaults(viper.GetViper())
	return Decode(viper.GetViper())
}

// Decode unmarshals v into Settings, applies the token fallback and
// validates the result.
func Decode(v *viper.Viper) (*models.Settings, error) {
	var s models.Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if s.Bot.Token == "" {
		s.Bot.Token = v.GetString("DISCORD_TOKEN")
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the jobs cannot run with.
func Validate(s *models.Settings) error {
	var errs []error
	if s.Bot.Token == "" {
		errs = append(errs, errors.New("no bot token: set BOT_TOKEN (or DISCORD_TOKEN)"))
	}
	if _, err := Location(s.Bot.Timezone); err != nil {
		errs = append(errs, err)
	}
	switch s.State.Backend {
	case "", "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("state.backend %q: want json or sqlite", s.State.Backend))
	}
	if s.Reminder.Interval <= 0 {
		errs = append(errs, errors.New("reminder.interval must be positive"))
	}
	if s.Reminder.Lead <= 0 {
		errs = append(errs, errors.New("reminder.lead must be positive"))
	}
	if s.Reminder.Pause < 0 {
		errs = append(errs, errors.New("reminder.pause must not be negative"))
	}
	if s.Threads.ArchiveAfter <= 0 {
		errs = append(errs, errors.New("threads.archive_after must be positive"))
	}
	if s.Threads.DeleteAfter < s.Threads.ArchiveAfter {
		errs = append(errs, errors.New("threads.delete_after must not be shorter than threads.archive_after"))
	}
	if strings.TrimSpace(s.Threads.Sweep) == "" {
		errs = append(errs, errors.New("threads.sweep must be a cron spec"))
	}
	return errors.Join(errs...)
}

// Location resolves the display time zone; empty means UTC.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("bot.timezone %q: %w", name, err)
	}
	return loc, nil
}

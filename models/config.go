package models

import "time"

// Settings is the full bot configuration, decoded by viper from config.yaml,
// the environment and .env.
type Settings struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Commands CommandsConfig `mapstructure:"commands"`
	State    StateConfig    `mapstructure:"state"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Threads  ThreadConfig   `mapstructure:"threads"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
}

// BotConfig holds the session level settings.
type BotConfig struct {
	Token          string `mapstructure:"token"`
	AdminChannelID string `mapstructure:"admin_channel_id"`
	// Timezone is the IANA zone used when rendering event dates for humans.
	Timezone string `mapstructure:"timezone"`
	// APIBase overrides the REST root used by the raw participant fallback.
	APIBase string `mapstructure:"api_base"`
}

// CommandsConfig carries the authorization lists for slash commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists who may run operator commands.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"admins_roles"`
}

// StateConfig selects where the three persisted records live.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // json | sqlite
	Dir     string `mapstructure:"dir"`
	DBPath  string `mapstructure:"db_path"`
}

// ReminderConfig tunes the event reminder job.
type ReminderConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Lead         time.Duration `mapstructure:"lead"`
	Pause        time.Duration `mapstructure:"pause"`
	OncePerEvent bool          `mapstructure:"once_per_event"`
}

// ThreadConfig tunes the forum thread lifecycle.
type ThreadConfig struct {
	ArchiveAfter      time.Duration `mapstructure:"archive_after"`
	DeleteAfter       time.Duration `mapstructure:"delete_after"`
	Sweep             string        `mapstructure:"sweep"`
	NotifyOnDelete    bool          `mapstructure:"notify_on_delete"`
	BackfillAtStartup bool          `mapstructure:"backfill_at_startup"`
}

// GRPCConfig configures the health endpoint. An empty address disables it.
type GRPCConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

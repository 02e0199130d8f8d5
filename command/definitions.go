package command

import "github.com/bwmarrin/discordgo"

var (
	adminPerm int64 = discordgo.PermissionManageThreads
	noDM            = false
)

func eventOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:         "event_id",
		Description:  description,
		Type:         discordgo.ApplicationCommandOptionString,
		Required:     true,
		Autocomplete: true,
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong and the gateway latency",
	}
}

// NotifyCommand defines the structure for the /notify command.
type NotifyCommand struct{}

// Definition returns the application command definition.
func (c *NotifyCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "notify",
		Description: "Show or change whether you get pinged before events",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "mode",
				Description: "Turn reminders on or off; leave empty to see your status",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "on", Value: "on"},
					{Name: "off", Value: "off"},
				},
			},
		},
	}
}

// EventsCommand defines the structure for the /events command.
type EventsCommand struct{}

// Definition returns the application command definition.
func (c *EventsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:         "events",
		Description:  "List the next scheduled events",
		DMPermission: &noDM,
	}
}

// RemindCommand defines the structure for the /remind command.
type RemindCommand struct{}

// Definition returns the application command definition.
func (c *RemindCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "remind",
		Description:              "Send the reminder for an event now",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
		Options:                  []*discordgo.ApplicationCommandOption{eventOption("The event to remind")},
	}
}

// SimulateCommand defines the structure for the /simulate command.
type SimulateCommand struct{}

// Definition returns the application command definition.
func (c *SimulateCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "simulate",
		Description:              "Show who would be pinged for an event, without sending",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
		Options:                  []*discordgo.ApplicationCommandOption{eventOption("The event to simulate")},
	}
}

// ReminderChannelCommand defines the structure for the /reminder_channel command.
type ReminderChannelCommand struct{}

// Definition returns the application command definition.
func (c *ReminderChannelCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "reminder_channel",
		Description:              "Choose where event reminders are posted",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "set",
				Description: "Post reminders in this channel",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:         "channel",
						Description:  "Text channel for reminders",
						Type:         discordgo.ApplicationCommandOptionChannel,
						Required:     true,
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
					},
				},
			},
			{
				Name:        "clear",
				Description: "Go back to the automatic channel choice",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// CloseCommand defines the structure for the /close command.
type CloseCommand struct{}

// Definition returns the application command definition.
func (c *CloseCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "close",
		Description:              "Close and archive a forum post",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "thread_id",
				Description: "The post to close (defaults to the current one)",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    false,
			},
		},
	}
}

// ThreadsCommand defines the structure for the /threads command.
type ThreadsCommand struct{}

// Definition returns the application command definition.
func (c *ThreadsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "threads",
		Description:              "List open and closed posts with their deletion dates",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
	}
}

// NotifiedCommand defines the structure for the /notified command.
type NotifiedCommand struct{}

// Definition returns the application command definition.
func (c *NotifiedCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "notified",
		Description:              "List members who turned event reminders off",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
	}
}

// GuildsCommand defines the structure for the /guilds command.
type GuildsCommand struct{}

// Definition returns the application command definition.
func (c *GuildsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "guilds",
		Description:              "List the servers the bot is in",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
	}
}

// VoiceCommand defines the structure for the /voice command.
type VoiceCommand struct{}

// Definition returns the application command definition.
func (c *VoiceCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     "voice",
		Description:              "List who is connected to a voice channel",
		DefaultMemberPermissions: &adminPerm,
		DMPermission:             &noDM,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "channel",
				Description:  "Voice or stage channel (defaults to the one you are in)",
				Type:         discordgo.ApplicationCommandOptionChannel,
				Required:     false,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice},
			},
		},
	}
}

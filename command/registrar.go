package command

import "github.com/bwmarrin/discordgo"

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands holds all the command instances.
var AllCommands = []Command{
	&PingCommand{},
	&NotifyCommand{},
	&EventsCommand{},
	&RemindCommand{},
	&SimulateCommand{},
	&ReminderChannelCommand{},
	&CloseCommand{},
	&ThreadsCommand{},
	&NotifiedCommand{},
	&GuildsCommand{},
	&VoiceCommand{},
}

// Permission level required by each command name, as understood by
// utils.Auth.CheckPermission.
var Permissions = map[string]string{
	"ping":             "guest",
	"notify":           "guest",
	"events":           "guest",
	"remind":           "admin",
	"simulate":         "admin",
	"reminder_channel": "admin",
	"close":            "admin",
	"threads":          "admin",
	"notified":         "admin",
	"guilds":           "admin",
	"voice":            "admin",
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, len(AllCommands))
	for i, cmd := range AllCommands {
		defs[i] = cmd.Definition()
	}
	return defs
}

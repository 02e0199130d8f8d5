package main

import (
	"forum-reminder-bot/bot"
	"forum-reminder-bot/command"
	"forum-reminder-bot/handlers"
)

func main() {
	bot.Run(handlers.Register, command.GetCommandDefinitions())
}

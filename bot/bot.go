package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-reminder-bot/config"
	"forum-reminder-bot/database"
	"forum-reminder-bot/gateway"
	"forum-reminder-bot/grpc"
	"forum-reminder-bot/lifecycle"
	"forum-reminder-bot/models"
	"forum-reminder-bot/reminder"
	"forum-reminder-bot/resolver"
	"forum-reminder-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Settings *models.Settings
	Gateway  *gateway.Gateway
	Store    *database.Store
	Auth     *utils.Auth

	Resolver  *resolver.Resolver
	Reminders *reminder.Scheduler
	Threads   *lifecycle.Manager
	Health    *grpc.HealthServer

	commands []*discordgo.ApplicationCommand
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewBot loads the configuration and wires every component. Nothing talks
// to Discord until Start.
func NewBot() (*Bot, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	loc, err := config.Location(settings.Bot.Timezone)
	if err != nil {
		return nil, err
	}

	dg, err := discordgo.New("Bot " + settings.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildScheduledEvents
	dg.State.TrackVoice = true
	dg.State.TrackThreads = true

	store, err := database.Open(settings.State)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	gw := gateway.New(dg)
	people := gw.Resolver(settings.Bot.APIBase)
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		Session:   dg,
		Settings:  settings,
		Gateway:   gw,
		Store:     store,
		Auth:      utils.NewAuth(settings.Commands),
		Resolver:  people,
		Reminders: reminder.New(gw, people, store, settings.Reminder, loc),
		Threads:   lifecycle.New(gw, store, settings.Threads, loc),
		ctx:       ctx,
		cancel:    cancel,
	}
	if settings.GRPC.HealthAddr != "" {
		b.Health = grpc.NewHealthServer()
	}
	return b, nil
}

// Context is cancelled when the bot stops.
func (b *Bot) Context() context.Context { return b.ctx }

// RegisterCommands records the slash commands created on Start.
func (b *Bot) RegisterCommands(defs []*discordgo.ApplicationCommand) {
	b.commands = append(b.commands, defs...)
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	utils.InitLogger(b.Session, b.Settings.Bot.AdminChannelID)

	for _, def := range b.commands {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", def); err != nil {
			log.Printf("Cannot create '%v' command: %v", def.Name, err)
		}
	}

	if b.Health != nil {
		if err := b.Health.Start(b.Settings.GRPC.HealthAddr); err != nil {
			return err
		}
	}

	if err := b.startScheduler(); err != nil {
		return err
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	b.cancel()
	b.stopScheduler(30 * time.Second)
	if b.Health != nil {
		b.Health.Stop()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	if err := b.Store.Close(); err != nil {
		log.Printf("Error closing state store: %v", err)
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) {
	bot, err := NewBot()
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	bot.RegisterCommands(commands)

	if err := bot.Start(registerHandlers); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}

package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/ledger/internal/discord"
	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/pkg/discord/commands"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	// processedCacheSize bounds the interaction IDs remembered for deduplication
	processedCacheSize = 512

	commandRate  = rate.Limit(5)
	commandBurst = 10
)

// Application command handlers
type commandHandler interface {
	Command() *discordgo.ApplicationCommand
	Handle(s discord.SessionHandler, i *discordgo.InteractionCreate)
}

// Bot serves the ledger slash commands
type Bot struct {
	session discord.SessionHandler
	appID   string
	guildID string
	logger  *logging.Logger

	handlers   map[string]commandHandler
	registered []*discordgo.ApplicationCommand

	// Interaction tracking to prevent duplicates
	processed *lru.Cache[string, time.Time]
	limiter   *rate.Limiter
}

// NewBot creates a bot serving /balance-history through session
func NewBot(session discord.SessionHandler, appID, guildID string, history *commands.HistoryCommand, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.Default
	}

	// Only fails for a non-positive size
	processed, _ := lru.New[string, time.Time](processedCacheSize)

	bot := &Bot{
		session:   session,
		appID:     appID,
		guildID:   guildID,
		logger:    logger,
		handlers:  make(map[string]commandHandler),
		processed: processed,
		limiter:   rate.NewLimiter(commandRate, commandBurst),
	}
	bot.handlers[commands.HistoryCommandName] = history

	session.AddHandler(bot.handleInteractions)
	return bot
}

// Start connects to Discord and registers the slash commands
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	for name, handler := range b.handlers {
		cmd, err := b.session.ApplicationCommandCreate(b.appID, b.guildID, handler.Command())
		if err != nil {
			return fmt.Errorf("error creating command %s: %w", name, err)
		}
		b.registered = append(b.registered, cmd)
	}

	b.logger.Info("Discord bot started with %d commands", len(b.registered))
	return nil
}

// Stop removes the registered commands and closes the Discord connection
func (b *Bot) Stop() error {
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.appID, b.guildID, cmd.ID); err != nil {
			b.logger.Warn("Failed to delete command %s: %v", cmd.Name, err)
		}
	}
	b.registered = nil

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("error closing connection: %w", err)
	}
	return nil
}

func (b *Bot) handleInteractions(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(i)
}

func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if b.seen(i.ID) {
		b.logger.Debug("Skipping already processed interaction: %s", i.ID)
		return
	}

	name := i.ApplicationCommandData().Name
	handler, ok := b.handlers[name]
	if !ok {
		b.logger.Warn("No handler for command %s", name)
		return
	}

	if !b.limiter.Allow() {
		b.logger.Warn("Rate limited %s command from interaction %s", name, i.ID)
		if err := discord.SendResponse(b.session, i, discord.NewEphemeralResponse("⏱️ Too many requests, try again in a moment")); err != nil {
			b.logger.Error("Failed to respond to %s: %v", name, err)
		}
		return
	}

	b.logger.Debug("Routing %s command", name)
	handler.Handle(b.session, i)
}

// seen marks an interaction as processed and reports whether it already was
func (b *Bot) seen(id string) bool {
	found, _ := b.processed.ContainsOrAdd(id, time.Now())
	return found
}

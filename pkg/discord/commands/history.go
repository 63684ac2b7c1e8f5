package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/ledger/internal/discord"
	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/shopspring/decimal"
)

const (
	HistoryCommandName = "balance-history"

	optionPeriod = "period"
	optionPlayer = "player"

	// recentLimit caps the snapshot lines shown in the embed
	recentLimit = 10

	queryTimeout = 10 * time.Second
)

// HistoryQuerier reads a player's balance history
type HistoryQuerier interface {
	Query(ctx context.Context, playerID string, historyType entities.HistoryType) ([]*entities.BalanceSnapshot, error)
}

// HistoryCommand handles /balance-history
type HistoryCommand struct {
	history HistoryQuerier
	logger  *logging.Logger
}

// NewHistoryCommand creates a new balance history command handler
func NewHistoryCommand(history HistoryQuerier, logger *logging.Logger) *HistoryCommand {
	if logger == nil {
		logger = logging.Default
	}
	return &HistoryCommand{
		history: history,
		logger:  logger,
	}
}

// Command returns the command definition
func (c *HistoryCommand) Command() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        HistoryCommandName,
		Description: "View a player's balance history",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        optionPeriod,
				Description: "History granularity",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "daily", Value: "daily"},
					{Name: "weekly", Value: "weekly"},
					{Name: "monthly", Value: "monthly"},
					{Name: "permanent", Value: "permanent"},
				},
			},
			{
				Name:        optionPlayer,
				Description: "Player to look up, defaults to you",
				Type:        discordgo.ApplicationCommandOptionUser,
			},
		},
	}
}

// Handle answers a /balance-history interaction
func (c *HistoryCommand) Handle(s discord.SessionHandler, i *discordgo.InteractionCreate) {
	historyType, playerID, err := parseOptions(i)
	if err != nil {
		c.respond(s, i, discord.NewEphemeralResponse("❌ "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	snapshots, err := c.history.Query(ctx, playerID, historyType)
	if err != nil {
		c.respond(s, i, discord.NewErrorResponse(err))
		return
	}

	if len(snapshots) == 0 {
		c.respond(s, i, discord.NewEphemeralResponse(
			fmt.Sprintf("📭 No %s balance history for <@%s>", strings.ToLower(historyType.String()), playerID)))
		return
	}

	c.respond(s, i, discord.NewResponse("", historyEmbed(playerID, historyType, snapshots)))
}

func (c *HistoryCommand) respond(s discord.SessionHandler, i *discordgo.InteractionCreate, r *discord.Response) {
	if err := discord.SendResponse(s, i, r); err != nil {
		c.logger.Error("Failed to respond to %s: %v", HistoryCommandName, err)
	}
}

// parseOptions returns the requested history type and the player it applies to
func parseOptions(i *discordgo.InteractionCreate) (entities.HistoryType, string, error) {
	var historyType entities.HistoryType
	playerID := invokingUserID(i)

	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case optionPeriod:
			t, ok := entities.ParseHistoryType(opt.StringValue())
			if !ok {
				return "", "", fmt.Errorf("unknown period %q", opt.StringValue())
			}
			historyType = t
		case optionPlayer:
			if user := opt.UserValue(nil); user != nil && user.ID != "" {
				playerID = user.ID
			}
		}
	}

	if historyType == "" {
		return "", "", fmt.Errorf("please choose a period")
	}
	if playerID == "" {
		return "", "", fmt.Errorf("could not determine the player")
	}
	return historyType, playerID, nil
}

func invokingUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// historyEmbed summarizes snapshots in timestamp order
func historyEmbed(playerID string, historyType entities.HistoryType, snapshots []*entities.BalanceSnapshot) *discordgo.MessageEmbed {
	sorted := make([]*entities.BalanceSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Timestamp.Before(sorted[b].Timestamp)
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	low, high := first.Balance, first.Balance
	for _, snap := range sorted[1:] {
		low = decimal.Min(low, snap.Balance)
		high = decimal.Max(high, snap.Balance)
	}

	start := len(sorted) - recentLimit
	if start < 0 {
		start = 0
	}
	var recent strings.Builder
	for idx := len(sorted) - 1; idx >= start; idx-- {
		snap := sorted[idx]
		fmt.Fprintf(&recent, "`%s` %s\n", snap.Timestamp.UTC().Format("2006-01-02 15:04"), snap.Balance.StringFixed(2))
	}

	change := last.Balance.Sub(first.Balance)
	sign := ""
	if change.IsPositive() {
		sign = "+"
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📈 %s Balance History", titleCase(historyType)),
		Description: fmt.Sprintf("<@%s> · %d snapshots", playerID, len(sorted)),
		Color:       0x2ECC71,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "First", Value: first.Balance.StringFixed(2), Inline: true},
			{Name: "Latest", Value: last.Balance.StringFixed(2), Inline: true},
			{Name: "Change", Value: sign + change.StringFixed(2), Inline: true},
			{Name: "Low", Value: low.StringFixed(2), Inline: true},
			{Name: "High", Value: high.StringFixed(2), Inline: true},
			{Name: "Recent", Value: recent.String()},
		},
		Timestamp: last.Timestamp.UTC().Format(time.RFC3339),
	}
}

func titleCase(historyType entities.HistoryType) string {
	name := strings.ToLower(historyType.String())
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

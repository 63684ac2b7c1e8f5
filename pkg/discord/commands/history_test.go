package commands

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	discordmock "github.com/fadedpez/ledger/internal/discord/mock"
	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/internal/types"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, playerID string, historyType entities.HistoryType) ([]*entities.BalanceSnapshot, error) {
	args := m.Called(playerID, historyType)
	return args.Get(0).([]*entities.BalanceSnapshot), args.Error(1)
}

func historyInteraction(options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:     "interaction1",
			Type:   discordgo.InteractionApplicationCommand,
			Member: &discordgo.Member{User: &discordgo.User{ID: "caller"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    HistoryCommandName,
				Options: options,
			},
		},
	}
}

func periodOption(value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  optionPeriod,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func playerOption(userID string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  optionPlayer,
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: userID,
	}
}

func newTestCommand(querier HistoryQuerier) *HistoryCommand {
	return NewHistoryCommand(querier, logging.NewLoggerTo(io.Discard, logging.ERROR))
}

func TestHistoryCommand_Command(t *testing.T) {
	command := newTestCommand(nil).Command()

	assert.Equal(t, HistoryCommandName, command.Name)
	require.Len(t, command.Options, 2)
	assert.True(t, command.Options[0].Required)
	assert.Len(t, command.Options[0].Choices, 4)
	assert.Equal(t, discordgo.ApplicationCommandOptionUser, command.Options[1].Type)
}

func TestHistoryCommand_HandleSummarizes(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	querier := &mockQuerier{}
	querier.On("Query", "caller", entities.HistoryTypeWeekly).Return([]*entities.BalanceSnapshot{
		{PlayerID: "caller", HistoryType: entities.HistoryTypeWeekly, Timestamp: now, Balance: decimal.NewFromInt(150)},
		{PlayerID: "caller", HistoryType: entities.HistoryTypeWeekly, Timestamp: now.AddDate(0, 0, -2), Balance: decimal.NewFromInt(80)},
		{PlayerID: "caller", HistoryType: entities.HistoryTypeWeekly, Timestamp: now.AddDate(0, 0, -5), Balance: decimal.NewFromInt(100)},
	}, nil)

	session := &discordmock.SessionHandler{}
	session.Test(t)

	var response *discordgo.InteractionResponse
	session.On("InteractionRespond", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { response = args.Get(1).(*discordgo.InteractionResponse) }).
		Return(nil)

	newTestCommand(querier).Handle(session, historyInteraction(periodOption("weekly")))

	require.NotNil(t, response)
	require.Len(t, response.Data.Embeds, 1)
	embed := response.Data.Embeds[0]
	assert.Equal(t, "📈 Weekly Balance History", embed.Title)

	fields := map[string]string{}
	for _, field := range embed.Fields {
		fields[field.Name] = field.Value
	}
	assert.Equal(t, "100.00", fields["First"])
	assert.Equal(t, "150.00", fields["Latest"])
	assert.Equal(t, "+50.00", fields["Change"])
	assert.Equal(t, "80.00", fields["Low"])
	assert.Equal(t, "150.00", fields["High"])
	assert.True(t, strings.HasPrefix(fields["Recent"], "`2024-03-31 12:00` 150.00"))

	querier.AssertExpectations(t)
	session.AssertExpectations(t)
}

func TestHistoryCommand_HandleOtherPlayer(t *testing.T) {
	querier := &mockQuerier{}
	querier.On("Query", "target", entities.HistoryTypeDaily).Return([]*entities.BalanceSnapshot{}, nil)

	session := &discordmock.SessionHandler{}
	session.On("InteractionRespond", mock.Anything, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Data.Flags == discordgo.MessageFlagsEphemeral &&
			strings.Contains(r.Data.Content, "No daily balance history for <@target>")
	})).Return(nil)

	newTestCommand(querier).Handle(session, historyInteraction(periodOption("DAILY"), playerOption("target")))

	querier.AssertExpectations(t)
	session.AssertExpectations(t)
}

func TestHistoryCommand_HandleQueryError(t *testing.T) {
	querier := &mockQuerier{}
	querier.On("Query", "caller", entities.HistoryTypeMonthly).Return(
		[]*entities.BalanceSnapshot{},
		types.NewPersistenceError("query MONTHLY history for player caller", errors.New("timeout")),
	)

	session := &discordmock.SessionHandler{}
	session.On("InteractionRespond", mock.Anything, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Data.Content == "💾 query MONTHLY history for player caller failed"
	})).Return(nil)

	newTestCommand(querier).Handle(session, historyInteraction(periodOption("monthly")))

	session.AssertExpectations(t)
}

func TestHistoryCommand_HandleUnknownPeriod(t *testing.T) {
	querier := &mockQuerier{}

	session := &discordmock.SessionHandler{}
	session.On("InteractionRespond", mock.Anything, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return strings.Contains(r.Data.Content, `unknown period "hourly"`)
	})).Return(nil)

	newTestCommand(querier).Handle(session, historyInteraction(periodOption("hourly")))

	querier.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	session.AssertExpectations(t)
}

package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordmock "github.com/fadedpez/ledger/internal/discord/mock"
	"github.com/fadedpez/ledger/internal/logging"
	"github.com/fadedpez/ledger/pkg/discord/commands"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type countingQuerier struct {
	calls int
}

func (q *countingQuerier) Query(ctx context.Context, playerID string, historyType entities.HistoryType) ([]*entities.BalanceSnapshot, error) {
	q.calls++
	return []*entities.BalanceSnapshot{}, nil
}

type BotTestSuite struct {
	suite.Suite
	session *discordmock.SessionHandler
	querier *countingQuerier
	bot     *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotTestSuite))
}

func (s *BotTestSuite) SetupTest() {
	logger := logging.NewLoggerTo(io.Discard, logging.ERROR)

	s.session = &discordmock.SessionHandler{}
	s.session.Test(s.T())
	s.session.On("AddHandler", mock.Anything).Return()

	s.querier = &countingQuerier{}
	s.bot = NewBot(s.session, "app", "guild", commands.NewHistoryCommand(s.querier, logger), logger)
}

func (s *BotTestSuite) historyInteraction(id string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:     id,
			Type:   discordgo.InteractionApplicationCommand,
			Member: &discordgo.Member{User: &discordgo.User{ID: "caller"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: commands.HistoryCommandName,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "period", Type: discordgo.ApplicationCommandOptionString, Value: "daily"},
				},
			},
		},
	}
}

func (s *BotTestSuite) TestStartRegistersAndStopRemoves() {
	s.session.On("Open").Return(nil)
	s.session.On("ApplicationCommandCreate", "app", "guild", mock.MatchedBy(func(cmd *discordgo.ApplicationCommand) bool {
		return cmd.Name == commands.HistoryCommandName
	})).Return(&discordgo.ApplicationCommand{ID: "cmd1", Name: commands.HistoryCommandName}, nil)
	s.session.On("ApplicationCommandDelete", "app", "guild", "cmd1").Return(nil)
	s.session.On("Close").Return(nil)

	s.Require().NoError(s.bot.Start())
	s.Require().NoError(s.bot.Stop())
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestStartFailsWhenOpenFails() {
	s.session.On("Open").Return(errors.New("invalid token"))

	s.ErrorContains(s.bot.Start(), "invalid token")
}

func (s *BotTestSuite) TestDuplicateInteractionsHandledOnce() {
	s.session.On("InteractionRespond", mock.Anything, mock.Anything).Return(nil).Once()

	interaction := s.historyInteraction("interaction1")
	s.bot.handleInteraction(interaction)
	s.bot.handleInteraction(interaction)

	s.Equal(1, s.querier.calls)
	s.session.AssertExpectations(s.T())
}

func (s *BotTestSuite) TestIgnoresComponentInteractions() {
	s.bot.handleInteraction(&discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{ID: "button", Type: discordgo.InteractionMessageComponent},
	})

	s.Zero(s.querier.calls)
}

func (s *BotTestSuite) TestRateLimitsBursts() {
	s.session.On("InteractionRespond", mock.Anything, mock.Anything).Return(nil)

	for n := 0; n < commandBurst+5; n++ {
		s.bot.handleInteraction(s.historyInteraction(fmt.Sprintf("burst%d", n)))
	}

	s.Less(s.querier.calls, commandBurst+5)
	s.GreaterOrEqual(s.querier.calls, commandBurst)
}

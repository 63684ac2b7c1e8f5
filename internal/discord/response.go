package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/fadedpez/ledger/internal/types"
)

// ResponseEmoji maps error codes to appropriate emojis
var ResponseEmoji = map[types.ErrorCode]string{
	types.ErrPersistence:     "💾",
	types.ErrInvalidArgument: "❗",
	types.ErrInternalError:   "💥",
}

// Response represents a Discord interaction response
type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// NewResponse creates a new Response
func NewResponse(content string, embeds ...*discordgo.MessageEmbed) *Response {
	return &Response{
		Content: content,
		Embeds:  embeds,
	}
}

// NewEphemeralResponse creates a new ephemeral Response (only visible to the user)
func NewEphemeralResponse(content string) *Response {
	return &Response{
		Content:   content,
		Ephemeral: true,
	}
}

// NewErrorResponse creates a new error Response
func NewErrorResponse(err error) *Response {
	var ledgerErr *types.LedgerError
	if types.As(err, &ledgerErr) {
		emoji := ResponseEmoji[ledgerErr.Code]
		if emoji == "" {
			emoji = "❌"
		}
		return NewEphemeralResponse(fmt.Sprintf("%s %s", emoji, ledgerErr.Message))
	}
	return NewEphemeralResponse(fmt.Sprintf("❌ An error occurred: %v", err))
}

// SendResponse sends a response to a Discord interaction
func SendResponse(s SessionHandler, i *discordgo.InteractionCreate, r *Response) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: r.Content,
			Embeds:  r.Embeds,
			Flags:   getFlags(r.Ephemeral),
		},
	})
}

// SendErrorResponse sends an error response
func SendErrorResponse(s SessionHandler, i *discordgo.InteractionCreate, err error) error {
	return SendResponse(s, i, NewErrorResponse(err))
}

func getFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

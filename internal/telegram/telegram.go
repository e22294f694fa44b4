package telegram

import (
	"context"
	"strconv"
	"time"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/j0lvera/echobot/internal/bot"
)

// Handler is the part of the bot the telegram channel drives.
type Handler interface {
	OnMessage(ctx context.Context, ev bot.MessageEvent) (bot.Reply, error)
	OnMembersAdded(ctx context.Context, ev bot.MembersAddedEvent) []bot.Reply
}

// sender is the subset of *tbot.Bot used to answer updates.
type sender interface {
	SendMessage(ctx context.Context, params *tbot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tbot.SendChatActionParams) (bool, error)
}

// Channel adapts telegram updates to bot turns.
type Channel struct {
	handler   Handler
	errorText string
	log       zerolog.Logger
	selfID    int64
}

func NewChannel(handler Handler, errorText string, log zerolog.Logger) *Channel {
	return &Channel{
		handler:   handler,
		errorText: errorText,
		log:       log,
	}
}

// handleUpdate is registered as the telegram default handler.
func (c *Channel) handleUpdate(ctx context.Context, tg *tbot.Bot, update *models.Update) {
	c.dispatch(ctx, tg, update)
}

func (c *Channel) dispatch(ctx context.Context, tg sender, update *models.Update) {
	// Guard against non-message updates
	if update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if len(msg.NewChatMembers) > 0 {
		for _, reply := range c.handler.OnMembersAdded(ctx, toMembersAddedEvent(msg, c.selfID)) {
			c.send(ctx, tg, chatID, reply.Text)
		}
		return
	}

	if msg.Text == "" {
		return
	}

	// Send typing indicator while the completion runs
	if _, err := tg.SendChatAction(ctx, &tbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		c.log.Debug().Err(err).Int64("chat_id", chatID).Msg("unable to send typing action")
	}

	reply, err := c.handler.OnMessage(ctx, toMessageEvent(msg))
	if err != nil {
		c.log.Error().Err(err).Int64("chat_id", chatID).Msg("turn failed")
		c.send(ctx, tg, chatID, c.errorText)
		return
	}

	c.send(ctx, tg, chatID, reply.Text)
}

func (c *Channel) send(ctx context.Context, tg sender, chatID int64, text string) {
	if _, err := tg.SendMessage(ctx, &tbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		c.log.Error().Err(err).Int64("chat_id", chatID).Msg("unable to send message")
	}
}

func toMessageEvent(msg *models.Message) bot.MessageEvent {
	var sender string
	if msg.From != nil {
		sender = strconv.FormatInt(msg.From.ID, 10)
	}
	return bot.MessageEvent{
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:       sender,
		Text:           msg.Text,
		Timestamp:      time.Unix(int64(msg.Date), 0).UTC(),
	}
}

func toMembersAddedEvent(msg *models.Message, selfID int64) bot.MembersAddedEvent {
	ids := make([]string, 0, len(msg.NewChatMembers))
	for _, u := range msg.NewChatMembers {
		ids = append(ids, strconv.FormatInt(u.ID, 10))
	}
	return bot.MembersAddedEvent{
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		MemberIDs:      ids,
		RecipientID:    strconv.FormatInt(selfID, 10),
	}
}

package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/j0lvera/echobot/internal/ai"
	"github.com/j0lvera/echobot/internal/memory"
	"github.com/j0lvera/echobot/internal/observability"
)

// Completion policy, fixed for every turn.
const (
	MaxOutputTokens = 2000
	Temperature     = 0.2
	TopP            = 0.5
)

// Bot handles one turn per inbound event.
type Bot struct {
	memory  *memory.Store
	client  ai.Client
	welcome string
	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewBot(store *memory.Store, client ai.Client, welcome string, metrics *observability.Metrics, log zerolog.Logger) *Bot {
	return &Bot{
		memory:  store,
		client:  client,
		welcome: welcome,
		metrics: metrics,
		log:     log,
	}
}

// BuildPrompt joins the history in chronological order and appends input
// as the last line.
func BuildPrompt(history []string, input string) string {
	if len(history) == 0 {
		return input
	}
	return strings.Join(history, "\n") + "\n" + input
}

// OnMessage runs one turn: load memory, ask the completion client, record
// the exchange and return the reply. On any error memory keeps its pre-turn
// state and no reply is produced.
func (b *Bot) OnMessage(ctx context.Context, ev MessageEvent) (Reply, error) {
	log := b.log.With().Str("conversation_id", ev.ConversationID).Logger()

	conv, err := b.memory.GetOrCreate(ctx, ev.ConversationID)
	if err != nil {
		b.fail("message", err)
		log.Error().Err(err).Msg("unable to load conversation memory")
		return Reply{}, err
	}

	prompt := BuildPrompt(conv.History, ev.Text)

	log.Debug().Int("history", len(conv.History)).Msg("completion request sending")
	start := time.Now()
	text, err := b.client.Complete(ctx, ai.Request{
		Prompt:      prompt,
		MaxTokens:   MaxOutputTokens,
		Temperature: Temperature,
		TopP:        TopP,
	})
	if b.metrics != nil {
		b.metrics.ObserveCompletion(time.Since(start))
	}
	if err == nil && ctx.Err() != nil {
		// Cancelled turns record nothing, even when text came back.
		err = &ai.ServiceError{Kind: ai.KindCanceled, Err: ctx.Err()}
	}
	if err != nil {
		b.memory.Discard(ev.ConversationID)
		b.fail("message", err)
		log.Error().Err(err).Msg("unable to generate completion")
		return Reply{}, err
	}
	log.Debug().Msg("completion response received")

	if err := b.record(ctx, ev.ConversationID, ev.Text, text); err != nil {
		b.fail("message", err)
		log.Error().Err(err).Msg("unable to save conversation memory")
		return Reply{}, err
	}

	if b.metrics != nil {
		b.metrics.Turns.WithLabelValues("message", "ok").Inc()
	}
	log.Info().Int("history", len(conv.History)+2).Msg("turn completed")

	return Reply{
		ID:             uuid.NewString(),
		ConversationID: ev.ConversationID,
		Text:           text,
		Speak:          text,
	}, nil
}

// record appends the user/bot pair and persists it.
func (b *Bot) record(ctx context.Context, conversationID, input, reply string) error {
	if err := b.memory.Append(conversationID, memory.RoleUser, input); err != nil {
		b.memory.Discard(conversationID)
		return err
	}
	if err := b.memory.Append(conversationID, memory.RoleBot, reply); err != nil {
		b.memory.Discard(conversationID)
		return err
	}
	return b.memory.Save(ctx, conversationID)
}

// OnMembersAdded greets every joined participant other than the bot itself.
func (b *Bot) OnMembersAdded(_ context.Context, ev MembersAddedEvent) []Reply {
	var replies []Reply
	for _, member := range ev.MemberIDs {
		if member == ev.RecipientID {
			continue
		}
		replies = append(replies, Reply{
			ID:             uuid.NewString(),
			ConversationID: ev.ConversationID,
			Text:           b.welcome,
			Speak:          b.welcome,
		})
	}

	if b.metrics != nil {
		b.metrics.Turns.WithLabelValues("members_added", "ok").Inc()
		b.metrics.Welcomes.Add(float64(len(replies)))
	}
	return replies
}

func (b *Bot) fail(kind string, err error) {
	if b.metrics == nil {
		return
	}

	var storageErr *memory.StorageError
	var serviceErr *ai.ServiceError
	switch {
	case errors.As(err, &storageErr):
		b.metrics.StorageErrors.WithLabelValues(storageErr.Op).Inc()
		b.metrics.Turns.WithLabelValues(kind, "storage_error").Inc()
	case errors.As(err, &serviceErr):
		b.metrics.CompletionErrors.WithLabelValues(string(serviceErr.Kind)).Inc()
		b.metrics.Turns.WithLabelValues(kind, "completion_error").Inc()
	default:
		b.metrics.Turns.WithLabelValues(kind, "error").Inc()
	}
}

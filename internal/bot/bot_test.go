package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0lvera/echobot/internal/ai"
	"github.com/j0lvera/echobot/internal/memory"
	"github.com/j0lvera/echobot/internal/memory/inmemory"
	"github.com/j0lvera/echobot/internal/observability"
)

type fakeClient struct {
	reply    string
	err      error
	requests []ai.Request
	// before runs inside Complete, e.g. to cancel the turn's context.
	before func()
}

func (f *fakeClient) Complete(_ context.Context, req ai.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type brokenBackend struct {
	inner   *inmemory.InMemory
	saveErr error
}

func (b *brokenBackend) Load(ctx context.Context, id string) ([]string, bool, error) {
	return b.inner.Load(ctx, id)
}

func (b *brokenBackend) Save(ctx context.Context, id string, history []string) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.inner.Save(ctx, id, history)
}

func (b *brokenBackend) Close(context.Context) error { return nil }

func newTestBot(t *testing.T, backend memory.Backend, client ai.Client) (*Bot, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	return NewBot(memory.NewStore(backend), client, "Hello and welcome!", metrics, zerolog.Nop()), metrics
}

func history(t *testing.T, backend memory.Backend, id string) []string {
	t.Helper()
	h, _, err := backend.Load(context.Background(), id)
	require.NoError(t, err)
	return h
}

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "hi", BuildPrompt(nil, "hi"))
	assert.Equal(t, "hi", BuildPrompt([]string{}, "hi"))
	assert.Equal(t,
		"User: hi\nBot: hello\nhow are you?",
		BuildPrompt([]string{"User: hi", "Bot: hello"}, "how are you?"),
	)
}

func TestBuildPrompt_AnyHistoryLength(t *testing.T) {
	for n := 0; n < 50; n += 7 {
		h := make([]string, n)
		for i := range h {
			h[i] = fmt.Sprintf("User: %d", i)
		}

		prompt := BuildPrompt(h, "input")
		lines := strings.Split(prompt, "\n")
		require.Len(t, lines, n+1)
		assert.Equal(t, h, lines[:n])
		assert.Equal(t, "input", lines[n])
	}
}

func TestOnMessage_FirstTurn(t *testing.T) {
	backend := inmemory.New()
	client := &fakeClient{reply: "hello"}
	b, metrics := newTestBot(t, backend, client)

	reply, err := b.OnMessage(context.Background(), MessageEvent{ConversationID: "c1", SenderID: "u1", Text: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, "hello", reply.Speak)
	assert.Equal(t, "c1", reply.ConversationID)
	assert.NotEmpty(t, reply.ID)

	require.Len(t, client.requests, 1)
	assert.Equal(t, ai.Request{Prompt: "hi", MaxTokens: 2000, Temperature: 0.2, TopP: 0.5}, client.requests[0])

	assert.Equal(t, []string{"User: hi", "Bot: hello"}, history(t, backend, "c1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("message", "ok")))
}

func TestOnMessage_PromptCarriesHistory(t *testing.T) {
	backend := inmemory.New()
	client := &fakeClient{reply: "fine"}
	b, _ := newTestBot(t, backend, client)
	ctx := context.Background()

	client.reply = "hello"
	_, err := b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "hi"})
	require.NoError(t, err)

	client.reply = "fine"
	_, err = b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "how are you?"})
	require.NoError(t, err)

	require.Len(t, client.requests, 2)
	assert.Equal(t, "User: hi\nBot: hello\nhow are you?", client.requests[1].Prompt)
	assert.Equal(t,
		[]string{"User: hi", "Bot: hello", "User: how are you?", "Bot: fine"},
		history(t, backend, "c1"),
	)
}

func TestOnMessage_CompletionFailureLeavesMemoryUnchanged(t *testing.T) {
	backend := inmemory.New()
	require.NoError(t, backend.Save(context.Background(), "c1", []string{"User: hi", "Bot: hello"}))

	cause := &ai.ServiceError{Kind: ai.KindRateLimit, Err: errors.New("429")}
	b, metrics := newTestBot(t, backend, &fakeClient{err: cause})

	reply, err := b.OnMessage(context.Background(), MessageEvent{ConversationID: "c1", Text: "again"})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Reply{}, reply)

	assert.Equal(t, []string{"User: hi", "Bot: hello"}, history(t, backend, "c1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CompletionErrors.WithLabelValues("rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("message", "completion_error")))
}

func TestOnMessage_FailureThenSuccessKeepsPairs(t *testing.T) {
	backend := inmemory.New()
	client := &fakeClient{err: errors.New("boom")}
	b, _ := newTestBot(t, backend, client)
	ctx := context.Background()

	_, err := b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "lost"})
	require.Error(t, err)

	client.err = nil
	client.reply = "hello"
	_, err = b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "hi", client.requests[1].Prompt)
	assert.Equal(t, []string{"User: hi", "Bot: hello"}, history(t, backend, "c1"))
}

func TestOnMessage_CancelledTurnDoesNotMutate(t *testing.T) {
	backend := inmemory.New()
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{reply: "too late", before: cancel}
	b, _ := newTestBot(t, backend, client)

	_, err := b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "hi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ai.KindCanceled, ai.KindOf(err))

	_, found, err := backend.Load(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOnMessage_SaveFailureIsStorageError(t *testing.T) {
	backend := &brokenBackend{inner: inmemory.New(), saveErr: errors.New("disk full")}
	b, metrics := newTestBot(t, backend, &fakeClient{reply: "hello"})

	reply, err := b.OnMessage(context.Background(), MessageEvent{ConversationID: "c1", Text: "hi"})

	var storageErr *memory.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "save", storageErr.Op)
	assert.Equal(t, Reply{}, reply)

	_, found, _ := backend.inner.Load(context.Background(), "c1")
	assert.False(t, found)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StorageErrors.WithLabelValues("save")))
}

// gatedClient blocks every call until release is closed and echoes the
// last prompt line.
type gatedClient struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (g *gatedClient) Complete(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()

	g.entered <- struct{}{}
	<-g.release

	lines := strings.Split(req.Prompt, "\n")
	return "r:" + lines[len(lines)-1], nil
}

func TestOnMessage_ConcurrentTurnsOnSameConversation(t *testing.T) {
	backend := inmemory.New()
	client := &gatedClient{entered: make(chan struct{}, 2), release: make(chan struct{})}
	b, metrics := newTestBot(t, backend, client)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "one"})
	}()
	<-client.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = b.OnMessage(ctx, MessageEvent{ConversationID: "c1", Text: "two"})
	}()

	close(client.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t,
		[]string{"User: one", "Bot: r:one", "User: two", "Bot: r:two"},
		history(t, backend, "c1"),
	)
	require.Len(t, client.prompts, 2)
	assert.Equal(t, "User: one\nBot: r:one\ntwo", client.prompts[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("message", "ok")))
}

func TestOnMessage_NonServiceErrorHasOwnOutcome(t *testing.T) {
	b, metrics := newTestBot(t, inmemory.New(), &fakeClient{err: errors.New("boom")})

	_, err := b.OnMessage(context.Background(), MessageEvent{ConversationID: "c1", Text: "hi"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("message", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Turns.WithLabelValues("message", "completion_error")))
}

func TestOnMembersAdded_SkipsBotItself(t *testing.T) {
	b, metrics := newTestBot(t, inmemory.New(), &fakeClient{})

	replies := b.OnMembersAdded(context.Background(), MembersAddedEvent{
		ConversationID: "c1",
		MemberIDs:      []string{"A", "B"},
		RecipientID:    "A",
	})

	require.Len(t, replies, 1)
	assert.Equal(t, "Hello and welcome!", replies[0].Text)
	assert.Equal(t, "Hello and welcome!", replies[0].Speak)
	assert.Equal(t, "c1", replies[0].ConversationID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Welcomes))
}

func TestOnMembersAdded_OnlyBotJoined(t *testing.T) {
	b, _ := newTestBot(t, inmemory.New(), &fakeClient{})

	replies := b.OnMembersAdded(context.Background(), MembersAddedEvent{
		MemberIDs:   []string{"bot"},
		RecipientID: "bot",
	})
	assert.Empty(t, replies)
}

func TestOnMembersAdded_EachOtherMemberGreeted(t *testing.T) {
	b, _ := newTestBot(t, inmemory.New(), &fakeClient{})

	replies := b.OnMembersAdded(context.Background(), MembersAddedEvent{
		MemberIDs:   []string{"x", "bot", "y", "z"},
		RecipientID: "bot",
	})
	assert.Len(t, replies, 3)
}

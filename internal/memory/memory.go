package memory

import (
	"context"
	"errors"
	"fmt"
)

// Role prefixes an utterance in the conversation history.
type Role string

const (
	RoleUser Role = "User"
	RoleBot  Role = "Bot"
)

// Conversation is the ordered utterance history of one conversation.
type Conversation struct {
	ID      string
	History []string
}

// Utterance formats a history entry, e.g. "User: hi".
func Utterance(role Role, text string) string {
	return string(role) + ": " + text
}

// Backend is the durable storage behind a Store. Save replaces the whole
// record for a conversation.
type Backend interface {
	Load(ctx context.Context, conversationID string) (history []string, found bool, err error)
	Save(ctx context.Context, conversationID string, history []string) error
	Close(ctx context.Context) error
}

// ErrNotLoaded is returned by Append when the conversation was not resolved
// with GetOrCreate first.
var ErrNotLoaded = errors.New("conversation not loaded")

// StorageError reports a backend failure. It is fatal to the turn.
type StorageError struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("memory %s %q: %v", e.Op, e.ConversationID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

package memory

import (
	"context"
	"sync"
)

// entry tracks one conversation while any turn holds or waits for it.
type entry struct {
	lock chan struct{}
	refs int

	// set only while a turn holds lock
	staged  bool
	history []string
	dirty   bool
}

// Store manages conversation memory for multiple conversations. A turn owns
// its conversation from GetOrCreate until Save or Discard; a second turn on
// the same conversation waits in GetOrCreate. Records are staged for the
// duration of a turn and only written to the backend by Save.
type Store struct {
	backend Backend

	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore creates a new conversation store on top of backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		entries: make(map[string]*entry),
	}
}

// GetOrCreate waits for the conversation to be free, then resolves it,
// creating an empty one if the backend has no record. The returned value is
// a copy. The caller must finish the turn with Save or Discard.
func (s *Store) GetOrCreate(ctx context.Context, conversationID string) (Conversation, error) {
	e := s.acquire(conversationID)

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		s.unref(conversationID, e)
		return Conversation{}, ctx.Err()
	}

	history, found, err := s.backend.Load(ctx, conversationID)
	if err != nil {
		s.release(conversationID, e)
		return Conversation{}, &StorageError{Op: "load", ConversationID: conversationID, Err: err}
	}
	if !found {
		history = []string{}
	}

	s.mu.Lock()
	e.staged = true
	e.history = clone(history)
	e.dirty = false
	s.mu.Unlock()

	return Conversation{
		ID:      conversationID,
		History: clone(history),
	}, nil
}

// Append adds one utterance to the staged conversation.
func (s *Store) Append(conversationID string, role Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[conversationID]
	if !exists || !e.staged {
		return ErrNotLoaded
	}

	e.history = append(e.history, Utterance(role, text))
	e.dirty = true
	return nil
}

// Save flushes the staged conversation to the backend and ends the turn. It
// skips the backend when nothing was appended. On failure the staged changes
// are dropped so the next turn starts from what the backend holds.
func (s *Store) Save(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	e, exists := s.entries[conversationID]
	if !exists || !e.staged {
		s.mu.Unlock()
		return nil
	}
	history, dirty := e.history, e.dirty
	e.staged, e.history, e.dirty = false, nil, false
	s.mu.Unlock()

	defer s.release(conversationID, e)

	if !dirty {
		return nil
	}
	if err := s.backend.Save(ctx, conversationID, history); err != nil {
		return &StorageError{Op: "save", ConversationID: conversationID, Err: err}
	}
	return nil
}

// Discard drops staged, unsaved changes and ends the turn.
func (s *Store) Discard(conversationID string) {
	s.mu.Lock()
	e, exists := s.entries[conversationID]
	if !exists || !e.staged {
		s.mu.Unlock()
		return
	}
	e.staged, e.history, e.dirty = false, nil, false
	s.mu.Unlock()

	s.release(conversationID, e)
}

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

func (s *Store) acquire(conversationID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[conversationID]
	if !ok {
		e = &entry{lock: make(chan struct{}, 1)}
		s.entries[conversationID] = e
	}
	e.refs++
	return e
}

func (s *Store) release(conversationID string, e *entry) {
	<-e.lock
	s.unref(conversationID, e)
}

func (s *Store) unref(conversationID string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(s.entries, conversationID)
	}
}

func clone(history []string) []string {
	out := make([]string, len(history))
	copy(out, history)
	return out
}

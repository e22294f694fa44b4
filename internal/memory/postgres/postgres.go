package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/j0lvera/echobot/internal/db"
)

// PostgresStore persists conversation memory in PostgreSQL through pgx.
type PostgresStore struct {
	client *db.Client
}

func New(client *db.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Load(ctx context.Context, conversationID string) ([]string, bool, error) {
	var history []string
	err := s.client.Pool.QueryRow(ctx,
		`SELECT history FROM conversation_memories WHERE conversation_id=$1`,
		conversationID,
	).Scan(&history)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load conversation: %w", err)
	}
	if history == nil {
		history = []string{}
	}
	return history, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, conversationID string, history []string) error {
	if history == nil {
		history = []string{}
	}
	_, err := s.client.Pool.Exec(ctx,
		`INSERT INTO conversation_memories (conversation_id, history, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (conversation_id) DO UPDATE
		 SET history = EXCLUDED.history, updated_at = EXCLUDED.updated_at`,
		conversationID,
		history,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.client.Close()
	return nil
}

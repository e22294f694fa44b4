package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j0lvera/echobot/internal/db"
)

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping postgres integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	client, err := db.Open(ctx, url)
	require.NoError(t, err)

	s := New(client)
	defer s.Close(ctx)

	id := uuid.NewString()

	_, found, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, id, []string{"User: hi", "Bot: hello"}))
	require.NoError(t, s.Save(ctx, id, []string{"User: hi", "Bot: hello", "User: bye", "Bot: ciao"}))

	history, found, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"User: hi", "Bot: hello", "User: bye", "Bot: ciao"}, history)
}

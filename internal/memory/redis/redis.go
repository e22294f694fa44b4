package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMemory implements memory.Backend using Redis lists.
type RedisMemory struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new RedisMemory. A positive ttl expires idle conversations.
func New(client *redis.Client, ttl time.Duration) *RedisMemory {
	return &RedisMemory{client: client, ttl: ttl}
}

func key(conversationID string) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

// Load loads the history stored under "conversation:{conversationID}".
func (m *RedisMemory) Load(ctx context.Context, conversationID string) ([]string, bool, error) {
	history, err := m.client.LRange(ctx, key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	// Redis never keeps empty lists, so an empty result means no record.
	if len(history) == 0 {
		return nil, false, nil
	}
	return history, true, nil
}

// Save replaces the list in a single MULTI/EXEC transaction.
func (m *RedisMemory) Save(ctx context.Context, conversationID string, history []string) error {
	k := key(conversationID)

	values := make([]any, len(history))
	for i, h := range history {
		values[i] = h
	}

	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(values) > 0 {
			pipe.RPush(ctx, k, values...)
			if m.ttl > 0 {
				pipe.Expire(ctx, k, m.ttl)
			}
		}
		return nil
	})
	return err
}

func (m *RedisMemory) Close(context.Context) error {
	return m.client.Close()
}

package neo4j

import (
	"context"
	"fmt"

	"github.com/j0lvera/echobot/internal/memory/consts"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Neo4jMemory struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jMemory backend.
func New(ctx context.Context, uri, username, password, dbName string) (*Neo4jMemory, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j: %w", err)
	}

	return &Neo4jMemory{
		driver: driver,
		dbName: dbName,
	}, nil
}

func (m *Neo4jMemory) Load(ctx context.Context, conversationID string) ([]string, bool, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MATCH (c:%s {id: $conversationID})
		RETURN c.%s
		`, consts.LabelConversation, consts.ColHistory)

		res, err := tx.Run(ctx, query, map[string]any{"conversationID": conversationID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}

		raw, _ := res.Record().Get("c." + consts.ColHistory)
		items, _ := raw.([]any)

		history := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("history entry %d is %T, not string", i, item)
			}
			history = append(history, s)
		}
		return history, nil
	})
	if err != nil {
		return nil, false, err
	}

	history, ok := result.([]string)
	if !ok {
		return nil, false, nil
	}
	return history, true, nil
}

func (m *Neo4jMemory) Save(ctx context.Context, conversationID string, history []string) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
		MERGE (c:%s {id: $conversationID})
		SET c.%s = $history, c.%s = datetime()
		`, consts.LabelConversation, consts.ColHistory, consts.ColUpdatedAt)

		_, err := tx.Run(ctx, query, map[string]any{
			"conversationID": conversationID,
			"history":        history,
		})
		return nil, err
	})

	return err
}

func (m *Neo4jMemory) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

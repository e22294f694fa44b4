package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoMemory struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type ConversationDoc struct {
	ConversationID string    `bson:"_id"`
	History        []string  `bson:"history"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// New creates a new MongoMemory backend.
func New(client *mongo.Client, dbName, collectionName string) *MongoMemory {
	return &MongoMemory{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
	}
}

func (m *MongoMemory) Load(ctx context.Context, conversationID string) ([]string, bool, error) {
	var doc ConversationDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if doc.History == nil {
		doc.History = []string{}
	}
	return doc.History, true, nil
}

func (m *MongoMemory) Save(ctx context.Context, conversationID string, history []string) error {
	doc := ConversationDoc{
		ConversationID: conversationID,
		History:        history,
		UpdatedAt:      time.Now().UTC(),
	}

	_, err := m.collection.ReplaceOne(
		ctx,
		bson.M{"_id": conversationID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (m *MongoMemory) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

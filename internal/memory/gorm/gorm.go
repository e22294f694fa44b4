package gorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j0lvera/echobot/internal/memory/consts"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Memory implements memory.Backend using GORM.
type Memory struct {
	db *gorm.DB
}

// ConversationModel represents the database schema for a conversation.
type ConversationModel struct {
	ConversationID string `gorm:"primaryKey;size:191"`
	History        string `gorm:"type:text"` // JSON array of utterances
	UpdatedAt      time.Time
}

// TableName overrides the table name.
func (ConversationModel) TableName() string {
	return consts.TableNameConversations
}

// Open opens the database through dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*Memory, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialector.Name(), err)
	}
	return New(db)
}

// New creates a new Memory.
func New(db *gorm.DB) (*Memory, error) {
	if err := db.AutoMigrate(&ConversationModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Memory{db: db}, nil
}

// Load loads the history of a conversation.
func (m *Memory) Load(ctx context.Context, conversationID string) ([]string, bool, error) {
	var model ConversationModel
	err := m.db.WithContext(ctx).
		Where(consts.ColConversationID+" = ?", conversationID).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var history []string
	if err := json.Unmarshal([]byte(model.History), &history); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return history, true, nil
}

// Save upserts the conversation row.
func (m *Memory) Save(ctx context.Context, conversationID string, history []string) error {
	b, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	model := ConversationModel{
		ConversationID: conversationID,
		History:        string(b),
		UpdatedAt:      time.Now().UTC(),
	}

	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: consts.ColConversationID}},
			DoUpdates: clause.AssignmentColumns([]string{consts.ColHistory, consts.ColUpdatedAt}),
		}).
		Create(&model).Error
}

// Close closes the underlying connection pool.
func (m *Memory) Close(context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

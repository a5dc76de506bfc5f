package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cagkan/chatty"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// conversationModel is the persistence shape of a conversation.
type conversationModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"index;not null"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []messageModel `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

// messageModel is one persisted message. Position preserves append
// order independent of timestamp resolution.
type messageModel struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"index;not null"`
	Position       int    `gorm:"not null"`
	Role           string `gorm:"not null"`
	Content        string
	CreatedAt      time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// GormStore is a Postgres-backed ChatStore. Appends run inside a
// transaction that locks the conversation row, so concurrent appends
// to one conversation are serialized by the database.
type GormStore struct {
	db *gorm.DB
}

var _ chatty.ChatStore = &GormStore{}

// NewGormStore connects to Postgres and migrates the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an existing gorm connection.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&conversationModel{}, &messageModel{}); err != nil {
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateConversation(ctx context.Context, ownerID string, first chatty.Message) (*chatty.Conversation, error) {
	if err := validateMessages([]chatty.Message{first}); err != nil {
		return nil, err
	}
	now := time.Now()
	model := conversationModel{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     chatty.DeriveTitle(first.Content),
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []messageModel{{
			Position:  0,
			Role:      first.Role.String(),
			Content:   first.Content,
			CreatedAt: now,
		}},
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}
	return modelToConversation(&model), nil
}

func (s *GormStore) AppendMessages(ctx context.Context, conversationID, ownerID string, msgs []chatty.Message) error {
	if err := validateMessages(msgs); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation conversationModel
		err := tx.Clauses(forUpdate()).
			Where("id = ?", conversationID).
			First(&conversation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chatty.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("error loading conversation: %w", err)
		}
		if conversation.OwnerID != ownerID {
			return chatty.ErrForbidden
		}

		var position int64
		if err := tx.Model(&messageModel{}).
			Where("conversation_id = ?", conversationID).
			Count(&position).Error; err != nil {
			return fmt.Errorf("error counting messages: %w", err)
		}

		now := time.Now()
		rows := make([]messageModel, 0, len(msgs))
		for i, msg := range msgs {
			rows = append(rows, messageModel{
				ConversationID: conversationID,
				Position:       int(position) + i,
				Role:           msg.Role.String(),
				Content:        msg.Content,
				CreatedAt:      now,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("error appending messages: %w", err)
		}
		return tx.Model(&conversationModel{}).
			Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
}

func (s *GormStore) GetConversation(ctx context.Context, conversationID, ownerID string) (*chatty.Conversation, error) {
	var model conversationModel
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Where("id = ?", conversationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chatty.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading conversation: %w", err)
	}
	if model.OwnerID != ownerID {
		return nil, chatty.ErrForbidden
	}
	return modelToConversation(&model), nil
}

func modelToConversation(model *conversationModel) *chatty.Conversation {
	messages := make([]chatty.Message, 0, len(model.Messages))
	for _, row := range model.Messages {
		messages = append(messages, chatty.Message{
			Role:      chatty.Role(row.Role),
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		})
	}
	return &chatty.Conversation{
		ID:        model.ID,
		OwnerID:   model.OwnerID,
		Title:     model.Title,
		Messages:  messages,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

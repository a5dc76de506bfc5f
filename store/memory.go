// Package store provides chatty.ChatStore implementations: an
// in-memory store for development and tests, and a Postgres-backed
// store for production. Both serialize appends per store so
// concurrent appends to one conversation can never interleave.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/cagkan/chatty"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory ChatStore. Data is lost when the
// process exits.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*chatty.Conversation
}

var _ chatty.ChatStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*chatty.Conversation),
	}
}

func (s *MemoryStore) CreateConversation(ctx context.Context, ownerID string, first chatty.Message) (*chatty.Conversation, error) {
	if err := validateMessages([]chatty.Message{first}); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	first.CreatedAt = now
	conversation := &chatty.Conversation{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     chatty.DeriveTitle(first.Content),
		Messages:  []chatty.Message{first},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conversation.ID] = conversation
	return copyConversation(conversation), nil
}

func (s *MemoryStore) AppendMessages(ctx context.Context, conversationID, ownerID string, msgs []chatty.Message) error {
	if err := validateMessages(msgs); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[conversationID]
	if !ok {
		return chatty.ErrNotFound
	}
	if conversation.OwnerID != ownerID {
		return chatty.ErrForbidden
	}
	now := time.Now()
	for _, msg := range msgs {
		msg.CreatedAt = now
		conversation.Messages = append(conversation.Messages, msg)
	}
	conversation.UpdatedAt = now
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, conversationID, ownerID string) (*chatty.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[conversationID]
	if !ok {
		return nil, chatty.ErrNotFound
	}
	if conversation.OwnerID != ownerID {
		return nil, chatty.ErrForbidden
	}
	return copyConversation(conversation), nil
}

func copyConversation(c *chatty.Conversation) *chatty.Conversation {
	cp := *c
	cp.Messages = make([]chatty.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// Package chatty defines the domain model for the Chatty streaming
// conversation pipeline: conversations, messages, and the persistence
// gateway interface consumed by the completion relay.
package chatty

import (
	"context"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem is the preamble injected ahead of every upstream request.
	RoleSystem Role = "system"

	// RoleUser marks messages typed by the signed-in user.
	RoleUser Role = "user"

	// RoleAssistant marks replies produced by the completion service.
	RoleAssistant Role = "assistant"

	// RoleNotice is a client-only transient role used for UI callouts.
	// Notice messages are never persisted.
	RoleNotice Role = "notice"
)

func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleNotice:
		return true
	}
	return false
}

// Persistable reports whether messages with this role may be written
// to a ChatStore.
func (r Role) Persistable() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is a single entry in a conversation. Assistant content is
// markdown-formatted text.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Conversation is a persisted, append-only ordered list of messages
// with an owner and a derived title. The ID is assigned by the store
// on creation and never changes.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatStore is the chat persistence gateway. Implementations must
// verify ownership before any read or append and must serialize
// concurrent appends to the same conversation so message order is
// never corrupted.
type ChatStore interface {
	// CreateConversation creates a conversation owned by ownerID,
	// seeded with the first user message, and returns it with its
	// newly assigned ID. The title is derived from the first message.
	CreateConversation(ctx context.Context, ownerID string, first Message) (*Conversation, error)

	// AppendMessages appends messages to an existing conversation in
	// order. Returns ErrNotFound if the id does not resolve and
	// ErrForbidden if ownerID does not match the recorded owner.
	AppendMessages(ctx context.Context, conversationID, ownerID string, msgs []Message) error

	// GetConversation returns the conversation with its full message
	// history, subject to the same ownership semantics as
	// AppendMessages.
	GetConversation(ctx context.Context, conversationID, ownerID string) (*Conversation, error)
}

// TitleLimit is the maximum length of a derived conversation title,
// in runes.
const TitleLimit = 100

// DeriveTitle produces a conversation title from the first user
// message, truncated on a rune boundary.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= TitleLimit {
		return firstMessage
	}
	return string(runes[:TitleLimit])
}

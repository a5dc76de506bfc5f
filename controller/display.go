package controller

import (
	"github.com/cagkan/chatty"
	"github.com/google/uuid"
)

// DisplayMessage is one rendered list entry. ID is a list key only:
// it is regenerated on every snapshot and must never be persisted or
// compared across renders.
type DisplayMessage struct {
	ID      string
	Role    chatty.Role
	Content string
}

// Visible merges the server-confirmed history with the view's
// transient buffers into the list to render, in order: persisted
// history, pending messages, then the live reply (or the orphan
// notice when the turn no longer belongs to this view).
func (s State) Visible(history []chatty.Message) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(history)+len(s.Pending)+2)
	for _, msg := range history {
		out = append(out, display(msg.Role, msg.Content))
	}
	for _, msg := range s.Pending {
		out = append(out, display(msg.Role, msg.Content))
	}
	if s.Incoming != "" {
		if s.Orphaned() {
			out = append(out, display(chatty.RoleNotice, OrphanNotice))
		} else {
			out = append(out, display(chatty.RoleAssistant, s.Incoming))
		}
	}
	if s.Notice != "" {
		out = append(out, display(chatty.RoleNotice, s.Notice))
	}
	return out
}

func display(role chatty.Role, content string) DisplayMessage {
	return DisplayMessage{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/client"
	"github.com/cagkan/chatty/controller"
	"github.com/cagkan/chatty/stream"
)

// ChatClient is the slice of the relay client the TUI needs.
type ChatClient interface {
	Send(ctx context.Context, chatID, message string) (*client.Consumer, error)
	GetConversation(ctx context.Context, chatID string) (*chatty.Conversation, error)
}

type (
	// eventMsg wraps a controller event arriving from the stream
	// pump or a command.
	eventMsg struct {
		event controller.Event
	}

	// historyMsg carries a refetched conversation.
	historyMsg struct {
		conversation *chatty.Conversation
		err          error
	}
)

// runTurn sends the message and pumps every frame of the reply into
// the events channel as controller events. The final StreamClosed
// carries how the stream ended.
func runTurn(c ChatClient, chatID, message string, events chan<- controller.Event) tea.Cmd {
	return func() tea.Msg {
		consumer, err := c.Send(context.Background(), chatID, message)
		if err != nil {
			events <- controller.TurnFailed{Err: err}
			return nil
		}
		defer consumer.Close()

		err = consumer.Consume(context.Background(), func(f stream.Frame) error {
			switch f.Kind {
			case stream.Content:
				events <- controller.DeltaReceived{Text: f.Text}
			case stream.Control:
				events <- controller.ControlReceived{Name: f.Name, Payload: f.Payload}
			}
			return nil
		})
		events <- controller.StreamClosed{Err: err}
		return nil
	}
}

// awaitEvent delivers the next pumped event to Update.
func awaitEvent(events <-chan controller.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-events}
	}
}

// loadHistory refetches the authoritative persisted conversation.
func loadHistory(c ChatClient, chatID string) tea.Cmd {
	return func() tea.Msg {
		conversation, err := c.GetConversation(context.Background(), chatID)
		return historyMsg{conversation: conversation, err: err}
	}
}

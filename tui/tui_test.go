package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/client"
	"github.com/cagkan/chatty/controller"
	"github.com/cagkan/chatty/stream"
)

type fakeClient struct {
	frames       []stream.Frame
	conversation *chatty.Conversation
	sent         []string
}

func (f *fakeClient) Send(ctx context.Context, chatID, message string) (*client.Consumer, error) {
	f.sent = append(f.sent, message)
	var sb strings.Builder
	encoder := stream.NewEncoder(&sb)
	for _, frame := range f.frames {
		if err := encoder.Encode(frame); err != nil {
			return nil, err
		}
	}
	return client.NewConsumer(io.NopCloser(strings.NewReader(sb.String()))), nil
}

func (f *fakeClient) GetConversation(ctx context.Context, chatID string) (*chatty.Conversation, error) {
	return f.conversation, nil
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func TestSubmitStartsSending(t *testing.T) {
	m := sized(New(&fakeClient{}, ""))
	m = typeText(m, "Hello")
	assert.Equal(t, "Hello", m.state.Draft)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.Equal(t, controller.Sending, m.state.Phase)
	assert.Empty(t, m.textarea.Value())
	require.NotNil(t, cmd)
}

func TestTypingIgnoredWhileSending(t *testing.T) {
	m := sized(New(&fakeClient{}, ""))
	m = typeText(m, "Hello")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.Equal(t, controller.Sending, m.state.Phase)

	m = typeText(m, "more")
	assert.Empty(t, m.textarea.Value())
	assert.Empty(t, m.state.Draft)
}

func TestStreamEventsAdvanceController(t *testing.T) {
	m := sized(New(&fakeClient{}, "C1"))
	m = typeText(m, "q")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	for _, event := range []controller.Event{
		controller.DeltaReceived{Text: "Hi"},
		controller.DeltaReceived{Text: " there!"},
	} {
		next, _ = m.Update(eventMsg{event: event})
		m = next.(Model)
	}
	assert.Equal(t, "Hi there!", m.state.Incoming)

	next, _ = m.Update(eventMsg{event: controller.StreamClosed{}})
	m = next.(Model)
	assert.Equal(t, controller.Idle, m.state.Phase)
	require.Len(t, m.state.Pending, 2)
	assert.Equal(t, "Hi there!", m.state.Pending[1].Content)
}

func TestNewChatNavigatesAfterClose(t *testing.T) {
	c := &fakeClient{conversation: &chatty.Conversation{
		ID: "C1",
		Messages: []chatty.Message{
			{Role: chatty.RoleUser, Content: "Hello"},
			{Role: chatty.RoleAssistant, Content: "Hi there!"},
		},
	}}
	m := sized(New(c, ""))
	m = typeText(m, "Hello")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	next, _ = m.Update(eventMsg{event: controller.ControlReceived{
		Name: stream.EventNewChatID, Payload: "C1",
	}})
	m = next.(Model)
	assert.Empty(t, m.state.ActiveChatID)

	next, cmd := m.Update(eventMsg{event: controller.StreamClosed{}})
	m = next.(Model)
	assert.Equal(t, "C1", m.state.ActiveChatID)
	require.NotNil(t, cmd)
}

func TestHistoryMsgReplacesHistory(t *testing.T) {
	m := sized(New(&fakeClient{}, "C1"))
	next, _ := m.Update(historyMsg{conversation: &chatty.Conversation{
		ID:       "C1",
		Messages: []chatty.Message{{Role: chatty.RoleUser, Content: "Hello"}},
	}})
	m = next.(Model)
	require.Len(t, m.history, 1)
	assert.Equal(t, "Hello", m.history[0].Content)
}

func TestRunTurnPumpsEvents(t *testing.T) {
	c := &fakeClient{frames: []stream.Frame{
		stream.ControlFrame(stream.EventNewChatID, "C1"),
		stream.ContentFrame("Hi"),
		stream.ControlFrame(stream.EventEnd, ""),
	}}
	events := make(chan controller.Event)
	done := make(chan struct{})
	go func() {
		runTurn(c, "", "Hello", events)()
		close(done)
	}()

	assert.Equal(t, controller.ControlReceived{
		Name: stream.EventNewChatID, Payload: "C1",
	}, <-events)
	assert.Equal(t, controller.DeltaReceived{Text: "Hi"}, <-events)
	closed, ok := (<-events).(controller.StreamClosed)
	require.True(t, ok)
	assert.NoError(t, closed.Err)
	<-done
	assert.Equal(t, []string{"Hello"}, c.sent)
}

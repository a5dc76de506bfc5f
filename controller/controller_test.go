package controller

import (
	"errors"
	"testing"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/client"
	"github.com/cagkan/chatty/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, s State, events ...Event) (State, []Effect) {
	t.Helper()
	var all []Effect
	for _, e := range events {
		var effects []Effect
		s, effects = Update(s, e)
		all = append(all, effects...)
	}
	return s, all
}

func TestSubmitStartsTurn(t *testing.T) {
	s := NewState("")
	s, effects := apply(t, s,
		DraftChanged{Text: "Hello"},
		SubmitRequested{},
	)
	assert.Equal(t, Sending, s.Phase)
	assert.Empty(t, s.Draft)
	require.Len(t, s.Pending, 1)
	assert.Equal(t, chatty.RoleUser, s.Pending[0].Role)
	assert.Equal(t, "Hello", s.Pending[0].Content)
	require.Len(t, effects, 1)
	assert.Equal(t, SendTurn{ChatID: "", Message: "Hello"}, effects[0])
}

func TestSubmitWhileSendingIsInert(t *testing.T) {
	s := NewState("C1")
	s, _ = apply(t, s, DraftChanged{Text: "first"}, SubmitRequested{})
	require.Equal(t, Sending, s.Phase)

	// Neither typing nor submitting does anything during a turn.
	next, effects := apply(t, s, DraftChanged{Text: "second"}, SubmitRequested{})
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestEmptyDraftDoesNotSubmit(t *testing.T) {
	s := NewState("")
	s, effects := apply(t, s, DraftChanged{Text: "   "}, SubmitRequested{})
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, effects)
	assert.Empty(t, s.Pending)
}

func TestNewConversationTurnLifecycle(t *testing.T) {
	// Submit "Hello" with no conversation id; the relay creates C1
	// and streams "Hi", " there!".
	s := NewState("")
	s, effects := apply(t, s, DraftChanged{Text: "Hello"}, SubmitRequested{})
	require.Len(t, effects, 1)

	s, effects = apply(t, s,
		ControlReceived{Name: stream.EventNewChatID, Payload: "C1"},
		DeltaReceived{Text: "Hi"},
		DeltaReceived{Text: " there!"},
	)
	// Navigation is deferred: the id is parked, not acted on.
	assert.Empty(t, effects)
	assert.Equal(t, "C1", s.PendingNewChatID)
	assert.Equal(t, "Hi there!", s.Incoming)
	assert.Equal(t, Sending, s.Phase)

	s, effects = apply(t, s, StreamClosed{})
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, s.Incoming)
	require.Len(t, s.Pending, 2)
	assert.Equal(t, chatty.RoleAssistant, s.Pending[1].Role)
	assert.Equal(t, "Hi there!", s.Pending[1].Content)

	// Exactly one navigation, only after stream close.
	require.Len(t, effects, 1)
	assert.Equal(t, Navigate{ChatID: "C1"}, effects[0])
	assert.Empty(t, s.PendingNewChatID)
}

func TestExistingConversationNoNavigation(t *testing.T) {
	s := NewState("C1")
	s, _ = apply(t, s, DraftChanged{Text: "more"}, SubmitRequested{})
	s, effects := apply(t, s,
		DeltaReceived{Text: "Sure!"},
		StreamClosed{},
	)
	assert.Empty(t, effects)
	assert.Equal(t, Idle, s.Phase)
	require.Len(t, s.Pending, 2)
}

func TestOrphanedTurnIsDrainedAndDiscarded(t *testing.T) {
	// User is on C1, submits, then navigates to C2 before the stream
	// closes.
	s := NewState("C1")
	s, _ = apply(t, s, DraftChanged{Text: "question"}, SubmitRequested{})
	s, effects := apply(t, s, DeltaReceived{Text: "partial "})

	s, effects = apply(t, s, RouteChanged{ChatID: "C2"})
	require.Len(t, effects, 1)
	assert.Equal(t, ReloadHistory{ChatID: "C2"}, effects[0])
	assert.True(t, s.Orphaned())
	assert.Empty(t, s.Pending)

	// The still-arriving reply renders as a single notice, not as
	// assistant content.
	s, _ = apply(t, s, DeltaReceived{Text: "reply"})
	visible := s.Visible(nil)
	require.Len(t, visible, 1)
	assert.Equal(t, chatty.RoleNotice, visible[0].Role)
	assert.Equal(t, OrphanNotice, visible[0].Content)

	// Closing the orphaned stream merges nothing and navigates
	// nowhere.
	s, effects = apply(t, s,
		ControlReceived{Name: stream.EventNewChatID, Payload: "C9"},
		StreamClosed{},
	)
	assert.Empty(t, effects)
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, s.Pending)
	assert.Empty(t, s.Incoming)
	assert.Empty(t, s.PendingNewChatID)
}

func TestRouteChangeDiscardsTransientState(t *testing.T) {
	s := NewState("C1")
	s.Pending = []chatty.Message{{Role: chatty.RoleUser, Content: "old"}}
	s.Notice = "stale"

	s, effects := apply(t, s, RouteChanged{ChatID: "C2"})
	assert.Equal(t, "C2", s.ActiveChatID)
	assert.Empty(t, s.Pending)
	assert.Empty(t, s.Notice)
	require.Len(t, effects, 1)
	assert.Equal(t, ReloadHistory{ChatID: "C2"}, effects[0])
}

func TestRouteChangeToSameConversationIsNoop(t *testing.T) {
	s := NewState("C1")
	s.Pending = []chatty.Message{{Role: chatty.RoleUser, Content: "kept"}}
	next, effects := apply(t, s, RouteChanged{ChatID: "C1"})
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestTurnFailedShowsNotice(t *testing.T) {
	s := NewState("")
	s, _ = apply(t, s, DraftChanged{Text: "Hello"}, SubmitRequested{})
	s, effects := apply(t, s, TurnFailed{Err: errors.New("forbidden")})
	assert.Empty(t, effects)
	assert.Equal(t, Idle, s.Phase)
	assert.Equal(t, FailureNotice, s.Notice)

	visible := s.Visible(nil)
	require.Len(t, visible, 2)
	assert.Equal(t, chatty.RoleNotice, visible[1].Role)
}

func TestTruncatedStreamStillMerges(t *testing.T) {
	s := NewState("C1")
	s, _ = apply(t, s, DraftChanged{Text: "q"}, SubmitRequested{})
	s, _ = apply(t, s,
		DeltaReceived{Text: "partial reply"},
		StreamClosed{Err: client.ErrTruncatedStream},
	)
	assert.Equal(t, Idle, s.Phase)
	require.Len(t, s.Pending, 2)
	assert.Equal(t, "partial reply", s.Pending[1].Content)
	assert.ErrorIs(t, s.LastTurnErr, client.ErrTruncatedStream)
}

func TestVisibleMergesHistoryAndBuffers(t *testing.T) {
	s := NewState("C1")
	s, _ = apply(t, s, DraftChanged{Text: "next q"}, SubmitRequested{})
	s, _ = apply(t, s, DeltaReceived{Text: "typing..."})

	history := []chatty.Message{
		{Role: chatty.RoleUser, Content: "Hello"},
		{Role: chatty.RoleAssistant, Content: "Hi there!"},
	}
	visible := s.Visible(history)
	require.Len(t, visible, 4)
	assert.Equal(t, "Hello", visible[0].Content)
	assert.Equal(t, "next q", visible[2].Content)
	assert.Equal(t, "typing...", visible[3].Content)
	assert.Equal(t, chatty.RoleAssistant, visible[3].Role)
}

func TestListKeysAreEphemeral(t *testing.T) {
	s := NewState("C1")
	s.Pending = []chatty.Message{{Role: chatty.RoleUser, Content: "Hello"}}

	first := s.Visible(nil)
	second := s.Visible(nil)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	// List keys are a pure rendering concern, regenerated per pass.
	assert.NotEqual(t, first[0].ID, second[0].ID)
}

// Package controller implements the conversation view as an explicit
// state machine. A single transition function consumes the current
// state and one event and returns the next state plus the effects the
// shell must run. Every transition is testable without a UI harness.
package controller

import (
	"strings"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/stream"
)

// Phase is the controller's top-level mode.
type Phase int

const (
	// Idle accepts submits.
	Idle Phase = iota

	// Sending has a turn in flight. The submit control is inert for
	// the whole phase; this is the sole single-flight mechanism.
	Sending
)

// OrphanNotice is shown in place of a still-streaming reply when the
// user navigated away from the conversation the turn started under.
const OrphanNotice = "Only one message at a time. Please allow any other responses to complete " +
	"before sending another message!"

// FailureNotice is shown when a turn could not start at all.
const FailureNotice = "The assistant failed to respond. Please try again."

// State is the view's transient, client-owned state. It is created on
// view mount and discarded on navigation to a different conversation.
type State struct {
	Phase Phase

	// ActiveChatID is the conversation the view currently displays,
	// derived from navigation. Empty means a fresh, unsaved chat.
	ActiveChatID string

	// TurnChatID is the conversation the in-flight turn started
	// under. Compared against ActiveChatID to detect orphaned turns.
	TurnChatID string

	// Draft is the message being typed.
	Draft string

	// Pending buffers messages created since page load that are not
	// yet part of the server-confirmed history.
	Pending []chatty.Message

	// Incoming accumulates the streamed reply for live rendering. It
	// is merged into Pending only when the turn completes.
	Incoming string

	// PendingNewChatID holds a newChatId control payload until the
	// turn completes; navigation is deferred to avoid relocating the
	// user mid-render.
	PendingNewChatID string

	// Notice is a transient callout rendered as a notice-role
	// message.
	Notice string

	// LastTurnErr records how the previous turn's stream ended, for
	// logging. A truncated stream still renders what arrived.
	LastTurnErr error
}

// NewState returns the mount state for a view opened on the given
// conversation (empty for a new chat).
func NewState(chatID string) State {
	return State{Phase: Idle, ActiveChatID: chatID}
}

// Orphaned reports whether the in-flight turn no longer corresponds
// to the viewed conversation.
func (s State) Orphaned() bool {
	return s.Phase == Sending && s.ActiveChatID != s.TurnChatID
}

// Event is an input to Update.
type Event interface{ isEvent() }

// DraftChanged replaces the draft text.
type DraftChanged struct{ Text string }

// SubmitRequested asks to send the current draft.
type SubmitRequested struct{}

// DeltaReceived carries one content frame's text.
type DeltaReceived struct{ Text string }

// ControlReceived carries one control frame.
type ControlReceived struct{ Name, Payload string }

// StreamClosed signals the reply stream ended. Err is nil on a clean
// end frame, client.ErrTruncatedStream on raw closure, or a TurnError
// if the upstream failed mid-stream.
type StreamClosed struct{ Err error }

// TurnFailed signals the turn could not start: no frame was ever
// received.
type TurnFailed struct{ Err error }

// RouteChanged signals navigation to a different conversation.
type RouteChanged struct{ ChatID string }

func (DraftChanged) isEvent()    {}
func (SubmitRequested) isEvent() {}
func (DeltaReceived) isEvent()   {}
func (ControlReceived) isEvent() {}
func (StreamClosed) isEvent()    {}
func (TurnFailed) isEvent()      {}
func (RouteChanged) isEvent()    {}

// Effect is a side effect the shell must perform after a transition.
type Effect interface{ isEffect() }

// SendTurn submits a message to the relay.
type SendTurn struct{ ChatID, Message string }

// Navigate moves the view to a conversation. Emitted at most once per
// turn, only after the stream closes.
type Navigate struct{ ChatID string }

// ReloadHistory refetches the authoritative persisted history.
type ReloadHistory struct{ ChatID string }

func (SendTurn) isEffect()      {}
func (Navigate) isEffect()      {}
func (ReloadHistory) isEffect() {}

// Update is the single transition function.
func Update(s State, event Event) (State, []Effect) {
	switch e := event.(type) {

	case DraftChanged:
		if s.Phase == Sending {
			// The input is disabled while a turn is in flight.
			return s, nil
		}
		s.Draft = e.Text
		return s, nil

	case SubmitRequested:
		if s.Phase == Sending {
			// Single-flight: submits during a turn are inert.
			return s, nil
		}
		message := strings.TrimSpace(s.Draft)
		if message == "" {
			return s, nil
		}
		s.Pending = append(s.Pending, chatty.Message{
			Role:    chatty.RoleUser,
			Content: message,
		})
		s.Draft = ""
		s.Notice = ""
		s.Incoming = ""
		s.LastTurnErr = nil
		s.Phase = Sending
		s.TurnChatID = s.ActiveChatID
		return s, []Effect{SendTurn{ChatID: s.ActiveChatID, Message: message}}

	case DeltaReceived:
		if s.Phase != Sending {
			return s, nil
		}
		// Accumulate even when orphaned: the stream is drained either
		// way, only rendering and merging differ.
		s.Incoming += e.Text
		return s, nil

	case ControlReceived:
		if s.Phase != Sending {
			return s, nil
		}
		if e.Name == stream.EventNewChatID {
			s.PendingNewChatID = e.Payload
		}
		return s, nil

	case TurnFailed:
		s.Phase = Idle
		s.TurnChatID = ""
		s.Incoming = ""
		s.PendingNewChatID = ""
		s.Notice = FailureNotice
		s.LastTurnErr = e.Err
		return s, nil

	case StreamClosed:
		orphaned := s.Orphaned()
		s.Phase = Idle
		s.TurnChatID = ""
		s.LastTurnErr = e.Err
		if orphaned {
			// Drained but discarded: the result never merges into the
			// now-active view's history.
			s.Incoming = ""
			s.PendingNewChatID = ""
			return s, nil
		}
		if s.Incoming != "" {
			s.Pending = append(s.Pending, chatty.Message{
				Role:    chatty.RoleAssistant,
				Content: s.Incoming,
			})
			s.Incoming = ""
		}
		if id := s.PendingNewChatID; id != "" {
			s.PendingNewChatID = ""
			return s, []Effect{Navigate{ChatID: id}}
		}
		return s, nil

	case RouteChanged:
		if e.ChatID == s.ActiveChatID {
			return s, nil
		}
		// All transient buffers tied to the previous view are
		// discarded; the in-flight turn, if any, becomes orphaned.
		s.ActiveChatID = e.ChatID
		s.Pending = nil
		s.PendingNewChatID = ""
		s.Notice = ""
		s.LastTurnErr = nil
		if s.Phase == Idle {
			s.Incoming = ""
			s.TurnChatID = ""
		}
		if e.ChatID != "" {
			return s, []Effect{ReloadHistory{ChatID: e.ChatID}}
		}
		return s, nil
	}
	return s, nil
}

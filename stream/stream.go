// Package stream implements the wire protocol for a conversation
// turn: a single byte stream multiplexing assistant content deltas
// with out-of-band control events (new conversation id, terminal
// markers). Frames are self-delimiting SSE-style units, so a reader
// can decode them incrementally regardless of how the transport
// chunks the bytes.
package stream

import "errors"

// Kind discriminates the two frame variants.
type Kind int

const (
	// Content frames carry a fragment of assistant text to append.
	Content Kind = iota

	// Control frames carry a named out-of-band event.
	Control
)

func (k Kind) String() string {
	switch k {
	case Content:
		return "content"
	case Control:
		return "control"
	default:
		return "unknown"
	}
}

// Control event names understood by the pipeline.
const (
	// EventNewChatID announces the id assigned to a conversation
	// created for this turn. When present it precedes all content.
	EventNewChatID = "newChatId"

	// EventEnd marks successful completion of the assistant turn.
	EventEnd = "end"

	// EventError marks an upstream failure after streaming began.
	// The payload carries a reason string.
	EventError = "error"
)

// Frame is one decoded unit of the turn stream.
type Frame struct {
	Kind    Kind
	Text    string // content fragment, Content frames only
	Name    string // event name, Control frames only
	Payload string // event payload, Control frames only
}

// ContentFrame returns a frame carrying a text fragment.
func ContentFrame(text string) Frame {
	return Frame{Kind: Content, Text: text}
}

// ControlFrame returns a frame carrying a named event.
func ControlFrame(name, payload string) Frame {
	return Frame{Kind: Control, Name: name, Payload: payload}
}

// Terminal reports whether the frame ends the turn.
func (f Frame) Terminal() bool {
	return f.Kind == Control && (f.Name == EventEnd || f.Name == EventError)
}

// ErrMalformedFrame is returned when a unit cannot be parsed, or when
// a single unit exceeds the decoder's buffer bound. Malformed input
// is fatal to the stream: callers must abort rather than resynchronize.
var ErrMalformedFrame = errors.New("malformed stream frame")

// wireFrame is the JSON shape of one unit. The frame kind is carried
// structurally by the presence of the event member, never inferred
// from content text.
type wireFrame struct {
	Event   string `json:"event,omitempty"`
	Content string `json:"content"`
}

// Package llm is the client for the external completion service. It
// speaks the OpenAI chat-completions API and exposes replies either
// whole or as an ordered stream of text deltas.
package llm

import (
	"context"

	"github.com/cagkan/chatty"
)

// DefaultSystemPrompt is the persona preamble sent ahead of every
// conversation. It is injected per request and never persisted.
const DefaultSystemPrompt = "Your name is Chatty. An incredibly intelligent and quick-thinking AI, " +
	"that always replies with an enthusiastic and positive energy. " +
	"You were created by Cagkan. Your response must be formatted as markdown."

// StreamIterator yields assistant text deltas in the order the
// service produced them.
type StreamIterator interface {
	// Next advances to the next non-empty delta. It returns false
	// when the stream completes or fails; check Err to distinguish.
	Next() bool

	// Delta returns the current text fragment. Valid only after a
	// true Next.
	Delta() string

	// Err returns the error that ended the stream, or nil on clean
	// completion.
	Err() error

	// Close releases the underlying connection.
	Close() error
}

// Service generates assistant replies from a message history.
type Service interface {
	// Stream opens a streaming completion request. Errors
	// establishing the stream are returned synchronously; errors
	// mid-stream surface through the iterator.
	Stream(ctx context.Context, messages []chatty.Message) (StreamIterator, error)

	// Generate returns the complete assistant reply text.
	Generate(ctx context.Context, messages []chatty.Message) (string, error)
}

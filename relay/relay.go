// Package relay implements the server side of the streaming
// conversation pipeline: it receives a user message, ensures a
// conversation record exists, opens a streaming request to the
// completion service, and re-encodes the reply as a frame stream
// while recording the full exchange.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/llm"
	"github.com/cagkan/chatty/retry"
	"github.com/cagkan/chatty/stream"
)

// ErrUpstream wraps completion-service failures that occur before any
// frame is emitted, so the HTTP layer can report them as a gateway
// problem.
var ErrUpstream = errors.New("completion service unavailable")

// ErrEmptyMessage rejects turns with no user text.
var ErrEmptyMessage = errors.New("message must not be empty")

// Request is one inbound turn. An empty ChatID asks the relay to
// create a new conversation.
type Request struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Options configures a Relay.
type Options struct {
	Store         chatty.ChatStore
	Provider      llm.Service
	Logger        *slog.Logger
	RetryBaseWait time.Duration
}

// Relay orchestrates turns. It holds no per-turn state; one Relay
// serves concurrent requests.
type Relay struct {
	store         chatty.ChatStore
	provider      llm.Service
	logger        *slog.Logger
	retryBaseWait time.Duration
}

func New(opts Options) *Relay {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	retryBaseWait := opts.RetryBaseWait
	if retryBaseWait <= 0 {
		retryBaseWait = retry.DefaultBaseWait
	}
	return &Relay{
		store:         opts.Store,
		provider:      opts.Provider,
		logger:        logger,
		retryBaseWait: retryBaseWait,
	}
}

// Turn is a started turn whose upstream stream is open but whose
// outbound frame stream has not begun.
type Turn struct {
	ConversationID string
	IsNew          bool

	ownerID  string
	iterator llm.StreamIterator
}

// StartTurn performs all work that can still fail synchronously: lazy
// conversation creation, persistence of the user message, and opening
// the upstream stream. Any error here means no frame was emitted and
// the caller reports a terminal error response instead.
func (r *Relay) StartTurn(ctx context.Context, callerID string, req Request) (*Turn, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	userMessage := chatty.Message{Role: chatty.RoleUser, Content: req.Message}

	var (
		conversationID string
		isNew          bool
		history        []chatty.Message
	)
	if req.ChatID == "" {
		conversation, err := r.store.CreateConversation(ctx, callerID, userMessage)
		if err != nil {
			return nil, fmt.Errorf("error creating conversation: %w", err)
		}
		conversationID = conversation.ID
		isNew = true
		history = conversation.Messages
	} else {
		conversation, err := r.store.GetConversation(ctx, req.ChatID, callerID)
		if err != nil {
			return nil, err
		}
		if err := r.store.AppendMessages(ctx, conversation.ID, callerID, []chatty.Message{userMessage}); err != nil {
			return nil, err
		}
		conversationID = conversation.ID
		history = append(conversation.Messages, userMessage)
	}

	iterator, err := r.provider.Stream(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &Turn{
		ConversationID: conversationID,
		IsNew:          isNew,
		ownerID:        callerID,
		iterator:       iterator,
	}, nil
}

// Flusher pushes buffered bytes to the client after each frame.
type Flusher interface {
	Flush()
}

// StreamTurn encodes the turn onto w. The new-conversation control
// frame, when present, strictly precedes all content. Each delta is
// forwarded and flushed as soon as the upstream produces it. Errors
// after streaming has begun close the outbound stream with an error
// control frame; they are never turned into an HTTP error. The
// accumulated assistant text is persisted once the upstream stream
// ends, regardless of whether the client is still connected.
func (r *Relay) StreamTurn(ctx context.Context, turn *Turn, w io.Writer, flusher Flusher) {
	logger := r.logger.With("conversation_id", turn.ConversationID)
	defer turn.iterator.Close()

	encoder := stream.NewEncoder(w)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Outbound write failures (client navigated away, connection
	// dropped) stop writing but not reading: the upstream reply is
	// still drained so the full assistant turn can be persisted.
	writable := true
	emit := func(f stream.Frame) {
		if !writable {
			return
		}
		if err := encoder.Encode(f); err != nil {
			logger.Warn("client write failed, draining upstream", "error", err)
			writable = false
			return
		}
		flush()
	}

	if turn.IsNew {
		emit(stream.ControlFrame(stream.EventNewChatID, turn.ConversationID))
	}

	var full strings.Builder
	for turn.iterator.Next() {
		delta := turn.iterator.Delta()
		full.WriteString(delta)
		emit(stream.ContentFrame(delta))
	}

	if err := turn.iterator.Err(); err != nil {
		logger.Error("upstream stream failed", "error", err)
		emit(stream.ControlFrame(stream.EventError, "upstream disconnected"))
	} else {
		emit(stream.ControlFrame(stream.EventEnd, ""))
	}

	r.persistAssistantTurn(ctx, turn, full.String(), logger)
}

// persistAssistantTurn is the completion hook: a best-effort side
// effect that must not re-open the already-closed outbound stream. A
// final failure is logged so the lost write is operationally
// observable.
func (r *Relay) persistAssistantTurn(ctx context.Context, turn *Turn, content string, logger *slog.Logger) {
	if content == "" {
		logger.Warn("assistant turn produced no content, nothing to persist")
		return
	}
	// The client canceling the request must not cancel persistence.
	ctx = context.WithoutCancel(ctx)
	err := retry.Do(ctx, func() error {
		err := r.store.AppendMessages(ctx, turn.ConversationID, turn.ownerID, []chatty.Message{{
			Role:    chatty.RoleAssistant,
			Content: content,
		}})
		if err != nil && !errors.Is(err, chatty.ErrNotFound) && !errors.Is(err, chatty.ErrForbidden) {
			return retry.NewRecoverableError(err)
		}
		return err
	}, retry.WithMaxRetries(3), retry.WithBaseWait(r.retryBaseWait))
	if err != nil {
		logger.Error("failed to persist assistant message",
			"error", err, "content_length", len(content))
	}
}

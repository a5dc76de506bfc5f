// Package client consumes the relay's frame stream: it sends turns,
// decodes reply frames incrementally, and reloads persisted history.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cagkan/chatty/stream"
)

// ErrTruncatedStream indicates the reply stream closed without a
// terminal frame. Everything received before the cut was already
// delivered; the reply may be incomplete.
var ErrTruncatedStream = errors.New("stream closed without terminal frame")

// TurnError carries the reason from an error terminal frame: the
// upstream failed after streaming had begun.
type TurnError struct {
	Reason string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("assistant turn failed: %s", e.Reason)
}

// Consumer reads frames from a reply stream and hands each one to a
// caller-supplied handler as soon as it is decodable. It never
// buffers the response beyond the single frame being decoded.
type Consumer struct {
	body    io.ReadCloser
	decoder *stream.Decoder
}

func NewConsumer(body io.ReadCloser) *Consumer {
	return &Consumer{
		body:    body,
		decoder: stream.NewDecoder(body),
	}
}

// Consume delivers frames to handler until the stream ends. It
// returns nil on a clean end frame, a TurnError on an error frame,
// ErrTruncatedStream on raw closure, and the handler's error if it
// rejects a frame. Terminal frames are consumed internally and never
// reach the handler.
func (c *Consumer) Consume(ctx context.Context, handler func(stream.Frame) error) error {
	defer c.body.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := c.decoder.Next()
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return ErrTruncatedStream
			}
			return err
		}
		if frame.Terminal() {
			if frame.Name == stream.EventError {
				return &TurnError{Reason: frame.Payload}
			}
			return nil
		}
		if err := handler(frame); err != nil {
			return err
		}
	}
}

// Close releases the underlying stream without draining it.
func (c *Consumer) Close() error {
	return c.body.Close()
}

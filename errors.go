package chatty

import "errors"

var (
	// ErrNotFound indicates a conversation id that does not resolve.
	ErrNotFound = errors.New("conversation not found")

	// ErrForbidden indicates an ownership check failure: the caller's
	// identity does not match the conversation's recorded owner.
	ErrForbidden = errors.New("conversation owned by another user")
)

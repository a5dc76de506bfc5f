package store

import (
	"fmt"

	"github.com/cagkan/chatty"
)

// validateMessages rejects writes this pipeline must never make:
// empty batches and client-transient roles.
func validateMessages(msgs []chatty.Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("no messages to persist")
	}
	for _, msg := range msgs {
		if !msg.Role.Persistable() {
			return fmt.Errorf("role %q is not persistable", msg.Role)
		}
	}
	return nil
}

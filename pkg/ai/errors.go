package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider is returned when a provider type is not registered.
	ErrUnknownProvider = errors.New("unknown provider type")

	// ErrEmptyConversation is returned when a backend receives no messages.
	ErrEmptyConversation = errors.New("messages are required")
)

// InvalidRoleError reports a role name that does not map to a Role.
type InvalidRoleError struct {
	Role string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("unsupported role: %q", e.Role)
}

// MessageFormatError reports a malformed role/content mapping.
type MessageFormatError struct {
	Index int
	Field string
	Err   error
}

func (e *MessageFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("message %d: field %q: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("message %d: missing field %q", e.Index, e.Field)
}

func (e *MessageFormatError) Unwrap() error {
	return e.Err
}

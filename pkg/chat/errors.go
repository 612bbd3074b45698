package chat

import "fmt"

// UnsupportedInputError is returned by Normalize for input of a type it
// cannot turn into a conversation.
type UnsupportedInputError struct {
	Type string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported chat input %s: want string, []map[string]any, []ai.Message or *ai.MessageSet", e.Type)
}

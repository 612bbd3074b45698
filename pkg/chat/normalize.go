package chat

import (
	"fmt"

	"chatkit/pkg/ai"
)

// Normalize converts the accepted input shapes into a conversation:
//
//   - string: a single user message
//   - []map[string]any, []map[string]string: role/content entries in order
//   - []ai.Message: the messages in order
//   - *ai.MessageSet, ai.MessageSet: used as is
//
// Any other type yields an *UnsupportedInputError.
func Normalize(input any) (*ai.MessageSet, error) {
	switch v := input.(type) {
	case string:
		return ai.MessageSetFromString(v), nil
	case []map[string]any:
		return ai.MessageSetFromListDict(v)
	case []map[string]string:
		entries := make([]map[string]any, len(v))
		for i, m := range v {
			if m == nil {
				continue
			}
			entry := make(map[string]any, len(m))
			for k, val := range m {
				entry[k] = val
			}
			entries[i] = entry
		}
		return ai.MessageSetFromListDict(entries)
	case []ai.Message:
		return ai.NewMessageSet(v...), nil
	case *ai.MessageSet:
		if v == nil {
			return nil, ai.ErrEmptyConversation
		}
		return v, nil
	case ai.MessageSet:
		return &v, nil
	default:
		return nil, &UnsupportedInputError{Type: fmt.Sprintf("%T", input)}
	}
}

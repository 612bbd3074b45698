package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageSet is an ordered conversation. Messages are only ever appended;
// insertion order is conversation order.
type MessageSet struct {
	messages []Message
}

// NewMessageSet creates a conversation from the given messages.
func NewMessageSet(msgs ...Message) *MessageSet {
	ms := &MessageSet{messages: make([]Message, 0, len(msgs))}
	ms.messages = append(ms.messages, msgs...)
	return ms
}

// MessageSetFromString wraps a single prompt as a user message.
func MessageSetFromString(prompt string) *MessageSet {
	return NewMessageSet(UserMessage(prompt))
}

// MessageSetFromListDict converts role/content mappings, preserving order.
func MessageSetFromListDict(data []map[string]any) (*MessageSet, error) {
	ms := &MessageSet{messages: make([]Message, 0, len(data))}
	for i, entry := range data {
		msg, err := messageFromMap(i, entry)
		if err != nil {
			return nil, err
		}
		ms.messages = append(ms.messages, msg)
	}
	return ms, nil
}

func messageFromMap(index int, entry map[string]any) (Message, error) {
	if entry == nil {
		return Message{}, &MessageFormatError{Index: index, Field: "role"}
	}

	rawRole, ok := entry["role"]
	if !ok {
		return Message{}, &MessageFormatError{Index: index, Field: "role"}
	}
	roleName, ok := rawRole.(string)
	if !ok {
		return Message{}, &MessageFormatError{Index: index, Field: "role", Err: fmt.Errorf("expected string, got %T", rawRole)}
	}
	role, err := ParseRole(roleName)
	if err != nil {
		return Message{}, &MessageFormatError{Index: index, Field: "role", Err: err}
	}

	rawContent, ok := entry["content"]
	if !ok {
		return Message{}, &MessageFormatError{Index: index, Field: "content"}
	}
	content, ok := rawContent.(string)
	if !ok {
		return Message{}, &MessageFormatError{Index: index, Field: "content", Err: fmt.Errorf("expected string, got %T", rawContent)}
	}

	return Message{Role: role, Content: content}, nil
}

// Add appends messages to the end of the conversation.
func (ms *MessageSet) Add(msgs ...Message) {
	ms.messages = append(ms.messages, msgs...)
}

func (ms *MessageSet) AddUserMessage(content string) {
	ms.Add(UserMessage(content))
}

func (ms *MessageSet) AddAssistantMessage(content string) {
	ms.Add(AssistantMessage(content))
}

func (ms *MessageSet) AddSystemMessage(content string) {
	ms.Add(SystemMessage(content))
}

// Messages returns a copy of the conversation.
func (ms *MessageSet) Messages() []Message {
	if ms == nil {
		return nil
	}
	out := make([]Message, len(ms.messages))
	copy(out, ms.messages)
	return out
}

// Len returns the number of messages.
func (ms *MessageSet) Len() int {
	if ms == nil {
		return 0
	}
	return len(ms.messages)
}

// Last returns the final message, or false for an empty conversation.
func (ms *MessageSet) Last() (Message, bool) {
	if ms.Len() == 0 {
		return Message{}, false
	}
	return ms.messages[len(ms.messages)-1], true
}

// HasRole reports whether any message was authored by role.
func (ms *MessageSet) HasRole(role Role) bool {
	for _, msg := range ms.Messages() {
		if msg.Role == role {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (ms *MessageSet) Clone() *MessageSet {
	return NewMessageSet(ms.Messages()...)
}

// WithInstruction returns a clone whose last message carries text on a new
// line. The receiver is not modified. An empty set gains a user message.
func (ms *MessageSet) WithInstruction(text string) *MessageSet {
	out := ms.Clone()
	if len(out.messages) == 0 {
		out.messages = append(out.messages, UserMessage(text))
		return out
	}
	last := &out.messages[len(out.messages)-1]
	last.Content = last.Content + "\n" + text
	return out
}

// ListDict renders the conversation as role/content mappings.
func (ms *MessageSet) ListDict() []map[string]string {
	msgs := ms.Messages()
	out := make([]map[string]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, map[string]string{
			"role":    msg.Role.String(),
			"content": msg.Content,
		})
	}
	return out
}

// String renders one "role: content" line per message.
func (ms *MessageSet) String() string {
	msgs := ms.Messages()
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, msg.String())
	}
	return strings.Join(lines, "\n")
}

func (ms *MessageSet) MarshalJSON() ([]byte, error) {
	msgs := ms.Messages()
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(msgs)
}

func (ms *MessageSet) UnmarshalJSON(data []byte) error {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message set: %w", err)
	}
	parsed, err := MessageSetFromListDict(raw)
	if err != nil {
		return err
	}
	ms.messages = parsed.messages
	return nil
}

package ai

import "context"

// LLM is the backend contract: given a conversation, produce a reply.
type LLM interface {
	// Type returns the backend's type tag, e.g. "openai" or "echo".
	Type() string
	// Predict performs a single synchronous completion.
	Predict(ctx context.Context, messages *MessageSet) (Message, error)
}

// Prompter is implemented by backends with a native single-prompt entry point.
type Prompter interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// Call sends a single prompt. Backends without a Prompter implementation
// receive the prompt as a one-message conversation.
func Call(ctx context.Context, llm LLM, prompt string) (string, error) {
	if p, ok := llm.(Prompter); ok {
		return p.Call(ctx, prompt)
	}
	msg, err := llm.Predict(ctx, MessageSetFromString(prompt))
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// LLMFunc adapts a predict function into an LLM.
type LLMFunc struct {
	Name string
	Fn   func(ctx context.Context, messages *MessageSet) (Message, error)
}

func (f LLMFunc) Type() string {
	return f.Name
}

func (f LLMFunc) Predict(ctx context.Context, messages *MessageSet) (Message, error) {
	return f.Fn(ctx, messages)
}

// Ensure interface compliance
var _ LLM = LLMFunc{}

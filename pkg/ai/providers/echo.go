package providers

import (
	"context"

	"chatkit/pkg/ai"
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderEcho,
		Name:        "Echo",
		Description: "Offline backend that echoes the last message (dry runs)",
		RequiresKey: false,
	}, NewEchoProvider)
}

// EchoProvider is an offline backend that replies with the content of the
// last message it receives.
type EchoProvider struct{}

// NewEchoProvider creates an echo provider. It never fails.
func NewEchoProvider(ai.ProviderConfig) (ai.LLM, error) {
	return &EchoProvider{}, nil
}

func (p *EchoProvider) Type() string {
	return string(ai.ProviderEcho)
}

func (p *EchoProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	if err := ctx.Err(); err != nil {
		return ai.Message{}, err
	}
	last, ok := messages.Last()
	if !ok {
		return ai.Message{}, ai.ErrEmptyConversation
	}
	return ai.AssistantMessage(last.Content), nil
}

// Call returns the prompt unchanged.
func (p *EchoProvider) Call(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return prompt, nil
}

// Ensure interface compliance
var (
	_ ai.LLM      = (*EchoProvider)(nil)
	_ ai.Prompter = (*EchoProvider)(nil)
)

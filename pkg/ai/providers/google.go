package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatkit/pkg/ai"

	"google.golang.org/genai"
)

const (
	googleDefaultModel   = "gemini-2.5-flash"
	googleDefaultTimeout = 60
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderGoogle,
		Name:        "Google",
		Description: "Google AI (Gemini) API",
		RequiresKey: true,
	}, NewGoogleProvider)
}

type googleModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (googleModelsClient, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GoogleProvider implements ai.LLM using the native Google AI SDK.
type GoogleProvider struct {
	models      googleModelsClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewGoogleProvider creates a new Google provider from config.
func NewGoogleProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	providerCfg := cfg.Config.Providers.Google

	apiKey := strings.TrimSpace(providerCfg.APIKey)
	if apiKey == "" {
		slog.Debug("google_provider_missing_key")
		return nil, fmt.Errorf("google api_key is required (set GEMINI_API_KEY or providers.google.api_key)")
	}

	model := pickModel(cfg.Model, providerCfg.Model, googleDefaultModel)
	timeout := timeoutOrDefault(providerCfg.APITimeoutSeconds, googleDefaultTimeout)

	models, err := newGoogleClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	slog.Debug("google_provider_ready",
		"model", model,
		"timeout", timeout,
	)
	return &GoogleProvider{
		models:      models,
		model:       model,
		temperature: providerCfg.Temperature,
		maxTokens:   providerCfg.MaxTokens,
		timeout:     timeout,
	}, nil
}

func (p *GoogleProvider) Type() string {
	return string(ai.ProviderGoogle)
}

// Predict sends a non-streaming generate-content request.
func (p *GoogleProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	contents, cfg, err := p.buildRequest(messages)
	if err != nil {
		return ai.Message{}, err
	}

	callCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	resp, err := p.models.GenerateContent(callCtx, p.model, contents, cfg)
	if err != nil {
		return ai.Message{}, err
	}

	return ai.AssistantMessage(extractVisibleText(resp)), nil
}

func (p *GoogleProvider) buildRequest(set *ai.MessageSet) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if set.Len() == 0 {
		return nil, nil, ai.ErrEmptyConversation
	}

	contents := make([]*genai.Content, 0, set.Len())
	systemParts := make([]string, 0, 1)

	for _, msg := range set.Messages() {
		switch msg.Role {
		case ai.RoleSystem:
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemParts = append(systemParts, content)
			}
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("at least one user or assistant message is required")
	}

	config := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	if p.temperature > 0 {
		config.Temperature = genai.Ptr(float32(p.temperature))
	}
	if p.maxTokens > 0 {
		config.MaxOutputTokens = int32(p.maxTokens)
	}

	return contents, config, nil
}

func (p *GoogleProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Ensure interface compliance
var _ ai.LLM = (*GoogleProvider)(nil)

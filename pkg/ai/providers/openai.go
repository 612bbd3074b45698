package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatkit/pkg/ai"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openAIDefaultAPIURL  = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
	openAIDefaultTimeout = 30
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderOpenAI,
		Name:        "OpenAI",
		Description: "OpenAI Chat Completions API",
		RequiresKey: true,
	}, NewOpenAIProvider)
}

// OpenAIProvider implements ai.LLM using the OpenAI API directly.
type OpenAIProvider struct {
	chat *openAICompatChat
}

// NewOpenAIProvider creates a new OpenAI provider from config.
func NewOpenAIProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	timeout := timeoutOrDefault(cfg.Config.Providers.OpenAI.APITimeoutSeconds, openAIDefaultTimeout)
	return newOpenAIProviderWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

func newOpenAIProviderWithHTTPClient(cfg ai.ProviderConfig, httpClient *http.Client) (*OpenAIProvider, error) {
	providerCfg := cfg.Config.Providers.OpenAI

	apiKey := strings.TrimSpace(providerCfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api_key is required (set OPENAI_API_KEY or providers.openai.api_key)")
	}

	apiURL := providerCfg.APIURL
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openAIDefaultAPIURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(apiURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}

	return &OpenAIProvider{
		chat: &openAICompatChat{
			client:      openai.NewClient(opts...),
			model:       pickModel(cfg.Model, providerCfg.Model, openAIDefaultModel),
			temperature: providerCfg.Temperature,
			maxTokens:   providerCfg.MaxTokens,
		},
	}, nil
}

func (p *OpenAIProvider) Type() string {
	return string(ai.ProviderOpenAI)
}

// Predict sends a non-streaming chat completion request.
func (p *OpenAIProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	return p.chat.complete(ctx, messages)
}

// openAICompatChat is shared by every backend that speaks the OpenAI Chat
// Completions wire format.
type openAICompatChat struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func (c *openAICompatChat) complete(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	params, err := c.buildChatParams(messages)
	if err != nil {
		return ai.Message{}, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.Message{}, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	slog.Debug("openai_compat_response", "model", resp.Model, "choices", len(resp.Choices))
	return ai.AssistantMessage(content), nil
}

func (c *openAICompatChat) buildChatParams(set *ai.MessageSet) (openai.ChatCompletionNewParams, error) {
	if strings.TrimSpace(c.model) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("model is required")
	}
	if set.Len() == 0 {
		return openai.ChatCompletionNewParams{}, ai.ErrEmptyConversation
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, set.Len())
	for _, msg := range set.Messages() {
		param, err := toChatMessageParam(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, param)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	return params, nil
}

func toChatMessageParam(msg ai.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case ai.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case ai.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case ai.RoleAssistant:
		return openai.AssistantMessage(msg.Content), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, &ai.InvalidRoleError{Role: string(msg.Role)}
	}
}

// pickModel returns the first non-empty model name.
func pickModel(candidates ...string) string {
	for _, c := range candidates {
		if m := strings.TrimSpace(c); m != "" {
			return m
		}
	}
	return ""
}

func timeoutOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

// Ensure interface compliance
var _ ai.LLM = (*OpenAIProvider)(nil)

package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"chatkit/pkg/ai"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openRouterDefaultAPIURL  = "https://openrouter.ai/api/v1"
	openRouterDefaultTimeout = 30
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderOpenRouter,
		Name:        "OpenRouter",
		Description: "Access hundreds of models through the OpenRouter API",
		RequiresKey: true,
	}, NewOpenRouterProvider)
}

// OpenRouterProvider implements ai.LLM using the OpenRouter API.
type OpenRouterProvider struct {
	chat *openAICompatChat
}

// NewOpenRouterProvider creates a new OpenRouter provider from config.
func NewOpenRouterProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	timeout := timeoutOrDefault(cfg.Config.Providers.OpenRouter.APITimeoutSeconds, openRouterDefaultTimeout)
	return newOpenRouterProviderWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

func newOpenRouterProviderWithHTTPClient(cfg ai.ProviderConfig, httpClient *http.Client) (*OpenRouterProvider, error) {
	orCfg := cfg.Config.Providers.OpenRouter

	if strings.TrimSpace(orCfg.APIKey) == "" {
		slog.Debug("openrouter_provider_missing_key")
		return nil, fmt.Errorf("openrouter api_key is required")
	}

	model := pickModel(cfg.Model, orCfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openrouter model is required")
	}

	apiURL := orCfg.APIURL
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openRouterDefaultAPIURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(orCfg.APIKey),
		option.WithBaseURL(apiURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(orCfg.HTTPReferer) != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", orCfg.HTTPReferer))
	}
	if strings.TrimSpace(orCfg.XTitle) != "" {
		opts = append(opts, option.WithHeader("X-Title", orCfg.XTitle))
	}

	return &OpenRouterProvider{
		chat: &openAICompatChat{
			client:      openai.NewClient(opts...),
			model:       model,
			temperature: orCfg.Temperature,
			maxTokens:   orCfg.MaxTokens,
		},
	}, nil
}

func (p *OpenRouterProvider) Type() string {
	return string(ai.ProviderOpenRouter)
}

// Predict sends a non-streaming chat completion request.
func (p *OpenRouterProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	return p.chat.complete(ctx, messages)
}

// Ensure interface compliance
var _ ai.LLM = (*OpenRouterProvider)(nil)

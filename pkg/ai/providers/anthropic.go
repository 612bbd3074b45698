package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chatkit/pkg/ai"
)

const (
	anthropicDefaultAPIURL    = "https://api.anthropic.com/v1"
	anthropicDefaultModel     = "claude-3-5-sonnet-20241022"
	anthropicDefaultTimeout   = 60
	anthropicDefaultMaxTokens = 4096
	anthropicAPIVersion       = "2023-06-01"
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderAnthropic,
		Name:        "Anthropic",
		Description: "Anthropic Claude Messages API",
		RequiresKey: true,
	}, NewAnthropicProvider)
}

// AnthropicProvider implements ai.LLM using the Anthropic API.
type AnthropicProvider struct {
	apiKey      string
	apiURL      string
	httpClient  *http.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicProvider creates a new Anthropic provider from config.
func NewAnthropicProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	timeout := timeoutOrDefault(cfg.Config.Providers.Anthropic.APITimeoutSeconds, anthropicDefaultTimeout)
	return newAnthropicProviderWithHTTPClient(cfg, &http.Client{Timeout: timeout})
}

func newAnthropicProviderWithHTTPClient(cfg ai.ProviderConfig, httpClient *http.Client) (*AnthropicProvider, error) {
	providerCfg := cfg.Config.Providers.Anthropic

	apiKey := strings.TrimSpace(providerCfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api_key is required (set ANTHROPIC_API_KEY or providers.anthropic.api_key)")
	}

	apiURL := strings.TrimRight(providerCfg.APIURL, "/")
	if apiURL == "" {
		apiURL = anthropicDefaultAPIURL
	}

	maxTokens := providerCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	return &AnthropicProvider{
		apiKey:      apiKey,
		apiURL:      apiURL,
		httpClient:  httpClient,
		model:       pickModel(cfg.Model, providerCfg.Model, anthropicDefaultModel),
		temperature: providerCfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// anthropicRequest is the request body for Anthropic's messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response from Anthropic's messages API.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

func (p *AnthropicProvider) Type() string {
	return string(ai.ProviderAnthropic)
}

// Predict sends a non-streaming messages request.
func (p *AnthropicProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	anthropicReq, err := p.buildRequest(messages)
	if err != nil {
		return ai.Message{}, err
	}

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return ai.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return ai.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ai.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ai.Message{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return ai.Message{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return ai.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}

	var content strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return ai.AssistantMessage(content.String()), nil
}

func (p *AnthropicProvider) buildRequest(set *ai.MessageSet) (*anthropicRequest, error) {
	if set.Len() == 0 {
		return nil, ai.ErrEmptyConversation
	}

	systemParts := make([]string, 0, 1)
	messages := make([]anthropicMessage, 0, set.Len())

	for _, msg := range set.Messages() {
		if msg.Role == ai.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		messages = append(messages, anthropicMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("at least one user or assistant message is required")
	}

	return &anthropicRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		System:      strings.Join(systemParts, "\n\n"),
	}, nil
}

func (p *AnthropicProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

// Ensure interface compliance
var _ ai.LLM = (*AnthropicProvider)(nil)

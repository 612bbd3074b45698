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
	ollamaDefaultAPIURL  = "http://localhost:11434"
	ollamaDefaultModel   = "llama3.2"
	ollamaDefaultTimeout = 300
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderOllama,
		Name:        "Ollama",
		Description: "Local models served by Ollama",
		RequiresKey: false,
	}, NewOllamaProvider)
}

// OllamaProvider implements ai.LLM against an Ollama /api/chat endpoint.
type OllamaProvider struct {
	apiURL      string
	httpClient  *http.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllamaProvider creates a new Ollama provider from config.
func NewOllamaProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	// Local models can be slow to load on first use.
	timeout := timeoutOrDefault(cfg.Config.Providers.Ollama.APITimeoutSeconds, ollamaDefaultTimeout)
	return newOllamaProviderWithHTTPClient(cfg, &http.Client{Timeout: timeout}), nil
}

func newOllamaProviderWithHTTPClient(cfg ai.ProviderConfig, httpClient *http.Client) *OllamaProvider {
	providerCfg := cfg.Config.Providers.Ollama

	apiURL := strings.TrimRight(providerCfg.APIURL, "/")
	if apiURL == "" {
		apiURL = ollamaDefaultAPIURL
	}

	return &OllamaProvider{
		apiURL:      apiURL,
		httpClient:  httpClient,
		model:       pickModel(cfg.Model, providerCfg.Model, ollamaDefaultModel),
		temperature: providerCfg.Temperature,
		maxTokens:   providerCfg.MaxTokens,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// ollamaChatRequest is the Ollama chat request body.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

// ollamaChatResponse is the non-streaming Ollama chat response.
type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

func (p *OllamaProvider) Type() string {
	return string(ai.ProviderOllama)
}

// Predict sends a non-streaming chat request.
func (p *OllamaProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	if messages.Len() == 0 {
		return ai.Message{}, ai.ErrEmptyConversation
	}

	req := ollamaChatRequest{
		Model:    p.model,
		Messages: make([]ollamaMessage, 0, messages.Len()),
		Stream:   false,
	}
	for _, msg := range messages.Messages() {
		req.Messages = append(req.Messages, ollamaMessage{Role: msg.Role.String(), Content: msg.Content})
	}

	var opts ollamaOptions
	if p.temperature > 0 {
		t := p.temperature
		opts.Temperature = &t
	}
	if p.maxTokens > 0 {
		n := p.maxTokens
		opts.NumPredict = &n
	}
	if opts.Temperature != nil || opts.NumPredict != nil {
		req.Options = &opts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return ai.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return ai.Message{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return ai.Message{}, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ai.Message{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return ai.Message{}, fmt.Errorf("ollama returned %d: %s", httpResp.StatusCode, apiErr.Error)
		}
		return ai.Message{}, fmt.Errorf("ollama returned %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return ai.Message{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return ai.AssistantMessage(resp.Message.Content), nil
}

// Ensure interface compliance
var _ ai.LLM = (*OllamaProvider)(nil)

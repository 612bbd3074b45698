package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatkit/pkg/ai"
	"chatkit/pkg/config"

	"google.golang.org/genai"
)

type stubGoogleModelsClient struct {
	generateResp *genai.GenerateContentResponse
	generateErr  error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
	gotDeadline bool
}

func (s *stubGoogleModelsClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	_, s.gotDeadline = ctx.Deadline()
	return s.generateResp, s.generateErr
}

func googleTextResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  genai.RoleModel,
					Parts: parts,
				},
			},
		},
	}
}

func TestNewGoogleProvider_RequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Google.APIKey = ""

	_, err := NewGoogleProvider(ai.ProviderConfig{
		Type:   ai.ProviderGoogle,
		Config: cfg,
	})
	if err == nil {
		t.Fatal("Expected error when Google API key is missing")
	}
}

func TestNewGoogleProvider_DefaultFallbacks(t *testing.T) {
	origNewClient := newGoogleClient
	defer func() {
		newGoogleClient = origNewClient
	}()

	var gotClientCfg *genai.ClientConfig
	newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (googleModelsClient, error) {
		gotClientCfg = cfg
		return &stubGoogleModelsClient{}, nil
	}

	cfg := config.Default()
	cfg.Providers.Google.APIKey = "test-google-key"
	cfg.Providers.Google.Model = ""
	cfg.Providers.Google.Temperature = 0.55
	cfg.Providers.Google.MaxTokens = 2048
	cfg.Providers.Google.APITimeoutSeconds = 0

	provider, err := NewGoogleProvider(ai.ProviderConfig{
		Type:   ai.ProviderGoogle,
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("NewGoogleProvider() error: %v", err)
	}

	googleProvider, ok := provider.(*GoogleProvider)
	if !ok {
		t.Fatalf("Expected *GoogleProvider, got %T", provider)
	}
	if gotClientCfg == nil {
		t.Fatal("Expected Google client config to be captured")
	}
	if gotClientCfg.APIKey != "test-google-key" {
		t.Fatalf("Expected API key to be forwarded, got %q", gotClientCfg.APIKey)
	}
	if gotClientCfg.Backend != genai.BackendGeminiAPI {
		t.Fatalf("Expected BackendGeminiAPI, got %v", gotClientCfg.Backend)
	}
	if googleProvider.model != googleDefaultModel {
		t.Fatalf("Expected default model %q, got %q", googleDefaultModel, googleProvider.model)
	}
	if googleProvider.timeout != 60*time.Second {
		t.Fatalf("Expected default timeout 60s, got %s", googleProvider.timeout)
	}
	if googleProvider.temperature != 0.55 {
		t.Fatalf("Expected temperature 0.55, got %f", googleProvider.temperature)
	}
	if googleProvider.maxTokens != 2048 {
		t.Fatalf("Expected max tokens 2048, got %d", googleProvider.maxTokens)
	}
}

func TestNewGoogleProvider_ModelOverride(t *testing.T) {
	origNewClient := newGoogleClient
	defer func() {
		newGoogleClient = origNewClient
	}()
	newGoogleClient = func(ctx context.Context, cfg *genai.ClientConfig) (googleModelsClient, error) {
		return &stubGoogleModelsClient{}, nil
	}

	cfg := config.Default()
	cfg.Providers.Google.APIKey = "k"

	provider, err := NewGoogleProvider(ai.ProviderConfig{
		Type:   ai.ProviderGoogle,
		Model:  "gemini-2.5-pro",
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("NewGoogleProvider() error: %v", err)
	}
	if got := provider.(*GoogleProvider).model; got != "gemini-2.5-pro" {
		t.Fatalf("Expected model override, got %q", got)
	}
}

func TestGoogleProvider_Predict_MapsMessages(t *testing.T) {
	stub := &stubGoogleModelsClient{
		generateResp: googleTextResponse(&genai.Part{Text: "ok"}),
	}
	provider := &GoogleProvider{
		models:      stub,
		model:       "google-default",
		temperature: 0.2,
		maxTokens:   42,
		timeout:     time.Minute,
	}

	set := ai.NewMessageSet(
		ai.SystemMessage("system prompt"),
		ai.SystemMessage("second system prompt"),
		ai.UserMessage("user prompt"),
		ai.AssistantMessage("assistant prompt"),
		ai.UserMessage("follow up"),
	)

	msg, err := provider.Predict(context.Background(), set)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	if msg.Role != ai.RoleAssistant || msg.Content != "ok" {
		t.Fatalf("Expected assistant 'ok', got %+v", msg)
	}
	if stub.gotModel != "google-default" {
		t.Fatalf("Expected model 'google-default', got %q", stub.gotModel)
	}
	if len(stub.gotContents) != 3 {
		t.Fatalf("Expected 3 non-system messages, got %d", len(stub.gotContents))
	}
	if stub.gotContents[0].Role != genai.RoleUser {
		t.Fatalf("Expected first content role user, got %q", stub.gotContents[0].Role)
	}
	if stub.gotContents[1].Role != genai.RoleModel {
		t.Fatalf("Expected second content role model, got %q", stub.gotContents[1].Role)
	}
	if stub.gotConfig == nil || stub.gotConfig.SystemInstruction == nil {
		t.Fatal("Expected system instruction to be set")
	}
	if got := stub.gotConfig.SystemInstruction.Parts[0].Text; got != "system prompt\n\nsecond system prompt" {
		t.Fatalf("Expected merged system prompts, got %q", got)
	}
	if stub.gotConfig.Temperature == nil || *stub.gotConfig.Temperature != float32(0.2) {
		t.Fatalf("Expected temperature 0.2, got %v", stub.gotConfig.Temperature)
	}
	if stub.gotConfig.MaxOutputTokens != 42 {
		t.Fatalf("Expected max output tokens 42, got %d", stub.gotConfig.MaxOutputTokens)
	}
	if !stub.gotDeadline {
		t.Fatal("Expected request context to carry the provider timeout")
	}
}

func TestGoogleProvider_Predict_SkipsThoughtParts(t *testing.T) {
	stub := &stubGoogleModelsClient{
		generateResp: googleTextResponse(
			&genai.Part{Text: "thinking...", Thought: true},
			&genai.Part{Text: "visible "},
			nil,
			&genai.Part{Text: "answer"},
		),
	}
	provider := &GoogleProvider{models: stub, model: "m"}

	msg, err := provider.Predict(context.Background(), ai.MessageSetFromString("hi"))
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if msg.Content != "visible answer" {
		t.Fatalf("Expected thought parts to be skipped, got %q", msg.Content)
	}
}

func TestGoogleProvider_Predict_Errors(t *testing.T) {
	provider := &GoogleProvider{models: &stubGoogleModelsClient{}, model: "m"}

	if _, err := provider.Predict(context.Background(), ai.NewMessageSet()); !errors.Is(err, ai.ErrEmptyConversation) {
		t.Fatalf("Expected ErrEmptyConversation, got %v", err)
	}

	if _, err := provider.Predict(context.Background(), ai.NewMessageSet(ai.SystemMessage("only system"))); err == nil {
		t.Fatal("Expected error for system-only conversation")
	}

	apiErr := errors.New("quota exceeded")
	provider.models = &stubGoogleModelsClient{generateErr: apiErr}
	if _, err := provider.Predict(context.Background(), ai.MessageSetFromString("hi")); !errors.Is(err, apiErr) {
		t.Fatalf("Expected API error to propagate, got %v", err)
	}
}

func TestExtractVisibleText_EmptyResponse(t *testing.T) {
	if got := extractVisibleText(nil); got != "" {
		t.Fatalf("Expected empty text for nil response, got %q", got)
	}
	if got := extractVisibleText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("Expected empty text for no candidates, got %q", got)
	}
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"chatkit/pkg/ai"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	azureDefaultTimeout    = 60
	azureEndpointPattern   = `^https://[a-zA-Z0-9-]+\.openai\.azure\.com/?$`
	azureDeploymentPattern = `^[a-zA-Z0-9._-]+$`
)

var (
	azureEndpointRegex   = regexp.MustCompile(azureEndpointPattern)
	azureDeploymentRegex = regexp.MustCompile(azureDeploymentPattern)

	ErrNoCompletions = errors.New("no completions returned")
	ErrNoMessage     = errors.New("no message included in completion")
)

func init() {
	ai.RegisterProvider(ai.ProviderInfo{
		Type:        ai.ProviderAzure,
		Name:        "Azure OpenAI",
		Description: "Azure OpenAI deployments (API key or Azure credential chain)",
		RequiresKey: false,
	}, NewAzureProvider)
}

type azureChatClient interface {
	GetChatCompletions(ctx context.Context, body azopenai.ChatCompletionsOptions, options *azopenai.GetChatCompletionsOptions) (azopenai.GetChatCompletionsResponse, error)
}

// AzureProvider implements ai.LLM against an Azure OpenAI deployment.
type AzureProvider struct {
	client      azureChatClient
	deployment  string
	temperature float64
	maxTokens   int
}

// NewAzureProvider creates a new Azure OpenAI provider from config. The
// endpoint comes from providers.azure.api_url; with no api_key the default
// Azure credential chain is used.
func NewAzureProvider(cfg ai.ProviderConfig) (ai.LLM, error) {
	providerCfg := cfg.Config.Providers.Azure

	endpoint := strings.TrimSpace(providerCfg.APIURL)
	if endpoint == "" {
		return nil, fmt.Errorf("azure endpoint is required (set AZURE_OPENAI_ENDPOINT or providers.azure.api_url)")
	}
	if !azureEndpointRegex.MatchString(endpoint) {
		return nil, fmt.Errorf("invalid Azure OpenAI endpoint. must follow pattern: %s", azureEndpointPattern)
	}

	deployment := pickModel(cfg.Model, providerCfg.Deployment, providerCfg.Model)
	if deployment == "" {
		return nil, fmt.Errorf("azure deployment is required (set providers.azure.deployment or use azure/<deployment>)")
	}
	if !azureDeploymentRegex.MatchString(deployment) {
		return nil, fmt.Errorf("invalid Azure OpenAI deployment name. must follow pattern: %s", azureDeploymentPattern)
	}

	timeout := timeoutOrDefault(providerCfg.APITimeoutSeconds, azureDefaultTimeout)
	opts := &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Transport: &http.Client{Timeout: timeout},
		},
	}

	var (
		client *azopenai.Client
		err    error
	)
	if apiKey := strings.TrimSpace(providerCfg.APIKey); apiKey != "" {
		client, err = azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), opts)
	} else {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to get Azure credentials: %w", credErr)
		}
		client, err = azopenai.NewClient(endpoint, cred, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	slog.Debug("azure_provider_ready",
		"deployment", deployment,
		"key_auth", providerCfg.APIKey != "",
	)
	return &AzureProvider{
		client:      client,
		deployment:  deployment,
		temperature: providerCfg.Temperature,
		maxTokens:   providerCfg.MaxTokens,
	}, nil
}

func (p *AzureProvider) Type() string {
	return string(ai.ProviderAzure)
}

// Predict sends a non-streaming chat completions request to the deployment.
func (p *AzureProvider) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	opts, err := p.buildOptions(messages)
	if err != nil {
		return ai.Message{}, err
	}

	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return ai.Message{}, fmt.Errorf("failed to get completions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ai.Message{}, ErrNoCompletions
	}

	choice := resp.Choices[0]
	if choice.Message == nil || choice.Message.Content == nil {
		return ai.Message{}, ErrNoMessage
	}

	return ai.AssistantMessage(*choice.Message.Content), nil
}

func (p *AzureProvider) buildOptions(set *ai.MessageSet) (azopenai.ChatCompletionsOptions, error) {
	if set.Len() == 0 {
		return azopenai.ChatCompletionsOptions{}, ai.ErrEmptyConversation
	}

	messages := make([]azopenai.ChatRequestMessageClassification, 0, set.Len())
	for _, msg := range set.Messages() {
		switch msg.Role {
		case ai.RoleSystem:
			messages = append(messages, &azopenai.ChatRequestSystemMessage{Content: to.Ptr(msg.Content)})
		case ai.RoleUser:
			messages = append(messages, &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(msg.Content)})
		case ai.RoleAssistant:
			messages = append(messages, &azopenai.ChatRequestAssistantMessage{Content: to.Ptr(msg.Content)})
		default:
			return azopenai.ChatCompletionsOptions{}, &ai.InvalidRoleError{Role: string(msg.Role)}
		}
	}

	opts := azopenai.ChatCompletionsOptions{
		Messages:       messages,
		N:              to.Ptr(int32(1)),
		DeploymentName: to.Ptr(p.deployment),
	}
	if p.temperature > 0 {
		opts.Temperature = to.Ptr(float32(p.temperature))
	}
	if p.maxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(p.maxTokens))
	}
	return opts, nil
}

// Ensure interface compliance
var _ ai.LLM = (*AzureProvider)(nil)

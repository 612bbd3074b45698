package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"chatkit/pkg/config"
)

// ProviderType represents a supported LLM provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGoogle     ProviderType = "google"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOllama     ProviderType = "ollama"
	ProviderAzure      ProviderType = "azure"
	ProviderEcho       ProviderType = "echo"
)

// ProviderConfig holds configuration for creating a provider.
type ProviderConfig struct {
	Type ProviderType
	// Model overrides the provider's configured default model when set.
	Model  string
	Config config.Config
}

// ProviderFactory is a function that creates an LLM from config.
type ProviderFactory func(cfg ProviderConfig) (LLM, error)

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	Type        ProviderType
	Name        string
	Description string
	RequiresKey bool
}

// Registry manages provider factories and instantiation.
type Registry struct {
	mu        sync.RWMutex
	factories map[ProviderType]ProviderFactory
	info      map[ProviderType]ProviderInfo
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ProviderType]ProviderFactory),
		info:      make(map[ProviderType]ProviderInfo),
	}
}

// Register adds a provider factory to the registry.
func (r *Registry) Register(info ProviderInfo, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[info.Type] = factory
	r.info[info.Type] = info
}

// GetLLM creates an LLM instance by provider type.
func (r *Registry) GetLLM(cfg ProviderConfig) (LLM, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Type)
	}

	return factory(cfg)
}

// ListProviders returns information about all registered providers, sorted by type.
func (r *Registry) ListProviders() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]ProviderInfo, 0, len(r.info))
	for _, info := range r.info {
		providers = append(providers, info)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].Type < providers[j].Type
	})
	return providers
}

// GetProviderInfo returns information about a specific provider.
func (r *Registry) GetProviderInfo(providerType ProviderType) (ProviderInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.info[providerType]
	return info, ok
}

// IsRegistered checks if a provider type is registered.
func (r *Registry) IsRegistered(providerType ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[providerType]
	return ok
}

// GetLLMFromConfig resolves a "provider/model" name against cfg and creates
// the backend. An empty name falls back to cfg.DefaultModel, and a name
// without a provider prefix uses cfg.LLMProvider. Dry-run configs always
// resolve to the echo provider.
func (r *Registry) GetLLMFromConfig(cfg config.Config, modelName string) (LLM, error) {
	if strings.TrimSpace(modelName) == "" {
		modelName = cfg.DefaultModel
	}

	providerType, model := r.ParseModelName(modelName)
	if providerType == "" {
		pt, ok := r.lookupType(cfg.LLMProvider)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.LLMProvider)
		}
		providerType = pt
	}
	if cfg.DryRun {
		providerType = ProviderEcho
	}

	return r.GetLLM(ProviderConfig{
		Type:   providerType,
		Model:  model,
		Config: cfg,
	})
}

// DefaultRegistry is the global provider registry.
var DefaultRegistry = NewRegistry()

// RegisterProvider registers a provider with the default registry.
func RegisterProvider(info ProviderInfo, factory ProviderFactory) {
	DefaultRegistry.Register(info, factory)
}

// GetLLM creates an LLM from the default registry.
func GetLLM(cfg ProviderConfig) (LLM, error) {
	return DefaultRegistry.GetLLM(cfg)
}

// ListProviders returns all providers from the default registry.
func ListProviders() []ProviderInfo {
	return DefaultRegistry.ListProviders()
}

// GetLLMFromConfig resolves a model name through the default registry.
func GetLLMFromConfig(cfg config.Config, modelName string) (LLM, error) {
	return DefaultRegistry.GetLLMFromConfig(cfg, modelName)
}

// ParseModelName splits "provider/model" using the default registry.
func ParseModelName(name string) (ProviderType, string) {
	return DefaultRegistry.ParseModelName(name)
}

// ParseModelName splits "provider/model" into its parts. The provider is
// empty when the name carries no registered provider prefix, so
// "openrouter/google/gemma-3" yields ("openrouter", "google/gemma-3") and
// "gpt-4o" yields ("", "gpt-4o").
func (r *Registry) ParseModelName(name string) (ProviderType, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	if prefix, rest, found := strings.Cut(name, "/"); found {
		if pt, ok := r.lookupType(prefix); ok {
			return pt, strings.TrimSpace(rest)
		}
		return "", name
	}

	if pt, ok := r.lookupType(name); ok {
		return pt, ""
	}
	return "", name
}

func (r *Registry) lookupType(s string) (ProviderType, bool) {
	pt := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	if r.IsRegistered(pt) {
		return pt, true
	}
	return ValidateProviderType(string(pt))
}

// SupportedProviders returns a list of all supported provider types.
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderGoogle,
		ProviderAnthropic,
		ProviderOllama,
		ProviderAzure,
		ProviderEcho,
	}
}

// ValidateProviderType checks if a provider type string is valid.
func ValidateProviderType(s string) (ProviderType, bool) {
	pt := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, supported := range SupportedProviders() {
		if pt == supported {
			return pt, true
		}
	}
	return "", false
}

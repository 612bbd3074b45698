package chat

import (
	"strings"

	"chatkit/pkg/ai"
	"chatkit/pkg/config"
)

// Option configures a single chat call.
type Option func(*options)

type options struct {
	llm          ai.LLM
	model        string
	cfg          *config.Config
	registry     *ai.Registry
	systemPrompt string
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithLLM sends the call to llm. The model name, if any, is then only used
// as a label.
func WithLLM(llm ai.LLM) Option {
	return func(o *options) {
		o.llm = llm
	}
}

// WithModel selects a backend by "provider/model" name.
func WithModel(name string) Option {
	return func(o *options) {
		o.model = strings.TrimSpace(name)
	}
}

// WithConfig sets the configuration used to build backends. Without it the
// defaults plus environment overrides apply.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithRegistry resolves model names against r instead of ai.DefaultRegistry.
func WithRegistry(r *ai.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithSystemPrompt prepends a system message unless the conversation
// already has one.
func WithSystemPrompt(text string) Option {
	return func(o *options) {
		o.systemPrompt = text
	}
}

func (o *options) config() config.Config {
	if o.cfg != nil {
		return *o.cfg
	}
	return config.FromEnvironment()
}

// resolveLLM picks the backend and the label it is logged under.
func (o *options) resolveLLM() (ai.LLM, string, error) {
	if o.llm != nil {
		label := o.model
		if label == "" {
			label = o.llm.Type()
		}
		return o.llm, label, nil
	}

	cfg := o.config()
	name := o.model
	if name == "" {
		name = strings.TrimSpace(cfg.DefaultModel)
	}

	registry := o.registry
	if registry == nil {
		registry = ai.DefaultRegistry
	}

	llm, err := registry.GetLLMFromConfig(cfg, name)
	if err != nil {
		return nil, name, err
	}
	return llm, name, nil
}

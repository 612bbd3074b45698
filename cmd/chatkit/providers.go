package main

import (
	"fmt"
	"strings"

	"chatkit/pkg/ai"
	"chatkit/pkg/config"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
)

var (
	providerNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("141")).
				Bold(true)
	providerTypeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))
	providerDescStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Italic(true)
	providerOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
	providerWarnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203"))
)

func newProvidersCmd(root *rootCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the available model providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeStyled(cmd.OutOrStdout(), renderProviders(ai.ListProviders(), root.cfg))
			return nil
		},
	}
}

func renderProviders(infos []ai.ProviderInfo, cfg config.Config) string {
	defaultProvider, _ := ai.ParseModelName(cfg.DefaultModel)
	if defaultProvider == "" {
		defaultProvider, _ = ai.ValidateProviderType(cfg.LLMProvider)
	}

	var sb strings.Builder
	for i, info := range infos {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(providerNameStyle.Render(info.Name))
		sb.WriteString(" ")
		sb.WriteString(providerTypeStyle.Render(string(info.Type)))
		if info.Type == defaultProvider {
			sb.WriteString(" (default)")
		}
		sb.WriteString("\n  ")
		sb.WriteString(providerDescStyle.Render(info.Description))
		sb.WriteString("\n  ")

		switch {
		case !info.RequiresKey:
			sb.WriteString(providerOKStyle.Render("no key required"))
		case hasAPIKey(cfg, info.Type):
			sb.WriteString(providerOKStyle.Render("key configured"))
		default:
			sb.WriteString(providerWarnStyle.Render("key missing"))
		}
	}
	return sb.String()
}

func hasAPIKey(cfg config.Config, pt ai.ProviderType) bool {
	var key string
	switch pt {
	case ai.ProviderOpenAI:
		key = cfg.Providers.OpenAI.APIKey
	case ai.ProviderOpenRouter:
		key = cfg.Providers.OpenRouter.APIKey
	case ai.ProviderGoogle:
		key = cfg.Providers.Google.APIKey
	case ai.ProviderAnthropic:
		key = cfg.Providers.Anthropic.APIKey
	case ai.ProviderAzure:
		key = cfg.Providers.Azure.APIKey
	default:
		return false
	}
	return strings.TrimSpace(key) != ""
}

// providerEndpoint returns the API URL and key configured for pt.
func providerEndpoint(cfg config.Config, pt ai.ProviderType) (string, string, error) {
	switch pt {
	case ai.ProviderOpenAI:
		return cfg.Providers.OpenAI.APIURL, cfg.Providers.OpenAI.APIKey, nil
	case ai.ProviderOpenRouter:
		return cfg.Providers.OpenRouter.APIURL, cfg.Providers.OpenRouter.APIKey, nil
	case ai.ProviderOllama:
		return cfg.Providers.Ollama.APIURL, "", nil
	default:
		return "", "", fmt.Errorf("model listing is not supported for provider %q", pt)
	}
}

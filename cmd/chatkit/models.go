package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"chatkit/pkg/ai"

	"github.com/spf13/cobra"
)

const modelsLongDesc string = `List the models a provider serves.

The list is cached under ~/.chatkit; pass --refresh to fetch it again.
Supported providers: openai, openrouter, ollama.

Examples:
  chatkit models ollama
  chatkit models openrouter --refresh`

type modelsCommander struct {
	root    *rootCommander
	refresh bool
}

func newModelsCmd(root *rootCommander) *cobra.Command {
	cmder := &modelsCommander{root: root}

	cmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List the models a provider serves",
		Long:  modelsLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	cmd.Flags().BoolVar(&cmder.refresh, "refresh", false, "Fetch the list instead of reading the cache")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, out io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := c.root.cfg

	var pt ai.ProviderType
	if len(args) == 1 {
		parsed, ok := ai.ValidateProviderType(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", ai.ErrUnknownProvider, args[0])
		}
		pt = parsed
	} else {
		pt, _ = ai.ParseModelName(cfg.DefaultModel)
		if pt == "" {
			pt = ai.ProviderType(cfg.LLMProvider)
		}
	}

	apiURL, apiKey, err := providerEndpoint(cfg, pt)
	if err != nil {
		return err
	}

	cachePath := ai.DefaultModelCachePath(pt)
	cache, err := ai.LoadModelCache(cachePath)
	if c.refresh || err != nil {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "Ignoring unreadable cache: %v\n", err)
		}
		cache, err = ai.RefreshModelCache(ctx, &http.Client{Timeout: 15 * time.Second}, ai.CatalogRequest{
			Provider: pt,
			APIURL:   apiURL,
			APIKey:   apiKey,
		}, cachePath)
		if err != nil {
			return err
		}
	}

	for _, m := range cache.Models {
		fmt.Fprintf(out, "%s/%s\n", pt, m.ID)
	}
	fmt.Fprintf(out, "%d models (updated %s)\n", len(cache.Models), cache.UpdatedAt.Local().Format(time.DateTime))
	return nil
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"chatkit/pkg/config"
	"chatkit/pkg/logging"
	"chatkit/pkg/version"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const rootLongDesc string = `chatkit sends conversations to language-model backends.

Backends are selected by "provider/model" names such as openai/gpt-4o-mini,
google/gemini-2.5-flash or ollama/llama3.2. Settings live in
~/.chatkit/config.json and can be overridden from the environment or a .env
file.`

type rootCommander struct {
	configPath string
	envFile    string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	root := &rootCommander{}

	cmd := &cobra.Command{
		Use:           "chatkit",
		Short:         "Chat with language models from the command line",
		Long:          rootLongDesc,
		Version:       version.Get().Summary(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&root.configPath, "config", "", "Path to config file (default ~/.chatkit/config.json)")
	cmd.PersistentFlags().StringVar(&root.envFile, "env-file", ".env", "Environment file loaded before the config")

	cmd.AddCommand(
		newChatCmd(root),
		newProvidersCmd(root),
		newModelsCmd(root),
		newVersionCmd(),
	)

	return cmd
}

// setup loads the environment file, the config and the logger, in that order.
func (r *rootCommander) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(r.envFile); err != nil {
		return err
	}

	path := strings.TrimSpace(r.configPath)
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	r.cfg = cfg

	if _, err := logging.Init(cfg); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging disabled: %v\n", err)
	}

	slog.Debug("chatkit_start",
		"command", cmd.Name(),
		"version", version.Get().Summary(),
		"config", path,
		"default_model", cfg.DefaultModel,
		"dry_run", cfg.DryRun,
	)
	return nil
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// writeStyled prints s, dropping escape sequences when w is not a terminal.
func writeStyled(w io.Writer, s string) {
	if !isTerminal(w) {
		s = ansi.Strip(s)
	}
	fmt.Fprintln(w, s)
}

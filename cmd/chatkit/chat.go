package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chatkit/pkg/chat"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
)

const chatLongDesc string = `Send a prompt or a conversation to a model and print the reply.

The input is taken from the prompt arguments, else from --messages (a JSON
list of {"role": ..., "content": ...} objects), else from piped stdin.

Examples:
  chatkit chat "What is the capital of France?"
  chatkit chat --model ollama/llama3.2 --system "Answer in French" hello
  chatkit chat --messages conversation.json --raw
  git diff | chatkit chat --system "Write a commit message"
  chatkit chat --json "List three primary colors as {\"colors\": [...]}"`

const chatShortDesc string = "Send a prompt to a model"

var errNoInput = errors.New("no input: pass a prompt, use --messages, or pipe text on stdin")

type chatCommander struct {
	root *rootCommander

	model        string
	system       string
	messagesFile string
	raw          bool
	asJSON       bool
	copy         bool
}

func newChatCmd(root *rootCommander) *cobra.Command {
	cmder := &chatCommander{root: root}

	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model as provider/name (default from config)")
	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt, used when the conversation has none")
	cmd.Flags().StringVar(&cmder.messagesFile, "messages", "", "JSON file with a list of role/content messages")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the reply message as JSON")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Ask for a JSON object and print it")
	cmd.Flags().BoolVar(&cmder.copy, "copy", false, "Copy the reply to the clipboard (OSC52)")
	cmd.MarkFlagsMutuallyExclusive("raw", "json")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	input, err := c.readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	opts := []chat.Option{chat.WithConfig(c.root.cfg)}
	if c.model != "" {
		opts = append(opts, chat.WithModel(c.model))
	}
	if c.system != "" {
		opts = append(opts, chat.WithSystemPrompt(c.system))
	}

	var answer string
	switch {
	case c.asJSON:
		obj, err := chat.ChatAs[map[string]any](ctx, input, nil, opts...)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
		answer = string(data)
	case c.raw:
		msg, err := chat.ChatMessage(ctx, input, opts...)
		if err != nil {
			return err
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
		answer = string(data)
	default:
		answer, err = chat.Chat(ctx, input, opts...)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer)

	if c.copy {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), osc52.New(answer))
	}
	return nil
}

// readInput returns a prompt string or a list of role/content entries.
func (c *chatCommander) readInput(stdin io.Reader, args []string) (any, error) {
	if prompt := strings.TrimSpace(strings.Join(args, " ")); prompt != "" {
		return prompt, nil
	}

	if c.messagesFile != "" {
		data, err := os.ReadFile(c.messagesFile)
		if err != nil {
			return nil, fmt.Errorf("read messages: %w", err)
		}
		var entries []map[string]any
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse messages %s: %w", c.messagesFile, err)
		}
		return entries, nil
	}

	if stdin == nil || isTerminal(stdin) {
		return nil, errNoInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(ansi.Strip(string(data)))
	if text == "" {
		return nil, errNoInput
	}
	return text, nil
}

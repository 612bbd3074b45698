// Package chat sends conversations to a language-model backend and
// optionally decodes the reply into a Go value.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatkit/pkg/ai"
	_ "chatkit/pkg/ai/providers"
	"chatkit/pkg/schema"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

const previewWidth = 80

// Result is the outcome of a single backend call.
type Result struct {
	ID           string
	Model        string
	Conversation *ai.MessageSet
	Response     ai.Message
}

// Chat sends input to the selected backend and returns the reply text.
func Chat(ctx context.Context, input any, opts ...Option) (string, error) {
	res, err := Run(ctx, input, opts...)
	if err != nil {
		return "", err
	}
	return res.Response.Content, nil
}

// ChatMessage is like Chat but returns the reply message itself.
func ChatMessage(ctx context.Context, input any, opts ...Option) (ai.Message, error) {
	res, err := Run(ctx, input, opts...)
	if err != nil {
		return ai.Message{}, err
	}
	return res.Response, nil
}

// ChatAs asks for a reply shaped like T. Format instructions derived from T,
// plus any examples, are appended to the last message before the call and
// the reply is parsed into T. The caller's conversation is not modified.
func ChatAs[T any](ctx context.Context, input any, examples []T, opts ...Option) (T, error) {
	var zero T

	messages, err := Normalize(input)
	if err != nil {
		return zero, err
	}

	formatter, err := schema.NewFormatter(examples...)
	if err != nil {
		return zero, err
	}
	instructions, err := formatter.Instructions()
	if err != nil {
		return zero, err
	}

	res, err := run(ctx, messages.WithInstruction(instructions), newOptions(opts))
	if err != nil {
		return zero, err
	}

	out, err := formatter.Parse(res.Response.Content)
	if err != nil {
		slog.Warn("chat_parse_error",
			"call_id", res.ID,
			"model", res.Model,
			"response", preview(res.Response.Content),
			"error", err,
		)
		return zero, err
	}
	return out, nil
}

// Run normalizes input, calls the backend once and returns the full result.
func Run(ctx context.Context, input any, opts ...Option) (*Result, error) {
	messages, err := Normalize(input)
	if err != nil {
		return nil, err
	}
	return run(ctx, messages, newOptions(opts))
}

func run(ctx context.Context, messages *ai.MessageSet, o *options) (*Result, error) {
	if o.systemPrompt != "" && !messages.HasRole(ai.RoleSystem) {
		messages = ai.NewMessageSet(append([]ai.Message{ai.SystemMessage(o.systemPrompt)}, messages.Messages()...)...)
	}

	llm, label, err := o.resolveLLM()
	if err != nil {
		return nil, fmt.Errorf("resolve model %q: %w", label, err)
	}

	id := uuid.NewString()
	logger := slog.With("call_id", id, "model", label, "llm_type", llm.Type())

	last, _ := messages.Last()
	logger.Debug("chat_start",
		"messages", messages.Len(),
		"last_role", last.Role,
		"last", preview(last.Content),
	)

	start := time.Now()
	resp, err := llm.Predict(ctx, messages)
	duration := time.Since(start)
	if err != nil {
		logger.Error("chat_error", "error", err, "duration_ms", duration.Milliseconds())
		return nil, err
	}

	logger.Debug("chat_done",
		"duration_ms", duration.Milliseconds(),
		"response_len", len(resp.Content),
		"response", preview(resp.Content),
	)

	return &Result{
		ID:           id,
		Model:        label,
		Conversation: messages,
		Response:     resp,
	}, nil
}

// preview flattens s to one line no wider than previewWidth cells.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, previewWidth, "…")
}

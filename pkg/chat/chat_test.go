package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"chatkit/pkg/ai"
	"chatkit/pkg/config"
	"chatkit/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM answers with a weather object when asked for a formatted reply.
type fakeLLM struct {
	calls []*ai.MessageSet
}

func (f *fakeLLM) Type() string { return "fake" }

func (f *fakeLLM) Predict(ctx context.Context, messages *ai.MessageSet) (ai.Message, error) {
	f.calls = append(f.calls, messages)

	content := "fake response"
	if last, ok := messages.Last(); ok && strings.Contains(last.Content, "Output format") {
		content = `{"city": "Shanghai", "temperature": 25}`
	}
	return ai.AssistantMessage(content), nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string) (string, error) {
	return "fake response", nil
}

type weatherResponse struct {
	City        string  `json:"city" jsonschema:"city name"`
	Temperature float64 `json:"temperature" jsonschema:"temperature"`
}

func TestChat_InputShapes(t *testing.T) {
	llm := &fakeLLM{}

	inputs := []any{
		"hello",
		ai.NewMessageSet(ai.UserMessage("hello"), ai.AssistantMessage("fake")),
		[]map[string]any{{"content": "Hello, how are you?", "role": "user"}},
		[]map[string]string{{"content": "Hello, how are you?", "role": "user"}},
		[]ai.Message{ai.UserMessage("hello")},
	}

	for _, input := range inputs {
		answer, err := Chat(context.Background(), input, WithModel("fake"), WithLLM(llm))
		require.NoError(t, err)
		assert.Equal(t, "fake response", answer)
	}
	assert.Len(t, llm.calls, len(inputs))
}

func TestChat_EquivalentInputsNormalizeAlike(t *testing.T) {
	llm := &fakeLLM{}

	inputs := []any{
		"hello",
		[]map[string]any{{"role": "user", "content": "hello"}},
		ai.NewMessageSet(ai.UserMessage("hello")),
	}
	for _, input := range inputs {
		_, err := Chat(context.Background(), input, WithLLM(llm))
		require.NoError(t, err)
	}

	require.Len(t, llm.calls, 3)
	for _, got := range llm.calls {
		assert.Equal(t, []ai.Message{ai.UserMessage("hello")}, got.Messages())
	}
}

func TestChatMessage_ReturnsRawMessage(t *testing.T) {
	msg, err := ChatMessage(context.Background(), "hello", WithModel("fake"), WithLLM(&fakeLLM{}))
	require.NoError(t, err)
	assert.Equal(t, ai.AssistantMessage("fake response"), msg)
}

func TestChatAs_ParsesResponse(t *testing.T) {
	llm := &fakeLLM{}

	answer, err := ChatAs[weatherResponse](context.Background(), "what's weather tomorrow in shanghai?", nil, WithModel("fake"), WithLLM(llm))
	require.NoError(t, err)
	assert.Equal(t, "Shanghai", answer.City)
	assert.Equal(t, 25.0, answer.Temperature)

	require.Len(t, llm.calls, 1)
	last, _ := llm.calls[0].Last()
	assert.True(t, strings.HasPrefix(last.Content, "what's weather tomorrow in shanghai?\n## Output format"))
	assert.NotContains(t, last.Content, "## Examples")
}

func TestChatAs_WithExamples(t *testing.T) {
	llm := &fakeLLM{}
	examples := []weatherResponse{
		{City: "Shanghai", Temperature: 25},
		{City: "Beijing", Temperature: 30},
	}

	answer, err := ChatAs(context.Background(), "what's weather tomorrow in shanghai?", examples, WithModel("fake"), WithLLM(llm))
	require.NoError(t, err)
	assert.Equal(t, weatherResponse{City: "Shanghai", Temperature: 25}, answer)

	last, _ := llm.calls[0].Last()
	assert.Contains(t, last.Content, "## Examples")
	assert.Contains(t, last.Content, `{"city":"Beijing","temperature":30}`)
}

func TestChatAs_DoesNotModifyCallerConversation(t *testing.T) {
	conversation := ai.NewMessageSet(ai.UserMessage("weather?"))

	_, err := ChatAs[weatherResponse](context.Background(), conversation, nil, WithLLM(&fakeLLM{}))
	require.NoError(t, err)

	assert.Equal(t, []ai.Message{ai.UserMessage("weather?")}, conversation.Messages())
}

func TestChatAs_ParseFailure(t *testing.T) {
	llm := ai.LLMFunc{Name: "plain", Fn: func(context.Context, *ai.MessageSet) (ai.Message, error) {
		return ai.AssistantMessage("I don't do JSON"), nil
	}}

	_, err := ChatAs[weatherResponse](context.Background(), "weather?", nil, WithLLM(llm))
	var parseErr *schema.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "I don't do JSON", parseErr.Raw)
}

func TestChatAs_Map(t *testing.T) {
	llm := &fakeLLM{}

	got, err := ChatAs[map[string]any](context.Background(), "weather?", nil, WithLLM(llm))
	require.NoError(t, err)
	assert.Equal(t, "Shanghai", got["city"])
}

func TestRun_Result(t *testing.T) {
	llm := &fakeLLM{}

	res, err := Run(context.Background(), "hello", WithModel("fake/v1"), WithLLM(llm))
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "fake/v1", res.Model)
	assert.Equal(t, ai.AssistantMessage("fake response"), res.Response)
	assert.Equal(t, 1, res.Conversation.Len())

	res, err = Run(context.Background(), "hello", WithLLM(llm))
	require.NoError(t, err)
	assert.Equal(t, "fake", res.Model)
}

func TestRun_SystemPrompt(t *testing.T) {
	llm := &fakeLLM{}

	_, err := Run(context.Background(), "hello", WithLLM(llm), WithSystemPrompt("be terse"))
	require.NoError(t, err)
	assert.Equal(t, []ai.Message{ai.SystemMessage("be terse"), ai.UserMessage("hello")}, llm.calls[0].Messages())

	existing := ai.NewMessageSet(ai.SystemMessage("mine"), ai.UserMessage("hello"))
	_, err = Run(context.Background(), existing, WithLLM(llm), WithSystemPrompt("be terse"))
	require.NoError(t, err)
	assert.Equal(t, existing.Messages(), llm.calls[1].Messages())
}

func TestRun_ResolvesModelThroughRegistry(t *testing.T) {
	registry := ai.NewRegistry()
	var gotModel string
	registry.Register(ai.ProviderInfo{Type: "fake", Name: "Fake"}, func(cfg ai.ProviderConfig) (ai.LLM, error) {
		gotModel = cfg.Model
		return &fakeLLM{}, nil
	})

	cfg := config.Default()
	cfg.DefaultModel = "fake/default"

	res, err := Run(context.Background(), "hello", WithRegistry(registry), WithConfig(cfg), WithModel("fake/large"))
	require.NoError(t, err)
	assert.Equal(t, "large", gotModel)
	assert.Equal(t, "fake/large", res.Model)

	res, err = Run(context.Background(), "hello", WithRegistry(registry), WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, "default", gotModel)
	assert.Equal(t, "fake/default", res.Model)
}

func TestRun_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLMProvider = "nope"

	_, err := Run(context.Background(), "hello", WithRegistry(ai.NewRegistry()), WithConfig(cfg), WithModel("mystery"))
	assert.ErrorIs(t, err, ai.ErrUnknownProvider)
}

func TestRun_DryRunUsesEcho(t *testing.T) {
	cfg := config.Default()
	cfg.DryRun = true

	answer, err := Chat(context.Background(), "ping", WithConfig(cfg), WithModel("openai/gpt-4o"))
	require.NoError(t, err)
	assert.Equal(t, "ping", answer)
}

func TestRun_BackendErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	llm := ai.LLMFunc{Name: "broken", Fn: func(context.Context, *ai.MessageSet) (ai.Message, error) {
		return ai.Message{}, boom
	}}

	_, err := Chat(context.Background(), "hello", WithLLM(llm))
	assert.ErrorIs(t, err, boom)
}

func TestRun_InvalidInput(t *testing.T) {
	llm := &fakeLLM{}

	_, err := Chat(context.Background(), 42, WithLLM(llm))
	var inputErr *UnsupportedInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "int", inputErr.Type)

	_, err = Chat(context.Background(), []map[string]any{{"role": "wizard", "content": "x"}}, WithLLM(llm))
	var formatErr *ai.MessageFormatError
	require.ErrorAs(t, err, &formatErr)

	assert.Empty(t, llm.calls)
}

func TestRun_LogsCallLifecycle(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	res, err := Run(context.Background(), strings.Repeat("long prompt ", 20), WithLLM(&fakeLLM{}))
	require.NoError(t, err)

	var events []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		events = append(events, event)
	}

	require.Len(t, events, 2)
	assert.Equal(t, "chat_start", events[0]["msg"])
	assert.Equal(t, "chat_done", events[1]["msg"])
	for _, event := range events {
		assert.Equal(t, res.ID, event["call_id"])
	}
	last, _ := events[0]["last"].(string)
	assert.True(t, strings.HasSuffix(last, "…"), "expected truncated preview, got %q", last)
	assert.Equal(t, "DEBUG", events[1]["level"])
}

func TestRun_QuietAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	_, err := Chat(context.Background(), "hi", WithLLM(&fakeLLM{}))
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	broken := ai.LLMFunc{Name: "broken", Fn: func(context.Context, *ai.MessageSet) (ai.Message, error) {
		return ai.Message{}, errors.New("backend down")
	}}
	_, err = Chat(context.Background(), "hi", WithLLM(broken))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "msg=chat_error")
}

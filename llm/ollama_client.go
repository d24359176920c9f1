package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient talks to a local or remote Ollama server through its chat API.
type OllamaClient struct {
	client *api.Client
	model  string
	retry  RetryPolicy
}

// NewOllamaClient uses OLLAMA_HOST (default http://localhost:11434).
func NewOllamaClient(model string) (LLMClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return NewOllamaClientWith(client, model), nil
}

func NewOllamaClientWith(client *api.Client, model string) LLMClient {
	return &OllamaClient{client: client, model: model, retry: DefaultRetryPolicy()}
}

func (c *OllamaClient) Capabilities() Capability {
	return NativeToolCalling
}

func (c *OllamaClient) GetModel() string {
	return c.model
}

func (c *OllamaClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	settings.tools = nil

	return c.chat(ctx, settings, messages, callback, nil)
}

func (c *OllamaClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
	opts ...LLMOption,
) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	return c.chat(ctx, settings, messages, contentCallback, toolCallback)
}

func (c *OllamaClient) chat(
	ctx context.Context,
	settings LLMSettings,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
) error {
	system, rest := splitSystem(settings.system, messages)

	chatMessages := make([]api.Message, 0, len(rest)+1)
	if system != "" {
		chatMessages = append(chatMessages, api.Message{Role: "system", Content: system})
	}
	for _, m := range rest {
		switch {
		case m.IsToolResult:
			chatMessages = append(chatMessages, api.Message{Role: "tool", Content: m.Content})
		default:
			chatMessages = append(chatMessages, api.Message{Role: m.Role, Content: m.Content, ToolCalls: m.ToolCalls})
		}
	}

	stream := false
	request := &api.ChatRequest{
		Model:    settings.model,
		Messages: chatMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": settings.temperature,
			"num_predict": settings.maxTokens,
		},
	}

	// Ollama has no tool_choice; hiding the tools forces a text answer.
	if settings.toolChoice != ToolChoiceNone {
		request.Tools = settings.tools
	}

	var text strings.Builder
	var toolCalls []api.ToolCall

	err := c.retry.Do(ctx, func() error {
		text.Reset()
		toolCalls = nil

		err := c.client.Chat(ctx, request, func(resp api.ChatResponse) error {
			text.WriteString(resp.Message.Content)
			toolCalls = append(toolCalls, resp.Message.ToolCalls...)
			return nil
		})

		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return &StatusError{StatusCode: statusErr.StatusCode, Body: statusErr.ErrorMessage}
		}
		if err != nil {
			return &requestError{err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(toolCalls) > 0 && toolCallback != nil {
		return toolCallback(toolCalls)
	}

	if contentCallback != nil {
		return contentCallback(text.String())
	}
	return nil
}

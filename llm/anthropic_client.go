package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"
)

type AnthropicClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
	model      string
	retry      RetryPolicy
}

func NewAnthropicClient(apiKey, model string) LLMClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		url:        "https://api.anthropic.com/v1/messages",
		model:      model,
		retry:      DefaultRetryPolicy(),
	}
}

func (c *AnthropicClient) Capabilities() Capability {
	return NativeToolCalling
}

func (c *AnthropicClient) GetModel() string {
	return c.model
}

func (c *AnthropicClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	settings.tools = nil

	return c.send(ctx, settings, messages, callback, nil)
}

func (c *AnthropicClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
	opts ...LLMOption,
) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	return c.send(ctx, settings, messages, contentCallback, toolCallback)
}

func (c *AnthropicClient) send(
	ctx context.Context,
	settings LLMSettings,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
) error {
	system, rest := splitSystem(settings.system, messages)

	request := anthropicRequest{
		Model:       settings.model,
		MaxTokens:   settings.maxTokens,
		Temperature: settings.temperature,
		System:      system,
		Messages:    toAnthropicMessages(rest),
	}

	if len(settings.tools) > 0 {
		request.Tools = toAnthropicTools(settings.tools)
		request.ToolChoice = &anthropicToolChoice{Type: settings.toolChoice}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	body, err := postJSON(ctx, c.httpClient, c.retry, c.url, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, jsonData)
	if err != nil {
		return err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(response.Content) == 0 {
		return fmt.Errorf("no content in response")
	}

	var text strings.Builder
	var toolCalls []api.ToolCall
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      block.Name,
					Arguments: toolInput(block.Input),
				},
			})
		}
	}

	if len(toolCalls) > 0 && toolCallback != nil {
		return toolCallback(toolCalls)
	}

	if contentCallback != nil {
		return contentCallback(text.String())
	}
	return nil
}

// toAnthropicMessages converts the conversation into content blocks.
// Consecutive tool results are merged into a single user turn.
func toAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))

	for _, m := range messages {
		switch {
		case m.IsToolResult:
			block := content{Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropicMessage{Role: "user", Content: []content{block}})

		case len(m.ToolCalls) > 0:
			var blocks []content
			if m.Content != "" {
				blocks = append(blocks, content{Type: "text", Text: m.Content})
			}
			for i, call := range m.ToolCalls {
				input := map[string]any(call.Function.Arguments)
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, content{Type: "tool_use", ID: ToolCallID(i), Name: call.Function.Name, Input: input})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})

		default:
			out = append(out, anthropicMessage{Role: m.Role, Content: []content{{Type: "text", Text: m.Content}}})
		}
	}

	return out
}

func toAnthropicTools(tools []api.Tool) []anthropicTool {
	out := make([]anthropicTool, len(tools))
	for i, tool := range tools {
		out[i] = anthropicTool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: inputSchema(tool),
		}
	}
	return out
}

// inputSchema renders tool parameters as a JSON schema object.
func inputSchema(tool api.Tool) map[string]any {
	required := tool.Function.Parameters.Required
	if required == nil {
		required = []string{}
	}
	properties := map[string]any{}
	for name, prop := range tool.Function.Parameters.Properties {
		p := map[string]any{"description": prop.Description}
		if len(prop.Type) > 0 {
			p["type"] = prop.Type[0]
		}
		properties[name] = p
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func toolInput(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Messages    []anthropicMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	Temperature float64              `json:"temperature"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
}

// anthropicResponse represents the response from Anthropic API
type anthropicResponse struct {
	Content    []content `json:"content"`
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Role       string    `json:"role"`
	Type       string    `json:"type"`
	StopReason string    `json:"stop_reason"`
}

// content is a single content block of a request or response.
type content struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Input     any    `json:"input,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

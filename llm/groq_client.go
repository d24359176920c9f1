package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ollama/ollama/api"
)

type GroqClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
	model      string
	retry      RetryPolicy
}

func NewGroqClient(apiKey, model string) LLMClient {
	return &GroqClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		url:        "https://api.groq.com/openai/v1/chat/completions",
		model:      model,
		retry:      DefaultRetryPolicy(),
	}
}

func (c *GroqClient) Capabilities() Capability {
	// Models that support tool calling based on Groq documentation
	toolSupportedModels := []string{
		"llama-3.3-70b-versatile",
		"llama-3.1-8b-instant",
		"openai/gpt-oss-20b",
		"openai/gpt-oss-120b",
		"meta-llama/llama-4-scout-17b-16e-instruct",
		"meta-llama/llama-4-maverick-17b-128e-instruct",
		"moonshotai/kimi-k2-instruct",
	}

	for _, supportedModel := range toolSupportedModels {
		if strings.Contains(c.model, supportedModel) {
			return NativeToolCalling
		}
	}

	return 0
}

func (c *GroqClient) GetModel() string {
	return c.model
}

func (c *GroqClient) GenerateInference(ctx context.Context, messages []Message, callback func(chunk string) error, opts ...LLMOption) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	settings.tools = nil

	return c.makeRequest(ctx, c.buildRequest(settings, messages), callback, nil)
}

func (c *GroqClient) GenerateInferenceWithTools(
	ctx context.Context,
	messages []Message,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
	opts ...LLMOption,
) error {
	settings := applyOptions(defaultSettings(c.model), opts)
	return c.makeRequest(ctx, c.buildRequest(settings, messages), contentCallback, toolCallback)
}

func (c *GroqClient) buildRequest(settings LLMSettings, messages []Message) groqRequest {
	system, rest := splitSystem(settings.system, messages)

	request := groqRequest{
		Model:       settings.model,
		Messages:    toGroqMessages(rest),
		Temperature: settings.temperature,
		MaxTokens:   settings.maxTokens,
	}

	// Groq uses system message in messages array
	if system != "" {
		request.Messages = append([]groqMessage{{Role: "system", Content: system}}, request.Messages...)
	}

	if len(settings.tools) > 0 {
		request.Tools = convertToolsToGroqFormat(settings.tools)
		request.ToolChoice = settings.toolChoice
		if request.ToolChoice == ToolChoiceAny {
			request.ToolChoice = "required"
		}
	}

	return request
}

func (c *GroqClient) makeRequest(
	ctx context.Context,
	request groqRequest,
	contentCallback func(chunk string) error,
	toolCallback func(toolCalls []api.ToolCall) error,
) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	body, err := postJSON(ctx, c.httpClient, c.retry, c.url, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, jsonData)
	if err != nil {
		return err
	}

	var response groqResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response")
	}

	choice := response.Choices[0]

	if len(choice.Message.ToolCalls) > 0 && toolCallback != nil {
		// Convert Groq tool calls to Ollama format for compatibility
		toolCalls := make([]api.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if strings.TrimSpace(tc.Function.Arguments) != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return fmt.Errorf("error parsing tool call arguments: %w", err)
				}
			}

			toolCalls[i] = api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: args,
				},
			}
		}
		return toolCallback(toolCalls)
	}

	if contentCallback != nil {
		return contentCallback(choice.Message.Content)
	}

	return nil
}

func toGroqMessages(messages []Message) []groqMessage {
	out := make([]groqMessage, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.IsToolResult:
			out = append(out, groqMessage{Role: "tool", Content: m.Content, ToolCallID: m.ToolCallID})

		case len(m.ToolCalls) > 0:
			calls := make([]groqToolCall, len(m.ToolCalls))
			for i, call := range m.ToolCalls {
				args, _ := json.Marshal(call.Function.Arguments)
				calls[i] = groqToolCall{
					ID:   ToolCallID(i),
					Type: "function",
					Function: groqToolCallFunction{
						Name:      call.Function.Name,
						Arguments: string(args),
					},
				}
			}
			out = append(out, groqMessage{Role: "assistant", Content: m.Content, ToolCalls: calls})

		default:
			out = append(out, groqMessage{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

// convertToolsToGroqFormat converts Ollama tools to Groq format
func convertToolsToGroqFormat(tools []api.Tool) []groqTool {
	if len(tools) == 0 {
		return nil
	}

	groqTools := make([]groqTool, len(tools))
	for i, tool := range tools {
		groqTools[i] = groqTool{
			Type: "function",
			Function: groqFunction{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  inputSchema(tool),
			},
		}
	}
	return groqTools
}

// Groq API types
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
	Tools       []groqTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

type groqTool struct {
	Type     string       `json:"type"`
	Function groqFunction `json:"function"`
}

type groqFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type groqResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
}

type groqChoice struct {
	Index        int         `json:"index"`
	Message      groqMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type groqMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []groqToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type groqToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function groqToolCallFunction `json:"function"`
}

type groqToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

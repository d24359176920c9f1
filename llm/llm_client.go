package llm

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

type Capability uint8

const (
	NativeToolCalling Capability = 1 << iota
)

type LLMClient interface {
	GenerateInference(
		ctx context.Context,
		messages []Message,
		callback func(chunk string) error,
		opts ...LLMOption,
	) error

	// GenerateInferenceWithTools supports native tool calling. When the model
	// asks for tools, toolCallback receives the calls and contentCallback is
	// not invoked.
	GenerateInferenceWithTools(
		ctx context.Context,
		messages []Message,
		contentCallback func(chunk string) error,
		toolCallback func(toolCalls []api.ToolCall) error,
		opts ...LLMOption,
	) error

	Capabilities() Capability

	GetModel() string
}

// Tool choice modes understood by every client.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
	ToolChoiceAny  = "any"
)

type LLMSettings struct {
	model       string     // model name
	temperature float64    // randomness (0.0 to 1.0)
	maxTokens   int        // maximum tokens to generate
	system      string     // system prompt
	stream      bool       // whether to stream response
	tools       []api.Tool // tools to use for tool calling
	toolChoice  string     // auto, none or any
}

type LLMOption func(*LLMSettings)

func defaultSettings(model string) LLMSettings {
	return LLMSettings{
		model:       model,
		temperature: 0.7,
		maxTokens:   4096,
		toolChoice:  ToolChoiceAuto,
	}
}

func applyOptions(settings LLMSettings, opts []LLMOption) LLMSettings {
	for _, opt := range opts {
		opt(&settings)
	}
	return settings
}

// Common options for all LLM providers
func WithTemperature(temp float64) LLMOption {
	return func(s *LLMSettings) { s.temperature = temp }
}

func WithMaxTokens(tokens int) LLMOption {
	return func(s *LLMSettings) { s.maxTokens = tokens }
}

func WithSystemPrompt(prompt string) LLMOption {
	return func(s *LLMSettings) { s.system = prompt }
}

func WithStreaming(stream bool) LLMOption {
	return func(s *LLMSettings) { s.stream = stream }
}

func WithTools(tools []api.Tool) LLMOption {
	return func(s *LLMSettings) { s.tools = tools }
}

// WithToolChoice controls whether the model may call tools. ToolChoiceNone
// keeps the tool definitions visible but forces a text answer.
func WithToolChoice(choice string) LLMOption {
	return func(s *LLMSettings) { s.toolChoice = choice }
}

type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // the message content

	IsToolResult bool           `json:"-"` // content is the output of a tool call
	ToolCallID   string         `json:"-"` // pairs a tool result with its call
	ToolName     string         `json:"-"` // tool that produced the result
	ToolCalls    []api.ToolCall `json:"-"` // tool calls requested by an assistant turn
}

// ToolCallID names the i-th tool call of an assistant turn. Tool results
// reference their call by the same id.
func ToolCallID(i int) string {
	return fmt.Sprintf("call_%d", i)
}

// NewToolCallMessage records an assistant turn that requested tools.
func NewToolCallMessage(calls []api.ToolCall) Message {
	return Message{Role: "assistant", ToolCalls: calls}
}

// NewToolResultMessage records the output of the i-th tool call.
func NewToolResultMessage(i int, toolName, content string) Message {
	return Message{
		Role:         "user",
		Content:      content,
		IsToolResult: true,
		ToolCallID:   ToolCallID(i),
		ToolName:     toolName,
	}
}

// splitSystem removes system messages from the list and joins them with the
// configured system prompt.
func splitSystem(system string, messages []Message) (string, []Message) {
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MockProgressReporter implements ProgressReporter for testing
type MockProgressReporter struct {
	mu     sync.Mutex
	events []*schema.AgentStreamChunk
}

func (m *MockProgressReporter) Send(event *schema.AgentStreamChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockProgressReporter) GetEvents() []*schema.AgentStreamChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

// testLLMClient returns scripted responses and tool calls per call.
type testLLMClient struct {
	model            string
	response         string
	responses        []string
	toolCallsPerTurn [][]api.ToolCall
	shouldError      bool
	errorMessage     string
	delay            time.Duration
	noNativeTools    bool

	callCount int
	messages  [][]llm.Message
}

func (m *testLLMClient) next(ctx context.Context, messages []llm.Message) (string, []api.ToolCall, error) {
	m.messages = append(m.messages, append([]llm.Message(nil), messages...))
	turn := m.callCount
	m.callCount++

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
	if m.shouldError {
		return "", nil, errors.New(m.errorMessage)
	}

	response := m.response
	if turn < len(m.responses) {
		response = m.responses[turn]
	}
	var toolCalls []api.ToolCall
	if turn < len(m.toolCallsPerTurn) {
		toolCalls = m.toolCallsPerTurn[turn]
	}
	return response, toolCalls, nil
}

func (m *testLLMClient) GenerateInference(ctx context.Context, messages []llm.Message, callback func(chunk string) error, opts ...llm.LLMOption) error {
	response, _, err := m.next(ctx, messages)
	if err != nil {
		return err
	}
	return callback(response)
}

func (m *testLLMClient) GenerateInferenceWithTools(ctx context.Context, messages []llm.Message, contentCallback func(chunk string) error, toolCallback func(toolCalls []api.ToolCall) error, opts ...llm.LLMOption) error {
	response, toolCalls, err := m.next(ctx, messages)
	if err != nil {
		return err
	}
	if len(toolCalls) > 0 {
		return toolCallback(toolCalls)
	}
	return contentCallback(response)
}

func (m *testLLMClient) Capabilities() llm.Capability {
	if m.noNativeTools {
		return 0
	}
	return llm.NativeToolCalling
}

func (m *testLLMClient) GetModel() string {
	return m.model
}

type stubSources struct {
	sources []schema.Source
	resets  int
}

func (s *stubSources) LastSources() []schema.Source { return s.sources }
func (s *stubSources) ResetSources()                { s.sources = nil; s.resets++ }

func searchCall(args map[string]any) api.ToolCall {
	return api.ToolCall{Function: api.ToolCallFunction{Name: "search_course_content", Arguments: args}}
}

func newSearchTool(src *stubSources, calls *int) MCPTool {
	return NewMCPToolBuilder("search_course_content", "Search course materials").
		StringParam("query", "What to search for", true).
		WithSources(src).
		WithHandler(func(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) {
			*calls++
			src.sources = []schema.Source{{Text: "MCP - Lesson 1", Link: "https://example.com/l1"}}
			return "[MCP - Lesson 1]\nServers expose tools.", nil
		}).
		Build()
}

func TestAgentExecute_DirectAnswer(t *testing.T) {
	model := &testLLMClient{model: "test-model", response: "Paris is the capital of France."}
	src := &stubSources{}
	calls := 0

	agent := NewAgentBuilder().
		WithBigModel(model).
		WithToolManagerFactory(func() *ToolManager { return NewToolManager(newSearchTool(src, &calls)) }).
		Build()

	reporter := &MockProgressReporter{}
	result, err := agent.Execute(context.Background(), reporter, &schema.GenerateAnswerRequest{Question: "What is the capital of France?"})

	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.ToolsUsed)
	assert.NotEmpty(t, result.SessionId)
	assert.Equal(t, 1, model.callCount)
	assert.Equal(t, 0, calls)
	assert.GreaterOrEqual(t, result.ProcessingTime, int64(0))

	var complete *schema.StreamComplete
	for _, e := range reporter.GetEvents() {
		if c := e.GetComplete(); c != nil {
			complete = c
		}
	}
	require.NotNil(t, complete)
	assert.Equal(t, result.Answer, complete.Answer)
}

func TestAgentExecute_OneToolRound(t *testing.T) {
	model := &testLLMClient{
		model: "test-model",
		toolCallsPerTurn: [][]api.ToolCall{
			{searchCall(map[string]any{"query": "what servers expose", "course_name": "MCP"})},
		},
		responses: []string{"", "Servers expose tools, resources and prompts."},
	}
	src := &stubSources{}
	calls := 0

	agent := NewAgentBuilder().
		WithBigModel(model).
		WithToolManagerFactory(func() *ToolManager { return NewToolManager(newSearchTool(src, &calls)) }).
		Build()

	reporter := &MockProgressReporter{}
	result, err := agent.Execute(context.Background(), reporter, &schema.GenerateAnswerRequest{Question: "What do MCP servers expose?"})

	require.NoError(t, err)
	assert.Equal(t, "Servers expose tools, resources and prompts.", result.Answer)
	assert.Equal(t, []schema.Source{{Text: "MCP - Lesson 1", Link: "https://example.com/l1"}}, result.Sources)
	assert.Equal(t, []string{"search_course_content"}, result.ToolsUsed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, model.callCount)
	assert.Equal(t, 1, src.resets, "sources are reset after being returned")

	second := model.messages[1]
	require.Len(t, second, 3)
	assert.Equal(t, "user", second[0].Role)
	assert.Equal(t, "assistant", second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)
	assert.True(t, second[2].IsToolResult)
	assert.Equal(t, llm.ToolCallID(0), second[2].ToolCallID)
	assert.Equal(t, "[MCP - Lesson 1]\nServers expose tools.", second[2].Content)

	var toolEvents int
	for _, e := range reporter.GetEvents() {
		if tr := e.GetToolResult(); tr != nil {
			toolEvents++
			assert.Equal(t, "search_course_content", tr.ToolName)
			assert.Equal(t, "MCP", tr.Arguments["course_name"])
		}
	}
	assert.Equal(t, 1, toolEvents)
}

func TestAgentExecute_SecondRoundToolCallsIgnored(t *testing.T) {
	model := &testLLMClient{
		model: "test-model",
		toolCallsPerTurn: [][]api.ToolCall{
			{searchCall(map[string]any{"query": "a"})},
			{searchCall(map[string]any{"query": "b"})},
		},
		responses: []string{"", "final"},
	}
	src := &stubSources{}
	calls := 0

	agent := NewAgentBuilder().
		WithBigModel(model).
		WithToolManagerFactory(func() *ToolManager { return NewToolManager(newSearchTool(src, &calls)) }).
		Build()

	result, err := agent.Execute(context.Background(), nil, &schema.GenerateAnswerRequest{Question: "q"})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, model.callCount)
	assert.Equal(t, "", result.Answer)
}

func TestAgentExecute_ToolErrorsBecomeResults(t *testing.T) {
	failing := NewMCPToolBuilder("search_course_content", "Search").
		WithHandler(func(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) {
			return "", errors.New("vector store offline")
		}).Build()
	panicking := NewMCPToolBuilder("get_course_outline", "Outline").
		WithHandler(func(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) {
			panic("boom")
		}).Build()

	model := &testLLMClient{
		model: "test-model",
		toolCallsPerTurn: [][]api.ToolCall{{
			searchCall(map[string]any{"query": "x"}),
			{Function: api.ToolCallFunction{Name: "get_course_outline"}},
			{Function: api.ToolCallFunction{Name: "unknown_tool"}},
		}},
		responses: []string{"", "Sorry, I could not look that up."},
	}

	agent := NewAgentBuilder().
		WithBigModel(model).
		WithToolManagerFactory(func() *ToolManager { return NewToolManager(failing, panicking) }).
		Build()

	result, err := agent.Execute(context.Background(), nil, &schema.GenerateAnswerRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I could not look that up.", result.Answer)

	second := model.messages[1]
	require.Len(t, second, 5)
	assert.Equal(t, "Tool execution error: vector store offline", second[2].Content)
	assert.Contains(t, second[3].Content, "Tool execution error: ")
	assert.Contains(t, second[3].Content, "boom")
	assert.Equal(t, "Tool 'unknown_tool' not found", second[4].Content)
	assert.Equal(t, []string{"search_course_content", "get_course_outline", "unknown_tool"}, result.ToolsUsed)
}

func TestAgentExecute_LLMFailureLeavesSessionUntouched(t *testing.T) {
	sessions := memory.NewInMemoryStore(memory.DefaultMaxHistory)
	model := &testLLMClient{model: "test-model", shouldError: true, errorMessage: "API request failed with status 500"}

	agent := NewAgentBuilder().WithBigModel(model).WithSessionStore(sessions).Build()

	ctx := context.Background()
	id := sessions.CreateSession(ctx)
	reporter := &MockProgressReporter{}
	result, err := agent.Execute(ctx, reporter, &schema.GenerateAnswerRequest{Question: "q", SessionId: id})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	history, _ := sessions.GetHistory(ctx, id)
	assert.Empty(t, history)

	var sawError bool
	for _, e := range reporter.GetEvents() {
		if e.GetError() != nil {
			sawError = true
			assert.Equal(t, "inference_failed", e.GetError().ErrorCode)
		}
	}
	assert.True(t, sawError)
}

func TestAgentExecute_Timeout(t *testing.T) {
	model := &testLLMClient{model: "slow-model", response: "late", delay: time.Second}

	agent := NewAgentBuilder().WithBigModel(model).WithLLMTimeout(20 * time.Millisecond).Build()

	_, err := agent.Execute(context.Background(), nil, &schema.GenerateAnswerRequest{Question: "q"})
	require.Error(t, err)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestAgentExecute_HistoryCarriedAcrossTurns(t *testing.T) {
	model := &testLLMClient{model: "test-model", responses: []string{"first answer", "second answer"}}
	agent := NewAgentBuilder().WithBigModel(model).Build()

	ctx := context.Background()
	first, err := agent.Execute(ctx, nil, &schema.GenerateAnswerRequest{Question: "first question"})
	require.NoError(t, err)

	second, err := agent.Execute(ctx, nil, &schema.GenerateAnswerRequest{Question: "second question", SessionId: first.SessionId})
	require.NoError(t, err)
	assert.Equal(t, first.SessionId, second.SessionId)

	history, err := agent.Sessions().GetHistory(ctx, first.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "User: first question\nAssistant: first answer\nUser: second question\nAssistant: second answer",
		memory.FormatHistory(history))
}

func TestAgentExecute_NonNativeModelSkipsTools(t *testing.T) {
	model := &testLLMClient{
		model:            "plain-model",
		noNativeTools:    true,
		toolCallsPerTurn: [][]api.ToolCall{{searchCall(map[string]any{"query": "x"})}},
		response:         "answer without tools",
	}
	src := &stubSources{}
	calls := 0

	agent := NewAgentBuilder().
		WithBigModel(model).
		WithToolManagerFactory(func() *ToolManager { return NewToolManager(newSearchTool(src, &calls)) }).
		Build()

	result, err := agent.Execute(context.Background(), nil, &schema.GenerateAnswerRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer without tools", result.Answer)
	assert.Equal(t, 0, calls)
}

func TestAgentExecute_RejectsEmptyQuestion(t *testing.T) {
	agent := NewAgentBuilder().WithBigModel(&testLLMClient{model: "m"}).Build()

	_, err := agent.Execute(context.Background(), nil, &schema.GenerateAnswerRequest{Question: "  "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SaiNageswarS/course-rag/appconfig"
	"github.com/SaiNageswarS/course-rag/embed"
	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/course-rag/vectorstore"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const mcpTranscript = `Course Title: MCP: Build Rich-Context AI Apps with Anthropic
Course Link: https://www.deeplearning.ai/short-courses/mcp
Course Instructor: Elie Schoppik

Lesson 0: Introduction
Lesson Link: https://learn.deeplearning.ai/mcp/lesson/0
Welcome to the course. We will build MCP servers and clients.
Lesson 1: Architecture
Lesson Link: https://learn.deeplearning.ai/mcp/lesson/1
The host contains clients. Each client talks to one server over a transport.
`

const ragTranscript = `Course Title: Advanced Retrieval for AI with Chroma
Course Link: https://www.deeplearning.ai/short-courses/chroma
Course Instructor: Anton Troynikov

Lesson 1: Overview of embeddings-based retrieval
Embeddings map text to vectors. Similar texts land close together.
Lesson 2: Query expansion
Query expansion rewrites the question to improve recall.
`

// scriptedLLM plays back one tool call round and then an answer.
type scriptedLLM struct {
	toolCalls []api.ToolCall
	answer    string
	err       error
	calls     int
	seen      [][]llm.Message
}

func (m *scriptedLLM) GenerateInference(ctx context.Context, messages []llm.Message, callback func(string) error, opts ...llm.LLMOption) error {
	return m.GenerateInferenceWithTools(ctx, messages, callback, func([]api.ToolCall) error { return nil }, opts...)
}

func (m *scriptedLLM) GenerateInferenceWithTools(ctx context.Context, messages []llm.Message, contentCallback func(string) error, toolCallback func([]api.ToolCall) error, opts ...llm.LLMOption) error {
	m.seen = append(m.seen, messages)
	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.calls == 1 && len(m.toolCalls) > 0 {
		return toolCallback(m.toolCalls)
	}
	return contentCallback(m.answer)
}

func (m *scriptedLLM) Capabilities() llm.Capability { return llm.NativeToolCalling }
func (m *scriptedLLM) GetModel() string              { return "scripted" }

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mcp.txt"), []byte(mcpTranscript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chroma.md"), []byte(ragTranscript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.txt"), []byte("no header here\nLesson 1: A\nText."), 0o644))
	return dir
}

func newTestSystem(t *testing.T, model llm.LLMClient, sessions memory.SessionStore) *System {
	t.Helper()
	cfg := appconfig.Default()
	cfg.VectorStore = appconfig.StoreMemory

	embedder := embed.NewHashingEmbedder(1024)
	sys, err := NewFromConfig(context.Background(), cfg, Components{
		Embedder: embedder,
		Store:    vectorstore.NewMemoryStore(embedder),
		LLM:      model,
		Sessions: sessions,
	}, model != nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })
	return sys
}

func TestAddCourseFolder(t *testing.T) {
	ctx := context.Background()
	sys := newTestSystem(t, nil, nil)
	dir := writeDocs(t)

	summary, err := sys.AddCourseFolder(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Courses)
	assert.Equal(t, 4, summary.Chunks)
	assert.Empty(t, summary.Skipped)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, filepath.Join(dir, "broken.txt"), summary.Failed[0].Path)

	analytics, err := sys.CourseAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.CourseAnalytics{
		TotalCourses: 2,
		CourseTitles: []string{"Advanced Retrieval for AI with Chroma", "MCP: Build Rich-Context AI Apps with Anthropic"},
	}, analytics)

	again, err := sys.AddCourseFolder(ctx, dir, true)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Courses)
	assert.Len(t, again.Skipped, 2)

	reloaded, err := sys.AddCourseFolder(ctx, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Courses)

	analytics, err = sys.CourseAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, analytics.TotalCourses, "re-adding a course never duplicates it")
}

func TestAddCourseFolder_MissingDir(t *testing.T) {
	sys := newTestSystem(t, nil, nil)

	_, err := sys.AddCourseFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)
}

func TestAddCourseDocument(t *testing.T) {
	sys := newTestSystem(t, nil, nil)
	dir := writeDocs(t)

	course, chunks, err := sys.AddCourseDocument(context.Background(), filepath.Join(dir, "mcp.txt"))
	require.NoError(t, err)
	assert.Equal(t, "MCP: Build Rich-Context AI Apps with Anthropic", course.Title)
	assert.Equal(t, 2, chunks)

	_, _, err = sys.AddCourseDocument(context.Background(), filepath.Join(dir, "broken.txt"))
	assert.Error(t, err)
}

func TestQuery_WithSearch(t *testing.T) {
	ctx := context.Background()
	model := &scriptedLLM{
		toolCalls: []api.ToolCall{{Function: api.ToolCallFunction{
			Name:      "search_course_content",
			Arguments: map[string]any{"query": "clients and servers", "course_name": "MCP", "lesson_number": float64(1)},
		}}},
		answer: "Each client talks to one server.",
	}
	sessions := memory.NewInMemoryStore(memory.DefaultMaxHistory)
	sys := newTestSystem(t, model, sessions)
	_, err := sys.AddCourseFolder(ctx, writeDocs(t), true)
	require.NoError(t, err)

	answer, sources, sessionID, err := sys.Query(ctx, "How do MCP clients relate to servers?", "")
	require.NoError(t, err)
	assert.Equal(t, "Each client talks to one server.", answer)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, []schema.Source{{
		Text: "MCP: Build Rich-Context AI Apps with Anthropic - Lesson 1",
		Link: "https://learn.deeplearning.ai/mcp/lesson/1",
	}}, sources)

	toolResult := model.seen[1][2]
	assert.True(t, toolResult.IsToolResult)
	assert.Contains(t, toolResult.Content, "[MCP: Build Rich-Context AI Apps with Anthropic - Lesson 1]\n")

	history, err := sessions.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "User: How do MCP clients relate to servers?\nAssistant: Each client talks to one server.",
		memory.FormatHistory(history))
}

func TestQuery_LLMFailure(t *testing.T) {
	ctx := context.Background()
	sessions := memory.NewInMemoryStore(memory.DefaultMaxHistory)
	sys := newTestSystem(t, &scriptedLLM{err: errors.New("connection refused")}, sessions)

	id := sessions.CreateSession(ctx)
	_, _, sessionID, err := sys.Query(ctx, "What is MCP?", id)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, id, sessionID)

	history, _ := sessions.GetHistory(ctx, id)
	assert.Empty(t, history)
}

func TestQuery_WithoutAgent(t *testing.T) {
	sys := newTestSystem(t, nil, nil)

	_, _, _, err := sys.Query(context.Background(), "q", "")
	assert.EqualError(t, err, "query agent is not configured")
}

func TestNewVectorStore_Sqlite(t *testing.T) {
	cfg := appconfig.Default()
	cfg.SqlitePath = filepath.Join(t.TempDir(), "nested", "store.db")

	store, err := NewVectorStore(cfg, embed.NewHashingEmbedder(256))
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(cfg.SqlitePath)
	assert.NoError(t, err)
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	cfg := appconfig.Default()
	cfg.VectorStore = appconfig.StoreMemory
	cfg.LLMProvider = "nobody"

	_, err := NewFromConfig(context.Background(), cfg, Components{}, true)
	assert.Error(t, err)
}

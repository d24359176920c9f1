package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/SaiNageswarS/course-rag/embed"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/course-rag/vectorstore"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mcpTitle = "MCP: Build Rich-Context AI Apps with Anthropic"

func newIndex(t *testing.T) *retrieval.Index {
	t.Helper()
	idx, err := retrieval.NewIndex(context.Background(),
		vectorstore.NewMemoryStore(embed.NewHashingEmbedder(1024)), retrieval.Options{})
	require.NoError(t, err)
	return idx
}

func seededIndex(t *testing.T) *retrieval.Index {
	t.Helper()
	idx := newIndex(t)
	course := &schema.Course{
		Title:      mcpTitle,
		CourseLink: "https://example.com/mcp",
		Lessons: []schema.Lesson{
			{Number: 0, Title: "Introduction", Link: "https://example.com/mcp/0"},
			{Number: 1, Title: "Why MCP"},
			{Number: 2, Title: "MCP Architecture", Link: "https://example.com/mcp/2"},
		},
	}
	chunks := []schema.Chunk{
		{Content: "Lesson 0 content: welcome to building MCP servers", CourseTitle: mcpTitle, LessonNumber: 0, Index: 0},
		{Content: "Lesson 1 content: MCP standardises context for models", CourseTitle: mcpTitle, LessonNumber: 1, Index: 1},
		{Content: "Lesson 2 content: hosts contain clients that talk to servers", CourseTitle: mcpTitle, LessonNumber: 2, Index: 2},
		{Content: "more on clients and servers and transports", CourseTitle: mcpTitle, LessonNumber: 2, Index: 3},
	}
	require.NoError(t, idx.AddCourse(context.Background(), course, chunks))
	return idx
}

func intPtr(n int) *int { return &n }

func TestSearchTool_FormatsAndRecordsSources(t *testing.T) {
	tool := NewSearchTool(seededIndex(t))

	out := tool.Execute(context.Background(), "clients and servers", "MCP", intPtr(2))

	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2)
	for _, b := range blocks {
		assert.True(t, strings.HasPrefix(b, "["+mcpTitle+" - Lesson 2]\n"), b)
	}
	assert.Contains(t, out, "hosts contain clients that talk to servers")
	assert.Contains(t, out, "more on clients and servers and transports")

	assert.Equal(t, []schema.Source{
		{Text: mcpTitle + " - Lesson 2", Link: "https://example.com/mcp/2"},
	}, tool.LastSources())

	tool.ResetSources()
	assert.Empty(t, tool.LastSources())
}

func TestSearchTool_EmptyResults(t *testing.T) {
	tests := []struct {
		name       string
		courseName string
		lesson     *int
		want       string
	}{
		{name: "no filters", want: "No relevant content found."},
		{name: "lesson only", lesson: intPtr(9), want: "No relevant content found in lesson 9."},
		{name: "course and lesson", courseName: "MCP", lesson: intPtr(9), want: "No relevant content found in course 'MCP' in lesson 9."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := seededIndex(t)
			if tt.courseName == "" && tt.lesson == nil {
				idx = newIndex(t)
			}
			tool := NewSearchTool(idx)
			assert.Equal(t, tt.want, tool.Execute(context.Background(), "anything", tt.courseName, tt.lesson))
			assert.Empty(t, tool.LastSources())
		})
	}
}

func TestSearchTool_UnresolvedCourse(t *testing.T) {
	tool := NewSearchTool(newIndex(t))

	out := tool.Execute(context.Background(), "servers", "Nonexistent Course", nil)
	assert.Equal(t, "No course found matching 'Nonexistent Course'", out)
}

func TestSearchTool_Handler(t *testing.T) {
	def := NewSearchTool(seededIndex(t)).Definition()

	assert.Equal(t, SearchToolName, def.Function.Name)
	assert.Equal(t, []string{"query"}, def.Function.Parameters.Required)
	assert.Equal(t, api.PropertyType{"integer"}, def.Function.Parameters.Properties["lesson_number"].Type)

	out, err := def.Handler(context.Background(), api.ToolCallFunctionArguments{
		"query": "welcome", "course_name": "MCP", "lesson_number": float64(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "["+mcpTitle+" - Lesson 0]\nLesson 0 content: welcome to building MCP servers", out)

	_, err = def.Handler(context.Background(), api.ToolCallFunctionArguments{"course_name": "MCP"})
	assert.EqualError(t, err, "missing required argument 'query'")

	_, err = def.Handler(context.Background(), api.ToolCallFunctionArguments{"query": "x", "lesson_number": "two"})
	assert.Error(t, err)
}

func TestOutlineTool(t *testing.T) {
	tool := NewOutlineTool(seededIndex(t))

	out, err := tool.Execute(context.Background(), "MCP")
	require.NoError(t, err)
	assert.Equal(t, "Course: "+mcpTitle+"\n"+
		"Course Link: https://example.com/mcp\n"+
		"Total Lessons: 3\n"+
		"\n"+
		"Lessons:\n"+
		"  0. Introduction\n"+
		"  1. Why MCP\n"+
		"  2. MCP Architecture", out)
	assert.Equal(t, []schema.Source{{Text: mcpTitle, Link: "https://example.com/mcp"}}, tool.LastSources())
}

func TestOutlineTool_UnknownCourse(t *testing.T) {
	tool := NewOutlineTool(newIndex(t))

	out, err := tool.Execute(context.Background(), "Anything")
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Anything'", out)
	assert.Empty(t, tool.LastSources())
}

func TestNewToolManager(t *testing.T) {
	idx := seededIndex(t)
	first := NewToolManager(idx)
	second := NewToolManager(idx)

	defs := first.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, SearchToolName, defs[0].Function.Name)
	assert.Equal(t, OutlineToolName, defs[1].Function.Name)

	_, err := first.Execute(context.Background(), api.ToolCall{Function: api.ToolCallFunction{
		Name: SearchToolName, Arguments: map[string]any{"query": "welcome", "lesson_number": 0},
	}})
	require.NoError(t, err)

	assert.Len(t, first.LastSources(), 1)
	assert.Empty(t, second.LastSources(), "managers never share sources")
}

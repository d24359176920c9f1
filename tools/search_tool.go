// Package tools exposes the retrieval index to the language model.
package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/ds"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const SearchToolName = "search_course_content"

// SearchTool runs filtered searches and remembers the sources of the last
// non-empty one.
type SearchTool struct {
	index *retrieval.Index

	mu          sync.Mutex
	lastSources []schema.Source
}

func NewSearchTool(index *retrieval.Index) *SearchTool {
	return &SearchTool{index: index}
}

func (t *SearchTool) Definition() agent.MCPTool {
	return agent.NewMCPToolBuilder(SearchToolName,
		"Search course materials with smart course name matching and lesson filtering").
		StringParam("query", "What to search for in the course content", true).
		StringParam("course_name", "Course title (partial matches work, e.g. 'MCP', 'Introduction')", false).
		IntParam("lesson_number", "Specific lesson number to search within (e.g. 1, 2, 3)", false).
		WithSources(t).
		WithHandler(t.handle).
		Build()
}

func (t *SearchTool) handle(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) {
	query, err := agent.RequiredStringArg(params, "query")
	if err != nil {
		return "", err
	}
	lesson, err := agent.IntArg(params, "lesson_number")
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, query, agent.StringArg(params, "course_name"), lesson), nil
}

// Execute searches and formats the hits for the model. Search failures and
// empty results are returned as readable text.
func (t *SearchTool) Execute(ctx context.Context, query, courseName string, lessonNumber *int) string {
	results := t.index.Search(ctx, retrieval.SearchQuery{
		Query:        query,
		CourseName:   courseName,
		LessonNumber: lessonNumber,
	})

	if results.Error != "" {
		return results.Error
	}

	if results.IsEmpty() {
		msg := "No relevant content found"
		if courseName != "" {
			msg += fmt.Sprintf(" in course '%s'", courseName)
		}
		if lessonNumber != nil {
			msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
		}
		return msg + "."
	}

	return t.formatResults(ctx, results)
}

func (t *SearchTool) formatResults(ctx context.Context, results schema.SearchResults) string {
	blocks := make([]string, 0, len(results.Documents))
	sources := []schema.Source{}
	seen := ds.NewSet[string]()

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		label := fmt.Sprintf("%s - Lesson %d", meta.CourseTitle, meta.LessonNumber)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, doc))

		if seen.Contains(label) {
			continue
		}
		seen.Add(label)

		link, err := t.index.GetLessonLink(ctx, meta.CourseTitle, meta.LessonNumber)
		if err != nil {
			logger.Error("Failed to look up lesson link",
				zap.String("course", meta.CourseTitle), zap.Int("lesson", meta.LessonNumber), zap.Error(err))
		}
		sources = append(sources, schema.Source{Text: label, Link: link})
	}

	t.setSources(sources)
	return strings.Join(blocks, "\n\n")
}

func (t *SearchTool) setSources(sources []schema.Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = sources
}

func (t *SearchTool) LastSources() []schema.Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]schema.Source(nil), t.lastSources...)
}

func (t *SearchTool) ResetSources() {
	t.setSources(nil)
}

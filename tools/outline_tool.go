package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/ollama/ollama/api"
)

const OutlineToolName = "get_course_outline"

// OutlineTool renders a course's lesson list.
type OutlineTool struct {
	index *retrieval.Index

	mu          sync.Mutex
	lastSources []schema.Source
}

func NewOutlineTool(index *retrieval.Index) *OutlineTool {
	return &OutlineTool{index: index}
}

func (t *OutlineTool) Definition() agent.MCPTool {
	return agent.NewMCPToolBuilder(OutlineToolName,
		"Get the outline of a course: its title, link and the number and title of every lesson").
		StringParam("course_title", "Course title (partial matches work, e.g. 'MCP', 'RAG')", true).
		WithSources(t).
		WithHandler(t.handle).
		Build()
}

func (t *OutlineTool) handle(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) {
	title, err := agent.RequiredStringArg(params, "course_title")
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, title)
}

func (t *OutlineTool) Execute(ctx context.Context, courseTitle string) (string, error) {
	resolved, found, err := t.index.ResolveCourseName(ctx, courseTitle)
	if err != nil {
		return "", fmt.Errorf("resolve course %q: %w", courseTitle, err)
	}
	if !found {
		return (&retrieval.ResolutionError{Name: courseTitle}).Error(), nil
	}

	course, found, err := t.index.GetCourseOutline(ctx, resolved)
	if err != nil {
		return "", err
	}
	if !found {
		return (&retrieval.ResolutionError{Name: courseTitle}).Error(), nil
	}

	t.setSources([]schema.Source{{Text: course.Title, Link: course.CourseLink}})
	return FormatOutline(course), nil
}

// FormatOutline renders the course header followed by one line per lesson.
func FormatOutline(course *schema.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.CourseLink != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.CourseLink)
	}
	fmt.Fprintf(&b, "Total Lessons: %d\n", len(course.Lessons))
	b.WriteString("\nLessons:")
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "\n  %d. %s", l.Number, l.Title)
	}
	return b.String()
}

func (t *OutlineTool) setSources(sources []schema.Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = sources
}

func (t *OutlineTool) LastSources() []schema.Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]schema.Source(nil), t.lastSources...)
}

func (t *OutlineTool) ResetSources() {
	t.setSources(nil)
}

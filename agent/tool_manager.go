package agent

import (
	"context"
	"fmt"

	"github.com/SaiNageswarS/course-rag/prompts"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-collection-boot/ds"
	"github.com/ollama/ollama/api"
)

// ToolNotFoundError is returned when a model calls an unregistered tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Tool '%s' not found", e.Name)
}

// ToolManager registers tools by name and executes the calls a model makes.
// A manager is meant to serve one query; it is not safe for concurrent use.
type ToolManager struct {
	tools  []MCPTool
	byName map[string]int
}

func NewToolManager(tools ...MCPTool) *ToolManager {
	m := &ToolManager{byName: make(map[string]int)}
	for _, t := range tools {
		m.Register(t)
	}
	return m
}

// Register adds a tool, replacing any tool with the same name.
func (m *ToolManager) Register(tool MCPTool) {
	if i, ok := m.byName[tool.Function.Name]; ok {
		m.tools[i] = tool
		return
	}
	m.byName[tool.Function.Name] = len(m.tools)
	m.tools = append(m.tools, tool)
}

func (m *ToolManager) Len() int {
	return len(m.tools)
}

// Definitions returns the schemas handed to the model, in registration order.
func (m *ToolManager) Definitions() []api.Tool {
	defs := make([]api.Tool, len(m.tools))
	for i, tool := range m.tools {
		defs[i] = tool.Tool
	}
	return defs
}

// Descriptions lists tools for the system prompt.
func (m *ToolManager) Descriptions() []prompts.ToolDescription {
	out := make([]prompts.ToolDescription, len(m.tools))
	for i, tool := range m.tools {
		out[i] = prompts.ToolDescription{Name: tool.Function.Name, Description: tool.Function.Description}
	}
	return out
}

func (m *ToolManager) Find(name string) (MCPTool, bool) {
	i, ok := m.byName[name]
	if !ok {
		return MCPTool{}, false
	}
	return m.tools[i], true
}

// Execute runs the named tool. A panicking handler is reported as an error.
func (m *ToolManager) Execute(ctx context.Context, call api.ToolCall) (out string, err error) {
	tool, ok := m.Find(call.Function.Name)
	if !ok {
		return "", &ToolNotFoundError{Name: call.Function.Name}
	}
	if tool.Handler == nil {
		return "", fmt.Errorf("tool '%s' has no handler", call.Function.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("tool '%s' panicked: %v", call.Function.Name, r)
		}
	}()

	return tool.Handler(ctx, call.Function.Arguments)
}

// LastSources collects the sources of every tool, dropping duplicates.
func (m *ToolManager) LastSources() []schema.Source {
	seen := ds.NewSet[string]()
	sources := []schema.Source{}
	for _, tool := range m.tools {
		if tool.Sources == nil {
			continue
		}
		for _, s := range tool.Sources.LastSources() {
			key := s.Text + "\x00" + s.Link
			if seen.Contains(key) {
				continue
			}
			seen.Add(key)
			sources = append(sources, s)
		}
	}
	return sources
}

func (m *ToolManager) ResetSources() {
	for _, tool := range m.tools {
		if tool.Sources != nil {
			tool.Sources.ResetSources()
		}
	}
}

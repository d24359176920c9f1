package agent

import (
	"context"
	"time"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/metrics"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/ollama/ollama/api"
)

// AgentConfig holds configuration for the agent
type AgentConfig struct {
	BigModel llm.LLMClient

	// NewToolManager is called once per query so that concurrent queries
	// never share tool state such as the last retrieved sources.
	NewToolManager func() *ToolManager

	Sessions      memory.SessionStore
	MaxTokens     int
	Temperature   float64
	MaxToolRounds int
	LLMTimeout    time.Duration

	Metrics *metrics.Metrics
}

// Agent answers one question at a time with an optional round of tool calls.
type Agent struct {
	config AgentConfig
}

// SourceProvider exposes the citations gathered by a tool's last execution.
type SourceProvider interface {
	LastSources() []schema.Source
	ResetSources()
}

// MCPTool wraps an api.Tool and provides a handler for execution
type MCPTool struct {
	api.Tool
	// Sources is set for tools that record citations while they run.
	Sources SourceProvider `json:"-"`
	Handler func(ctx context.Context, params api.ToolCallFunctionArguments) (string, error) `json:"-"`
}

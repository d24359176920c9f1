package tools

import (
	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/retrieval"
)

// NewToolManager builds fresh tool instances over the shared index, so each
// query gets its own source batch.
func NewToolManager(index *retrieval.Index) *agent.ToolManager {
	return agent.NewToolManager(
		NewSearchTool(index).Definition(),
		NewOutlineTool(index).Definition(),
	)
}

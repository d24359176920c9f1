package mcpserver

import (
	"context"
	"fmt"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/prompts"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/tools"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	index *retrieval.Index
}

func NewHandlers(index *retrieval.Index) *Handlers {
	return &Handlers{index: index}
}

func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	lesson, err := agent.IntArg(api.ToolCallFunctionArguments(req.GetArguments()), "lesson_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	courseName := req.GetString("course_name", "")

	logger.Info("MCP search", zap.String("query", query), zap.String("course", courseName))
	// A fresh tool per call keeps sources out of shared state.
	out := tools.NewSearchTool(h.index).Execute(ctx, query, courseName, lesson)
	return mcp.NewToolResultText(out), nil
}

func (h *Handlers) HandleOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("course_title")
	if err != nil || title == "" {
		return mcp.NewToolResultError("course_title is required"), nil
	}

	out, err := tools.NewOutlineTool(h.index).Execute(ctx, title)
	if err != nil {
		logger.Error("MCP outline failed", zap.String("course", title), zap.Error(err))
		return mcp.NewToolResultError("Outline request failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *Handlers) HandleQuestionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	question := req.Params.Arguments["question"]
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	system, err := prompts.RenderSystemPrompt(prompts.SystemPromptData{
		Tools:         tools.NewToolManager(h.index).Descriptions(),
		MaxToolRounds: 1,
	})
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: "Course question with tool usage instructions",
		Messages: []mcp.PromptMessage{
			{
				Role: "user",
				Content: mcp.TextContent{
					Type: "text",
					Text: system + "\n\nQuestion: " + question,
				},
			},
		},
	}, nil
}

// Package mcpserver exposes the course tools over the Model Context Protocol.
package mcpserver

import (
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const ServerName = "course-rag-mcp"

// New creates an MCP server with the search and outline tools and the
// course question prompt registered.
func New(index *retrieval.Index, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(index)

	searchTool := mcp.NewTool(
		tools.SearchToolName,
		mcp.WithDescription("Search course materials with smart course name matching and lesson filtering. Returns matching transcript excerpts labelled with course and lesson."),
		mcp.WithString("query",
			mcp.Description("What to search for in the course content"),
			mcp.Required(),
		),
		mcp.WithString("course_name",
			mcp.Description("Course title (partial matches work, e.g. 'MCP', 'Introduction')"),
		),
		mcp.WithNumber("lesson_number",
			mcp.Description("Specific lesson number to search within (e.g. 1, 2, 3)"),
		),
	)

	outlineTool := mcp.NewTool(
		tools.OutlineToolName,
		mcp.WithDescription("Get the outline of a course: its title, link and the number and title of every lesson."),
		mcp.WithString("course_title",
			mcp.Description("Course title (partial matches work, e.g. 'MCP', 'RAG')"),
			mcp.Required(),
		),
	)

	questionPrompt := mcp.NewPrompt(
		"course_question",
		mcp.WithPromptDescription("Answer a question about the indexed courses using the course tools"),
		mcp.WithArgument("question",
			mcp.ArgumentDescription("The question asked by the user"),
			mcp.RequiredArgument(),
		),
	)

	s.AddTool(searchTool, h.HandleSearch)
	s.AddTool(outlineTool, h.HandleOutline)
	s.AddPrompt(questionPrompt, h.HandleQuestionPrompt)

	return s
}

// Run serves the MCP server over stdio until stdin closes.
func Run(index *retrieval.Index, version string) error {
	return server.ServeStdio(New(index, version))
}

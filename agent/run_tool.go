package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// RunTool executes one tool call and returns the text fed back to the model.
// Failures never abort the query; they become the tool result.
func (a *Agent) RunTool(ctx context.Context, reporter ProgressReporter, tools *ToolManager, call *api.ToolCall) string {
	name := call.Function.Name
	reporter.Send(NewProgressUpdate(
		schema.Stage_tool_execution_starting,
		fmt.Sprintf("Running tool %s with arguments: %v", name, call.Function.Arguments)))

	result := &schema.ToolResultChunk{Arguments: formatArguments(call.Function.Arguments)}

	output, err := tools.Execute(ctx, *call)
	if err != nil {
		logger.Error("Tool execution failed", zap.String("tool", name), zap.Error(err))
		a.config.Metrics.ObserveToolCall(name, "error")

		var notFound *ToolNotFoundError
		if errors.As(err, &notFound) {
			output = notFound.Error()
		} else {
			output = fmt.Sprintf("Tool execution error: %v", err)
		}
		result.Error = err.Error()
	} else {
		logger.Info("Tool executed", zap.String("tool", name), zap.Int("outputLength", len(output)))
		a.config.Metrics.ObserveToolCall(name, "success")
	}

	result.Output = output
	reporter.Send(NewToolExecutionResult(name, result))
	reporter.Send(NewProgressUpdate(
		schema.Stage_tool_execution_completed,
		fmt.Sprintf("Tool %s completed", name)))
	return output
}

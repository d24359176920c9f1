package agent

import (
	"time"

	"github.com/SaiNageswarS/course-rag/schema"
)

// ProgressReporter is an interface for reporting agent execution progress
type ProgressReporter interface {
	// Send sends a progress update
	Send(event *schema.AgentStreamChunk) error
}

// NoOpProgressReporter implements ProgressReporter with no-op operations
type NoOpProgressReporter struct{}

func (r *NoOpProgressReporter) Send(event *schema.AgentStreamChunk) error {
	return nil
}

// ChannelReporter forwards events to a buffered channel.
type ChannelReporter struct {
	events chan *schema.AgentStreamChunk
}

func NewChannelReporter(buffer int) *ChannelReporter {
	return &ChannelReporter{events: make(chan *schema.AgentStreamChunk, buffer)}
}

// Send blocks while the buffer is full.
func (r *ChannelReporter) Send(event *schema.AgentStreamChunk) error {
	r.events <- event
	return nil
}

func (r *ChannelReporter) Events() <-chan *schema.AgentStreamChunk {
	return r.events
}

// Close must be called once the agent has returned.
func (r *ChannelReporter) Close() {
	close(r.events)
}

// Helper functions for creating progress events
func NewProgressUpdate(stage schema.Stage, message string) *schema.AgentStreamChunk {
	return &schema.AgentStreamChunk{
		ProgressUpdate: &schema.ProgressUpdateChunk{
			Stage:     stage,
			Timestamp: time.Now().UnixMilli(),
			Message:   message,
		},
	}
}

func NewToolExecutionResult(toolName string, result *schema.ToolResultChunk) *schema.AgentStreamChunk {
	result.ToolName = toolName
	return &schema.AgentStreamChunk{ToolResult: result}
}

func NewAnswerChunk(answerChunk *schema.AnswerChunk) *schema.AgentStreamChunk {
	return &schema.AgentStreamChunk{Answer: answerChunk}
}

func NewStreamComplete(finalResponse *schema.StreamComplete) *schema.AgentStreamChunk {
	return &schema.AgentStreamChunk{Complete: finalResponse}
}

func NewStreamError(message, code string) *schema.AgentStreamChunk {
	return &schema.AgentStreamChunk{
		Error: &schema.StreamError{
			ErrorMessage: message,
			ErrorCode:    code,
		},
	}
}

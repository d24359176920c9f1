package schema

// GenerateAnswerRequest is one user turn.
type GenerateAnswerRequest struct {
	Question  string `json:"question"`
	SessionId string `json:"session_id,omitempty"`
}

// StreamComplete is the final outcome of a query.
type StreamComplete struct {
	Answer         string            `json:"answer"`
	Sources        []Source          `json:"sources"`
	SessionId      string            `json:"session_id"`
	ToolsUsed      []string          `json:"tools_used"`
	ProcessingTime int64             `json:"processing_time"`
	Metadata       map[string]string `json:"metadata"`
}

type Stage int32

const (
	Stage_unknown Stage = iota
	Stage_query_received
	Stage_inference_starting
	Stage_tool_execution_starting
	Stage_tool_execution_completed
	Stage_answer_generation_starting
)

var stageNames = map[Stage]string{
	Stage_unknown:                    "unknown",
	Stage_query_received:             "query_received",
	Stage_inference_starting:         "inference_starting",
	Stage_tool_execution_starting:    "tool_execution_starting",
	Stage_tool_execution_completed:   "tool_execution_completed",
	Stage_answer_generation_starting: "answer_generation_starting",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return stageNames[Stage_unknown]
}

type ProgressUpdateChunk struct {
	Stage     Stage  `json:"stage"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

type ToolResultChunk struct {
	ToolName  string            `json:"tool_name"`
	Arguments map[string]string `json:"arguments,omitempty"`
	Output    string            `json:"output"`
	Error     string            `json:"error,omitempty"`
}

type AnswerChunk struct {
	Content string `json:"content"`
}

type StreamError struct {
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
}

// AgentStreamChunk is a progress event. Exactly one field is set.
type AgentStreamChunk struct {
	ProgressUpdate *ProgressUpdateChunk `json:"progress_update,omitempty"`
	ToolResult     *ToolResultChunk     `json:"tool_result,omitempty"`
	Answer         *AnswerChunk         `json:"answer,omitempty"`
	Complete       *StreamComplete      `json:"complete,omitempty"`
	Error          *StreamError         `json:"error,omitempty"`
}

func (c *AgentStreamChunk) GetProgressUpdate() *ProgressUpdateChunk {
	if c == nil {
		return nil
	}
	return c.ProgressUpdate
}

func (c *AgentStreamChunk) GetToolResult() *ToolResultChunk {
	if c == nil {
		return nil
	}
	return c.ToolResult
}

func (c *AgentStreamChunk) GetAnswer() *AnswerChunk {
	if c == nil {
		return nil
	}
	return c.Answer
}

func (c *AgentStreamChunk) GetComplete() *StreamComplete {
	if c == nil {
		return nil
	}
	return c.Complete
}

func (c *AgentStreamChunk) GetError() *StreamError {
	if c == nil {
		return nil
	}
	return c.Error
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/prompts"
	"github.com/SaiNageswarS/course-rag/schema"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Execute answers one question. The model may call tools for at most
// MaxToolRounds rounds; the following call has tools disabled and its text
// is the answer. History is only updated for successful queries.
func (a *Agent) Execute(ctx context.Context, reporter ProgressReporter, req *schema.GenerateAnswerRequest) (*schema.StreamComplete, error) {
	startTime := getCurrentTimeMs()
	if reporter == nil {
		reporter = &NoOpProgressReporter{}
	}
	if a.config.BigModel == nil {
		return nil, status.Error(codes.FailedPrecondition, "no language model configured")
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, status.Error(codes.InvalidArgument, "question is required")
	}

	reporter.Send(NewProgressUpdate(schema.Stage_query_received, "Query received"))

	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = a.config.Sessions.CreateSession(ctx)
	}

	history, err := a.config.Sessions.GetHistory(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load session history", zap.String("sessionId", sessionID), zap.Error(err))
		history = nil
	}

	tools := a.config.NewToolManager()
	systemPrompt, err := prompts.RenderSystemPrompt(prompts.SystemPromptData{
		Tools:         tools.Descriptions(),
		MaxToolRounds: a.config.MaxToolRounds,
		History:       memory.FormatHistory(history),
	})
	if err != nil {
		logger.Error("Failed to render system prompt", zap.Error(err))
		reporter.Send(NewStreamError(err.Error(), "prompt_rendering_failed"))
		a.config.Metrics.ObserveQuery("error")
		return nil, status.Errorf(codes.Internal, "render system prompt: %v", err)
	}

	response := &schema.StreamComplete{
		SessionId: sessionID,
		ToolsUsed: []string{},
		Metadata:  map[string]string{"model": a.config.BigModel.GetModel()},
	}

	messages := []llm.Message{{Role: "user", Content: req.Question}}
	useTools := tools.Len() > 0
	if useTools && a.config.BigModel.Capabilities()&llm.NativeToolCalling == 0 {
		logger.Info("Model has no native tool calling, answering without tools",
			zap.String("model", a.config.BigModel.GetModel()))
		useTools = false
	}

	var answer string
	for round := 0; ; round++ {
		allowTools := useTools && round < a.config.MaxToolRounds

		reporter.Send(NewProgressUpdate(schema.Stage_inference_starting, fmt.Sprintf("Running inference (round %d)", round+1)))
		text, toolCalls, err := a.infer(ctx, messages, systemPrompt, tools, useTools, allowTools)
		if err != nil {
			logger.Error("Failed to run inference", zap.String("model", a.config.BigModel.GetModel()), zap.Error(err))
			reporter.Send(NewStreamError(err.Error(), "inference_failed"))
			tools.ResetSources()
			a.config.Metrics.ObserveQuery("error")
			return nil, toStatusError(err)
		}

		if len(toolCalls) == 0 || !allowTools {
			answer = text
			break
		}

		messages = append(messages, llm.NewToolCallMessage(toolCalls))
		for i := range toolCalls {
			output := a.RunTool(ctx, reporter, tools, &toolCalls[i])
			messages = append(messages, llm.NewToolResultMessage(i, toolCalls[i].Function.Name, output))
			response.ToolsUsed = appendUnique(response.ToolsUsed, toolCalls[i].Function.Name)
		}
	}

	reporter.Send(NewProgressUpdate(schema.Stage_answer_generation_starting, "Answer ready"))
	reporter.Send(NewAnswerChunk(&schema.AnswerChunk{Content: answer}))

	response.Answer = answer
	response.Sources = tools.LastSources()
	tools.ResetSources()

	if err := a.config.Sessions.AddExchange(ctx, sessionID, req.Question, answer); err != nil {
		logger.Error("Failed to save session", zap.String("sessionId", sessionID), zap.Error(err))
	}

	response.ProcessingTime = getCurrentTimeMs() - startTime
	a.config.Metrics.ObserveQuery("success")
	reporter.Send(NewStreamComplete(response))
	return response, nil
}

// infer makes one model call. sendTools controls whether tool schemas are
// attached at all; allowTools whether the model may call them.
func (a *Agent) infer(ctx context.Context, messages []llm.Message, systemPrompt string, tools *ToolManager, sendTools, allowTools bool) (string, []api.ToolCall, error) {
	if a.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.LLMTimeout)
		defer cancel()
	}

	opts := []llm.LLMOption{
		llm.WithMaxTokens(a.config.MaxTokens),
		llm.WithTemperature(a.config.Temperature),
		llm.WithSystemPrompt(systemPrompt),
	}

	var text strings.Builder
	var toolCalls []api.ToolCall
	onContent := func(chunk string) error {
		text.WriteString(chunk)
		return nil
	}

	started := time.Now()
	var err error
	if sendTools {
		choice := llm.ToolChoiceNone
		if allowTools {
			choice = llm.ToolChoiceAuto
		}
		opts = append(opts, llm.WithTools(tools.Definitions()), llm.WithToolChoice(choice))
		err = a.config.BigModel.GenerateInferenceWithTools(ctx, messages, onContent,
			func(calls []api.ToolCall) error {
				toolCalls = append(toolCalls, calls...)
				return nil
			}, opts...)
	} else {
		err = a.config.BigModel.GenerateInference(ctx, messages, onContent, opts...)
	}
	a.config.Metrics.ObserveLLMCall(a.config.BigModel.GetModel(), time.Since(started))

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return text.String(), toolCalls, err
}

func toStatusError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Errorf(codes.DeadlineExceeded, "llm inference timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return status.Errorf(codes.Canceled, "llm inference canceled: %v", err)
	}
	return status.Errorf(codes.Unavailable, "llm inference failed: %v", err)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

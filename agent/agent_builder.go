package agent

import (
	"time"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/metrics"
)

type AgentBuilder struct {
	config AgentConfig
}

func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{
		config: AgentConfig{
			MaxTokens:     800,
			Temperature:   0,
			MaxToolRounds: 1,
			LLMTimeout:    30 * time.Second,
		},
	}
}

func (b *AgentBuilder) WithBigModel(client llm.LLMClient) *AgentBuilder {
	b.config.BigModel = client
	return b
}

func (b *AgentBuilder) WithToolManagerFactory(fn func() *ToolManager) *AgentBuilder {
	b.config.NewToolManager = fn
	return b
}

func (b *AgentBuilder) WithSessionStore(store memory.SessionStore) *AgentBuilder {
	b.config.Sessions = store
	return b
}

func (b *AgentBuilder) WithMaxTokens(max int) *AgentBuilder {
	b.config.MaxTokens = max
	return b
}

func (b *AgentBuilder) WithTemperature(temp float64) *AgentBuilder {
	b.config.Temperature = temp
	return b
}

func (b *AgentBuilder) WithMaxToolRounds(rounds int) *AgentBuilder {
	b.config.MaxToolRounds = rounds
	return b
}

func (b *AgentBuilder) WithLLMTimeout(timeout time.Duration) *AgentBuilder {
	b.config.LLMTimeout = timeout
	return b
}

func (b *AgentBuilder) WithMetrics(m *metrics.Metrics) *AgentBuilder {
	b.config.Metrics = m
	return b
}

func (b *AgentBuilder) Build() *Agent {
	if b.config.Sessions == nil {
		b.config.Sessions = memory.NewInMemoryStore(memory.DefaultMaxHistory)
	}
	if b.config.NewToolManager == nil {
		b.config.NewToolManager = func() *ToolManager { return NewToolManager() }
	}
	if b.config.MaxToolRounds < 0 {
		b.config.MaxToolRounds = 0
	}

	return &Agent{config: b.config}
}

// Sessions returns the store holding conversation history.
func (a *Agent) Sessions() memory.SessionStore {
	return a.config.Sessions
}

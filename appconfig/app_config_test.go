package appconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.MaxResults)
	assert.Equal(t, 2, cfg.MaxHistory)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.Equal(t, time.Duration(0), cfg.SessionTTL())
	assert.Equal(t, 0.0, cfg.ResolveMaxDistance)
	require.NoError(t, cfg.Validate())
}

func TestApplyDefaultsKeepsValues(t *testing.T) {
	cfg := &AppConfig{ChunkSize: 400, LLMProvider: ProviderOllama, SessionTTLMinutes: 5}
	cfg.ApplyDefaults()

	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL())
}

func TestApplyDefaultsKeepsExplicitZero(t *testing.T) {
	cfg := Default()
	cfg.ChunkOverlap = 0
	cfg.MaxHistory = 0
	cfg.LLMTimeoutSeconds = 0
	cfg.ApplyDefaults()

	assert.Equal(t, 0, cfg.ChunkOverlap)
	assert.Equal(t, 0, cfg.MaxHistory)
	assert.Equal(t, time.Duration(0), cfg.LLMTimeout())
	require.NoError(t, cfg.Validate())

	// zero is not usable for these, so it still means unset
	cfg.ChunkSize = 0
	cfg.MaxResults = 0
	cfg.ApplyDefaults()
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 5, cfg.MaxResults)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		errMsg string
	}{
		{name: "llm provider", mutate: func(c *AppConfig) { c.LLMProvider = "openai" }, errMsg: `unknown llm_provider "openai"`},
		{name: "embedding provider", mutate: func(c *AppConfig) { c.EmbeddingProvider = "bert" }, errMsg: `unknown embedding_provider "bert"`},
		{name: "vector store", mutate: func(c *AppConfig) { c.VectorStore = "chroma" }, errMsg: `unknown vector_store "chroma"`},
		{name: "session store", mutate: func(c *AppConfig) { c.SessionStore = "mongo" }, errMsg: `unknown session_store "mongo"`},
		{name: "overlap", mutate: func(c *AppConfig) { c.ChunkOverlap = 800 }, errMsg: "chunk_overlap (800) must be smaller than chunk_size (800)"},
		{name: "negative overlap", mutate: func(c *AppConfig) { c.ChunkOverlap = -1 }, errMsg: "chunk_overlap must not be negative"},
		{name: "negative history", mutate: func(c *AppConfig) { c.MaxHistory = -1 }, errMsg: "max_history must not be negative"},
		{name: "negative timeout", mutate: func(c *AppConfig) { c.LLMTimeoutSeconds = -5 }, errMsg: "llm_timeout_seconds must not be negative"},
		{name: "distance", mutate: func(c *AppConfig) { c.ResolveMaxDistance = -1 }, errMsg: "resolve_max_distance must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.EqualError(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Default()

	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := cfg.APIKey()
	assert.EqualError(t, err, "ANTHROPIC_API_KEY is not set")

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	cfg.LLMProvider = ProviderOllama
	key, err = cfg.APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

package appconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	DocsPath     string `ini:"docs_path"`
	ChunkSize    int    `ini:"chunk_size"`
	ChunkOverlap int    `ini:"chunk_overlap"`
	MaxResults   int    `ini:"max_results"`
	MaxHistory   int    `ini:"max_history"`

	LLMProvider       string `ini:"llm_provider"`
	AnthropicModel    string `ini:"anthropic_model"`
	GroqModel         string `ini:"groq_model"`
	OllamaModel       string `ini:"ollama_model"`
	LLMMaxTokens      int    `ini:"llm_max_tokens"`
	LLMTimeoutSeconds int    `ini:"llm_timeout_seconds"`

	EmbeddingProvider string `ini:"embedding_provider"`
	EmbeddingModel    string `ini:"embedding_model"`

	VectorStore        string  `ini:"vector_store"`
	SqlitePath         string  `ini:"sqlite_path"`
	ResolveMaxDistance float64 `ini:"resolve_max_distance"`

	SessionStore      string `ini:"session_store"`
	RedisAddr         string `ini:"redis_addr"`
	RedisDB           int    `ini:"redis_db"`
	SessionTTLMinutes int    `ini:"session_ttl_minutes"`

	MetricsAddr string `ini:"metrics_addr"`
}

const (
	ProviderAnthropic = "anthropic"
	ProviderGroq      = "groq"
	ProviderOllama    = "ollama"

	EmbeddingOllama  = "ollama"
	EmbeddingHashing = "hashing"

	StoreMemory = "memory"
	StoreSqlite = "sqlite"
	StoreRedis  = "redis"
)

// Default returns the configuration used when config.ini leaves a key unset.
func Default() *AppConfig {
	cfg := &AppConfig{
		ChunkOverlap:      100,
		MaxHistory:        2,
		LLMTimeoutSeconds: 30,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values of keys where zero is not a usable
// setting. chunk_overlap, max_history and llm_timeout_seconds keep an
// explicit 0 (no overlap, no history, no timeout); Default seeds them.
func (c *AppConfig) ApplyDefaults() {
	setDefault(&c.DocsPath, "docs")
	setDefaultInt(&c.ChunkSize, 800)
	setDefaultInt(&c.MaxResults, 5)

	setDefault(&c.LLMProvider, ProviderAnthropic)
	setDefault(&c.AnthropicModel, "claude-sonnet-4-20250514")
	setDefault(&c.GroqModel, "llama-3.3-70b-versatile")
	setDefault(&c.OllamaModel, "llama3.1")
	setDefaultInt(&c.LLMMaxTokens, 800)

	setDefault(&c.EmbeddingProvider, EmbeddingHashing)
	setDefault(&c.EmbeddingModel, "nomic-embed-text")

	setDefault(&c.VectorStore, StoreSqlite)
	setDefault(&c.SqlitePath, "data/course_rag.db")

	setDefault(&c.SessionStore, StoreMemory)
	setDefault(&c.RedisAddr, "localhost:6379")
}

// Validate rejects unknown provider names and inconsistent sizes.
func (c *AppConfig) Validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderGroq, ProviderOllama:
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}
	switch c.EmbeddingProvider {
	case EmbeddingOllama, EmbeddingHashing:
	default:
		return fmt.Errorf("unknown embedding_provider %q", c.EmbeddingProvider)
	}
	switch c.VectorStore {
	case StoreMemory, StoreSqlite:
	default:
		return fmt.Errorf("unknown vector_store %q", c.VectorStore)
	}
	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown session_store %q", c.SessionStore)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative")
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("max_history must not be negative")
	}
	if c.LLMTimeoutSeconds < 0 {
		return fmt.Errorf("llm_timeout_seconds must not be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.ResolveMaxDistance < 0 {
		return fmt.Errorf("resolve_max_distance must not be negative")
	}
	return nil
}

func (c *AppConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// APIKey returns the key for hosted providers, read from the environment.
func (c *AppConfig) APIKey() (string, error) {
	var name string
	switch c.LLMProvider {
	case ProviderAnthropic:
		name = "ANTHROPIC_API_KEY"
	case ProviderGroq:
		name = "GROQ_API_KEY"
	default:
		return "", nil
	}

	key := os.Getenv(name)
	if key == "" {
		return "", fmt.Errorf("%s is not set", name)
	}
	return key, nil
}

// RedisPassword is read from REDIS_PASSWORD so it never lives in config.ini.
func (c *AppConfig) RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

// Load reads path (see go-api-boot config) over Default, so keys missing
// from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if err := config.LoadConfig(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func setDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setDefaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

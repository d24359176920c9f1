package rag

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/SaiNageswarS/course-rag/agent"
	"github.com/SaiNageswarS/course-rag/appconfig"
	"github.com/SaiNageswarS/course-rag/embed"
	"github.com/SaiNageswarS/course-rag/ingest"
	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/course-rag/memory"
	"github.com/SaiNageswarS/course-rag/metrics"
	"github.com/SaiNageswarS/course-rag/retrieval"
	"github.com/SaiNageswarS/course-rag/tools"
	"github.com/SaiNageswarS/course-rag/vectorstore"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Components lets callers replace collaborators built from config.
// Nil fields are built from the configuration.
type Components struct {
	Embedder embed.Embedder
	Store    vectorstore.Store
	LLM      llm.LLMClient
	Sessions memory.SessionStore
	Metrics  *metrics.Metrics
}

// NewFromConfig builds a System. The LLM client is only required for
// queries; when withLLM is false ingestion-only commands avoid API keys.
func NewFromConfig(ctx context.Context, cfg *appconfig.AppConfig, c Components, withLLM bool) (_ *System, err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			for _, cl := range closers {
				_ = cl.Close()
			}
		}
	}()

	if c.Embedder == nil {
		e, err := NewEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		c.Embedder = e
	}

	if c.Store == nil {
		s, err := NewVectorStore(cfg, c.Embedder)
		if err != nil {
			return nil, err
		}
		c.Store = s
		closers = append(closers, s)
	}

	index, err := retrieval.NewIndex(ctx, c.Store, retrieval.Options{
		MaxResults:         cfg.MaxResults,
		MaxResolveDistance: cfg.ResolveMaxDistance,
	})
	if err != nil {
		return nil, err
	}

	processor := ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)

	if !withLLM {
		return New(processor, index, nil, closers...), nil
	}

	if c.LLM == nil {
		client, err := NewLLMClient(cfg)
		if err != nil {
			return nil, err
		}
		c.LLM = client
	}

	if c.Sessions == nil {
		sessions, closer, err := NewSessionStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.Sessions = sessions
		if closer != nil {
			closers = append(closers, closer)
		}
	}

	ag := agent.NewAgentBuilder().
		WithBigModel(c.LLM).
		WithToolManagerFactory(func() *agent.ToolManager { return tools.NewToolManager(index) }).
		WithSessionStore(c.Sessions).
		WithMaxTokens(cfg.LLMMaxTokens).
		WithLLMTimeout(cfg.LLMTimeout()).
		WithMetrics(c.Metrics).
		Build()

	return New(processor, index, ag, closers...), nil
}

func NewEmbedder(cfg *appconfig.AppConfig) (embed.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case appconfig.EmbeddingOllama:
		return embed.NewOllamaEmbedder(cfg.EmbeddingModel)
	case appconfig.EmbeddingHashing:
		return embed.NewHashingEmbedder(embed.DefaultHashingDimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding_provider %q", cfg.EmbeddingProvider)
	}
}

// VectorStore is a vectorstore.Store that must be closed.
type VectorStore interface {
	vectorstore.Store
	io.Closer
}

func NewVectorStore(cfg *appconfig.AppConfig, embedder embed.Embedder) (VectorStore, error) {
	switch cfg.VectorStore {
	case appconfig.StoreMemory:
		return vectorstore.NewMemoryStore(embedder), nil
	case appconfig.StoreSqlite:
		return vectorstore.OpenSQLite(cfg.SqlitePath, embedder)
	default:
		return nil, fmt.Errorf("unknown vector_store %q", cfg.VectorStore)
	}
}

func NewLLMClient(cfg *appconfig.AppConfig) (llm.LLMClient, error) {
	key, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	switch cfg.LLMProvider {
	case appconfig.ProviderAnthropic:
		return llm.NewAnthropicClient(key, cfg.AnthropicModel), nil
	case appconfig.ProviderGroq:
		return llm.NewGroqClient(key, cfg.GroqModel), nil
	case appconfig.ProviderOllama:
		return llm.NewOllamaClient(cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unknown llm_provider %q", cfg.LLMProvider)
	}
}

// NewSessionStore returns the configured store and, for Redis, its closer.
func NewSessionStore(ctx context.Context, cfg *appconfig.AppConfig) (memory.SessionStore, io.Closer, error) {
	switch cfg.SessionStore {
	case appconfig.StoreMemory:
		return memory.NewInMemoryStore(cfg.MaxHistory), nil, nil
	case appconfig.StoreRedis:
		store := memory.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword(), cfg.RedisDB, cfg.MaxHistory, cfg.SessionTTL())

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("Using redis session store", zap.String("addr", cfg.RedisAddr))
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown session_store %q", cfg.SessionStore)
	}
}

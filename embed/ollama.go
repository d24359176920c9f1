package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/ollama/ollama/api"
)

const DefaultOllamaModel = "nomic-embed-text"

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	retry  llm.RetryPolicy
}

// NewOllamaEmbedder uses OLLAMA_HOST (default http://localhost:11434).
func NewOllamaEmbedder(model string) (*OllamaEmbedder, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return NewOllamaEmbedderWith(client, model), nil
}

func NewOllamaEmbedderWith(client *api.Client, model string) *OllamaEmbedder {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{client: client, model: model, retry: llm.DefaultRetryPolicy()}
}

func (e *OllamaEmbedder) Name() string { return "ollama:" + e.model }

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp *api.EmbedResponse
	err := e.retry.Do(ctx, func() error {
		var err error
		resp, err = e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})

		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return &llm.StatusError{StatusCode: statusErr.StatusCode, Body: statusErr.ErrorMessage}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", e.model, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed with %s: got %d vectors for %d inputs", e.model, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/pkg/utils"
)

// DefaultOllamaURL is used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaEmbedder requests embeddings from an Ollama server.
type OllamaEmbedder struct {
	client     *api.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.logger = utils.OrNop(l)
	}
}

// WithHTTPClient replaces the HTTP client used to reach Ollama.
func WithHTTPClient(hc *http.Client, baseURL *url.URL) OllamaOption {
	return func(e *OllamaEmbedder) {
		e.client = api.NewClient(baseURL, hc)
	}
}

// NewOllamaEmbedder creates an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, dimensions int, opts ...OllamaOption) (*OllamaEmbedder, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	e := &OllamaEmbedder{
		client:     api.NewClient(u, http.DefaultClient),
		model:      model,
		dimensions: dimensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed returns the normalized embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embeddings: empty vector for model %s", e.model)
	}
	if e.dimensions > 0 && len(resp.Embedding) != e.dimensions {
		e.logger.Warn("embedding dimension mismatch",
			zap.String("model", e.model),
			zap.Int("expected", e.dimensions),
			zap.Int("got", len(resp.Embedding)))
	}
	return utils.ToFloat32(resp.Embedding), nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}

package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"car-assist-rag/internal/config"
)

// Embedder is the embedding-service boundary: a pure text → vector call
// from the pipeline's perspective.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// GeminiEmbedder produces embeddings via the Gemini embedding model and
// enforces the configured dimensionality. A mismatch fails loudly; the
// vector is never padded or truncated.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	dimensions  int
	callTimeout time.Duration
}

func NewGeminiEmbedder(cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{
		client:      client,
		model:       cfg.EmbeddingsModel,
		dimensions:  cfg.VectorDimensions,
		callTimeout: time.Duration(cfg.CallTimeout) * time.Second,
	}, nil
}

func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	model := e.client.EmbeddingModel(e.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, Classify(ServiceEmbedding, err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, &ServiceError{
			Service: ServiceEmbedding,
			Kind:    KindUnknown,
			Err:     fmt.Errorf("no embedding returned"),
		}
	}
	if len(resp.Embedding.Values) != e.dimensions {
		return nil, &ServiceError{
			Service: ServiceEmbedding,
			Kind:    KindUnknown,
			Err: fmt.Errorf("unexpected embedding dimensions: got %d, want %d",
				len(resp.Embedding.Values), e.dimensions),
		}
	}

	return resp.Embedding.Values, nil
}

func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

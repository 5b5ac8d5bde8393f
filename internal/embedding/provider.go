// Package embedding implements the long-running worker that keeps every
// Title in storage backed by an embedding vector: it fetches titles lacking
// one, batches and deduplicates them, computes vectors off the scheduling
// goroutine through a remote provider guarded by a circuit breaker and
// retry policy, persists each result, and signals subscribers once a batch
// produced at least one new embedding.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"media-observer/internal/domain/entity"
	"media-observer/internal/resilience/circuitbreaker"
	"media-observer/internal/resilience/retry"
)

// Provider computes embedding vectors for a batch of input strings,
// returning one vector per input in the same order. Implementations are
// expected to be safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIProvider computes embeddings through the OpenAI embeddings API,
// wrapped in a circuit breaker and exponential-backoff retry exactly as the
// archive client wraps its own outbound calls.
type OpenAIProvider struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// NewOpenAIProvider constructs an OpenAIProvider for the given API key and
// model identifier (e.g. "text-embedding-3-large").
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClient(apiKey),
		model:   openai.EmbeddingModel(model),
		breaker: circuitbreaker.New(circuitbreaker.EmbeddingProviderConfig()),
		retry:   retry.EmbeddingProviderConfig(),
	}
}

// Embed computes one vector per text, preserving input order.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	retryErr := retry.WithBackoff(ctx, p.retry, func() error {
		result, err := p.breaker.Execute(func() (interface{}, error) {
			return p.doEmbed(ctx, texts)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("embedding provider unavailable: circuit breaker open")
			}
			return err
		}
		vectors = result.([][]float32)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("embed batch: %w", retryErr)
	}
	return vectors, nil
}

func (p *OpenAIProvider) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings api: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings api: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) != entity.Dimension {
			return nil, fmt.Errorf("openai embeddings api: vector %d has dimension %d, want %d", i, len(v), entity.Dimension)
		}
	}
	return vectors, nil
}

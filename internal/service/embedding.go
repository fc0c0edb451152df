package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
)

// EmbeddingClient defines the capability contract required of any embedding
// provider.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

const defaultEmbeddingTimeout = 30 * time.Second

// EmbeddingGateway is the sole path to vector embeddings. It caches vectors
// keyed by normalized text so identical content is never re-embedded. On
// provider failure it surfaces a typed error; it never substitutes a zero
// vector or heuristic fallback.
type EmbeddingGateway struct {
	client  EmbeddingClient
	timeout time.Duration

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewEmbeddingGateway creates a gateway with the default per-call timeout.
func NewEmbeddingGateway(client EmbeddingClient) *EmbeddingGateway {
	return NewEmbeddingGatewayWithTimeout(client, defaultEmbeddingTimeout)
}

// NewEmbeddingGatewayWithTimeout creates a gateway with an explicit timeout
// bounding every external embedding call.
func NewEmbeddingGatewayWithTimeout(client EmbeddingClient, timeout time.Duration) *EmbeddingGateway {
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}
	return &EmbeddingGateway{
		client:  client,
		timeout: timeout,
		cache:   make(map[string][]float32),
	}
}

// Embed returns the vector for text, from cache when the normalized text was
// embedded before.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	key := normalizeText(text)
	if key == "" {
		return nil, domain.ErrMissingRequiredField
	}

	if vec, ok := g.lookup(key); ok {
		return vec, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vec, err := g.client.CreateEmbedding(callCtx, text)
	if err != nil {
		return nil, wrapProviderError(err)
	}

	return copyVector(g.store(key, vec)), nil
}

// EmbedBatch returns vectors positionally matching texts. Only the cache
// miss subset is submitted to the provider; results are recombined in the
// original order.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := normalizeText(text)
		if key == "" {
			return nil, domain.ErrMissingRequiredField
		}
		if vec, ok := g.lookup(key); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		vectors, err := g.client.CreateEmbeddings(callCtx, missTexts)
		if err != nil {
			return nil, wrapProviderError(err)
		}
		if len(vectors) != len(missTexts) {
			return nil, domain.NewDomainError(domain.ErrCodeEmbeddingFailed, "provider returned wrong number of vectors")
		}

		for pos, i := range missIdx {
			key := normalizeText(texts[i])
			out[i] = copyVector(g.store(key, vectors[pos]))
		}
	}

	return out, nil
}

// ClearCache drops all cached vectors. Required after a model upgrade or any
// change that invalidates existing vectors.
func (g *EmbeddingGateway) ClearCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[string][]float32)
}

// CacheSize returns the number of cached vectors.
func (g *EmbeddingGateway) CacheSize() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

func (g *EmbeddingGateway) lookup(key string) ([]float32, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	vec, ok := g.cache[key]
	if !ok {
		return nil, false
	}
	return copyVector(vec), true
}

// store inserts with insert-if-absent semantics: concurrent embeds of the
// same text converge to one cached vector.
func (g *EmbeddingGateway) store(key string, vec []float32) []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.cache[key]; ok {
		return existing
	}
	g.cache[key] = vec
	return vec
}

// normalizeText lowercases and collapses whitespace to form the cache key.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func copyVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}

func wrapProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed, "embedding request timed out", err)
	}
	return domain.WrapEmbeddingError(err)
}

package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/telemetry"
)

const (
	semanticWeight = 0.8
	categoryWeight = 0.1
	tagWeight      = 0.1

	// categoryBaseline avoids over-penalizing relevant off-category matches.
	categoryBaseline = 0.3

	defaultMaxResults = 5
	defaultMinScore   = 0.3
)

// intentCategoryMap translates upstream intent labels into the knowledge
// category they target.
var intentCategoryMap = map[string]domain.Category{
	"faq_general":     domain.CategoryGeneral,
	"faq_pricing":     domain.CategoryPricing,
	"faq_billing":     domain.CategoryPricing,
	"faq_support":     domain.CategorySupport,
	"faq_technical":   domain.CategorySupport,
	"faq_product":     domain.CategoryProductInfo,
	"product_inquiry": domain.CategoryProductInfo,
	"pricing_inquiry": domain.CategoryPricing,
	"sales_inquiry":   domain.CategoryPricing,
	"support_request": domain.CategorySupport,
}

// SearchRequest describes one retrieval query.
type SearchRequest struct {
	Query      string
	Intent     string
	MaxResults int
	MinScore   float64
}

// SearchResponse carries the ranked, filtered results for one query.
type SearchResponse struct {
	Items        []domain.RelevanceResult
	TotalFound   int
	SearchQuery  string
	SearchTimeMs int64
}

// EmbeddingGatewayInterface defines the gateway surface the engine needs.
type EmbeddingGatewayInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RelevanceEngine ranks candidate knowledge items against a query and an
// inferred intent. Scoring is pure semantic similarity plus small heuristic
// nudges; when the embedding step fails the engine fails with it rather than
// degrading to lexical matching.
type RelevanceEngine struct {
	gateway EmbeddingGatewayInterface
}

// NewRelevanceEngine creates a RelevanceEngine instance
func NewRelevanceEngine(gateway EmbeddingGatewayInterface) *RelevanceEngine {
	return &RelevanceEngine{gateway: gateway}
}

// Search returns the top MaxResults candidates scoring at or above MinScore,
// sorted descending, ties broken by candidate order. An empty candidate set
// returns an empty response without error.
func (e *RelevanceEngine) Search(ctx context.Context, req SearchRequest, candidates []domain.KnowledgeItem) (*SearchResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "RelevanceEngine.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	// Items without content are excluded upstream; skip defensively rather
	// than zero-scoring them.
	scored := make([]domain.KnowledgeItem, 0, len(candidates))
	for _, item := range candidates {
		if strings.TrimSpace(item.Content) != "" {
			scored = append(scored, item)
		}
	}

	if len(scored) == 0 {
		return &SearchResponse{
			Items:        []domain.RelevanceResult{},
			TotalFound:   0,
			SearchQuery:  query,
			SearchTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	queryVec, err := e.gateway.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	vectors, err := e.itemVectors(ctx, scored)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var results []domain.RelevanceResult
	for i, item := range scored {
		score := semanticWeight*cosineSimilarity(queryVec, vectors[i]) +
			categoryWeight*categoryAffinity(req.Intent, item.Category) +
			tagWeight*tagOverlap(query, item.Tags)
		score = clamp01(score)

		if score >= minScore {
			results = append(results, domain.RelevanceResult{Item: item, Score: score})
		}
	}

	// Stable sort keeps candidate order deterministic on score ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	totalFound := len(results)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if results == nil {
		results = []domain.RelevanceResult{}
	}

	return &SearchResponse{
		Items:        results,
		TotalFound:   totalFound,
		SearchQuery:  query,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// SearchRequired is the "must return something" variant: when no item meets
// the threshold it fails with a typed error so the caller sees the absence
// of grounding content instead of producing an ungrounded reply.
func (e *RelevanceEngine) SearchRequired(ctx context.Context, req SearchRequest, candidates []domain.KnowledgeItem) (*SearchResponse, error) {
	resp, err := e.Search(ctx, req, candidates)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, domain.ErrNoRelevantKnowledge
	}
	return resp, nil
}

// itemVectors resolves the embedding for every candidate, batch-embedding
// only the ones without a stored vector. The gateway cache keeps this
// idempotent across queries.
func (e *RelevanceEngine) itemVectors(ctx context.Context, items []domain.KnowledgeItem) ([][]float32, error) {
	vectors := make([][]float32, len(items))
	var missIdx []int
	var missTexts []string

	for i, item := range items {
		if len(item.Embedding) > 0 {
			vectors[i] = item.Embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, ItemEmbeddingText(item))
	}

	if len(missTexts) > 0 {
		embedded, err := e.gateway.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for pos, i := range missIdx {
			vectors[i] = embedded[pos]
		}
	}

	return vectors, nil
}

// ItemEmbeddingText concatenates title, content, tags and category so tags
// act as semantic anchors, not just filters.
func ItemEmbeddingText(item domain.KnowledgeItem) string {
	parts := []string{item.Title, item.Content}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags, " "))
	}
	parts = append(parts, string(item.Category))
	return strings.Join(parts, "\n")
}

// cosineSimilarity bounds the result to [0,1]; opposed vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// categoryAffinity scores 1.0 when the intent maps to the item's category,
// else a low baseline.
func categoryAffinity(intent string, category domain.Category) float64 {
	mapped, ok := intentCategoryMap[strings.ToLower(strings.TrimSpace(intent))]
	if ok && mapped == category {
		return 1.0
	}
	return categoryBaseline
}

// tagOverlap is the fraction of the item's tags appearing as substrings of
// the query or vice versa, case-insensitive.
func tagOverlap(query string, tags []string) float64 {
	if len(tags) == 0 {
		return 0
	}
	queryLower := strings.ToLower(query)
	matched := 0
	for _, tag := range tags {
		tagLower := strings.ToLower(strings.TrimSpace(tag))
		if tagLower == "" {
			continue
		}
		if strings.Contains(queryLower, tagLower) || strings.Contains(tagLower, queryLower) {
			matched++
		}
	}
	return float64(matched) / float64(len(tags))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

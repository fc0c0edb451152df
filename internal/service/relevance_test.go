package service

import (
	"context"
	"testing"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRelevanceGateway mocks the embedding gateway for the engine
type MockRelevanceGateway struct {
	mock.Mock
}

func (m *MockRelevanceGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockRelevanceGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestRelevanceEngine_Search_EmptyQuery(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	_, err := engine.Search(context.Background(), SearchRequest{Query: "   "}, nil)

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	mockGateway.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestRelevanceEngine_Search_EmptyCandidates(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "anything"}, nil)

	assert.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.TotalFound)
	assert.Equal(t, "anything", resp.SearchQuery)
	mockGateway.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestRelevanceEngine_Search_RanksBySimilarity(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)
	ctx := context.Background()

	near := domain.KnowledgeItem{ID: "near", Title: "Near", Content: "close match", Category: domain.CategoryGeneral, Embedding: []float32{1, 0, 0}}
	far := domain.KnowledgeItem{ID: "far", Title: "Far", Content: "weak match", Category: domain.CategoryGeneral, Embedding: []float32{0.5, 0.5, 0}}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0, 0}, nil)

	resp, err := engine.Search(ctx, SearchRequest{Query: "query"}, []domain.KnowledgeItem{far, near})

	assert.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "near", resp.Items[0].Item.ID)
	assert.Equal(t, "far", resp.Items[1].Item.ID)
	assert.Greater(t, resp.Items[0].Score, resp.Items[1].Score)
	// Stored embeddings mean no batch embedding call.
	mockGateway.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestRelevanceEngine_Search_IntentBoostsMatchingCategory(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	pricing := domain.KnowledgeItem{ID: "pricing", Title: "Plans", Content: "plan details", Category: domain.CategoryPricing, Embedding: []float32{1, 0}}
	support := domain.KnowledgeItem{ID: "support", Title: "Help", Content: "help details", Category: domain.CategorySupport, Embedding: []float32{1, 0}}

	mockGateway.On("Embed", mock.Anything, "how much does it cost").Return([]float32{1, 0}, nil)

	resp, err := engine.Search(context.Background(),
		SearchRequest{Query: "how much does it cost", Intent: "pricing_inquiry"},
		[]domain.KnowledgeItem{support, pricing})

	assert.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "pricing", resp.Items[0].Item.ID)
	// Identical semantics, so the gap is exactly the category affinity delta.
	assert.InDelta(t, 0.07, resp.Items[0].Score-resp.Items[1].Score, 1e-9)
}

func TestRelevanceEngine_Search_MinScoreFilters(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	orthogonal := domain.KnowledgeItem{ID: "off-topic", Title: "Other", Content: "unrelated", Category: domain.CategoryGeneral, Embedding: []float32{0, 1}}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "query"}, []domain.KnowledgeItem{orthogonal})

	assert.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.TotalFound)
}

func TestRelevanceEngine_Search_MaxResultsTruncates(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	var candidates []domain.KnowledgeItem
	for _, id := range []string{"a", "b", "c"} {
		candidates = append(candidates, domain.KnowledgeItem{
			ID: id, Title: id, Content: "content " + id,
			Category: domain.CategoryGeneral, Embedding: []float32{1, 0},
		})
	}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "query", MaxResults: 2}, candidates)

	assert.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.TotalFound)
}

func TestRelevanceEngine_Search_TiesKeepCandidateOrder(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	var candidates []domain.KnowledgeItem
	for _, id := range []string{"first", "second", "third"} {
		candidates = append(candidates, domain.KnowledgeItem{
			ID: id, Title: id, Content: "identical scoring content",
			Category: domain.CategoryGeneral, Embedding: []float32{1, 0},
		})
	}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "query"}, candidates)

	assert.NoError(t, err)
	assert.Len(t, resp.Items, 3)
	assert.Equal(t, "first", resp.Items[0].Item.ID)
	assert.Equal(t, "second", resp.Items[1].Item.ID)
	assert.Equal(t, "third", resp.Items[2].Item.ID)
}

func TestRelevanceEngine_Search_EmbedsMissingVectors(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	stored := domain.KnowledgeItem{ID: "stored", Title: "Stored", Content: "has vector", Category: domain.CategoryGeneral, Embedding: []float32{1, 0}}
	missing := domain.KnowledgeItem{ID: "missing", Title: "Missing", Content: "no vector", Category: domain.CategoryGeneral, Tags: []string{"tag"}}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0}, nil)
	mockGateway.On("EmbedBatch", mock.Anything, []string{ItemEmbeddingText(missing)}).
		Return([][]float32{{1, 0}}, nil)

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "query"}, []domain.KnowledgeItem{stored, missing})

	assert.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	mockGateway.AssertExpectations(t)
}

func TestRelevanceEngine_Search_EmbeddingFailurePropagates(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	item := domain.KnowledgeItem{ID: "a", Title: "A", Content: "content", Category: domain.CategoryGeneral}
	providerErr := domain.ErrEmbeddingUnavailable

	mockGateway.On("Embed", mock.Anything, "query").Return(nil, providerErr)

	_, err := engine.Search(context.Background(), SearchRequest{Query: "query"}, []domain.KnowledgeItem{item})

	assert.ErrorIs(t, err, providerErr)
}

func TestRelevanceEngine_SearchRequired_NoResults(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	orthogonal := domain.KnowledgeItem{ID: "a", Title: "A", Content: "content", Category: domain.CategoryGeneral, Embedding: []float32{0, 1}}

	mockGateway.On("Embed", mock.Anything, "query").Return([]float32{1, 0}, nil)

	_, err := engine.SearchRequired(context.Background(), SearchRequest{Query: "query"}, []domain.KnowledgeItem{orthogonal})

	assert.ErrorIs(t, err, domain.ErrNoRelevantKnowledge)
}

func TestRelevanceEngine_Search_SkipsEmptyContent(t *testing.T) {
	mockGateway := new(MockRelevanceGateway)
	engine := NewRelevanceEngine(mockGateway)

	empty := domain.KnowledgeItem{ID: "empty", Title: "Empty", Content: "   ", Category: domain.CategoryGeneral}

	resp, err := engine.Search(context.Background(), SearchRequest{Query: "query"}, []domain.KnowledgeItem{empty})

	assert.NoError(t, err)
	assert.Empty(t, resp.Items)
	mockGateway.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestItemEmbeddingText(t *testing.T) {
	item := domain.KnowledgeItem{
		Title:    "Shipping",
		Content:  "We ship worldwide.",
		Tags:     []string{"shipping", "delivery"},
		Category: domain.CategoryGeneral,
	}

	assert.Equal(t, "Shipping\nWe ship worldwide.\nshipping delivery\ngeneral", ItemEmbeddingText(item))

	bare := domain.KnowledgeItem{Title: "T", Content: "C", Category: domain.CategoryFAQ}
	assert.Equal(t, "T\nC\nfaq", ItemEmbeddingText(bare))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	// Opposed vectors clamp to zero rather than going negative.
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestTagOverlap(t *testing.T) {
	assert.Equal(t, 0.0, tagOverlap("query", nil))
	assert.Equal(t, 1.0, tagOverlap("what is the shipping cost", []string{"shipping"}))
	assert.Equal(t, 0.5, tagOverlap("what is the shipping cost", []string{"shipping", "returns"}))
}

func TestCategoryAffinity(t *testing.T) {
	assert.Equal(t, 1.0, categoryAffinity("pricing_inquiry", domain.CategoryPricing))
	assert.Equal(t, 1.0, categoryAffinity("  Faq_Support ", domain.CategorySupport))
	assert.Equal(t, categoryBaseline, categoryAffinity("pricing_inquiry", domain.CategorySupport))
	assert.Equal(t, categoryBaseline, categoryAffinity("", domain.CategoryGeneral))
}

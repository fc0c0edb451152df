package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingClient mocks the embedding provider client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestEmbeddingGateway_Embed_CachesByNormalizedText(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)

	ctx := context.Background()
	vec := []float32{0.1, 0.2, 0.3}

	mockClient.On("CreateEmbedding", mock.Anything, "Hello World").Return(vec, nil).Once()

	first, err := gateway.Embed(ctx, "Hello World")
	assert.NoError(t, err)
	assert.Equal(t, vec, first)

	// Different casing and spacing normalize to the same cache key.
	second, err := gateway.Embed(ctx, "  hello   WORLD ")
	assert.NoError(t, err)
	assert.Equal(t, vec, second)

	assert.Equal(t, 1, gateway.CacheSize())
	mockClient.AssertExpectations(t)
	mockClient.AssertNumberOfCalls(t, "CreateEmbedding", 1)
}

func TestEmbeddingGateway_Embed_EmptyText(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)

	_, err := gateway.Embed(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	mockClient.AssertNotCalled(t, "CreateEmbedding", mock.Anything, mock.Anything)
}

func TestEmbeddingGateway_Embed_ProviderFailure(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)

	providerErr := errors.New("rate limited")
	mockClient.On("CreateEmbedding", mock.Anything, "pricing question").Return(nil, providerErr)

	_, err := gateway.Embed(context.Background(), "pricing question")

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingFailed, domainErr.Code)
	assert.ErrorIs(t, err, providerErr)
	assert.Equal(t, 0, gateway.CacheSize())
}

func TestEmbeddingGateway_Embed_TimeoutIsTyped(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGatewayWithTimeout(mockClient, 10*time.Millisecond)

	mockClient.On("CreateEmbedding", mock.Anything, "slow").Return(nil, context.DeadlineExceeded)

	_, err := gateway.Embed(context.Background(), "slow")

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingFailed, domainErr.Code)
	assert.Contains(t, domainErr.Message, "timed out")
}

func TestEmbeddingGateway_EmbedBatch_MissSubsetOnly(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)
	ctx := context.Background()

	cached := []float32{1, 0}
	mockClient.On("CreateEmbedding", mock.Anything, "beta").Return(cached, nil).Once()
	_, err := gateway.Embed(ctx, "beta")
	assert.NoError(t, err)

	// Only the two uncached texts reach the provider; results must land back
	// in the original positions.
	mockClient.On("CreateEmbeddings", mock.Anything, []string{"alpha", "gamma"}).
		Return([][]float32{{0, 1}, {0.5, 0.5}}, nil).Once()

	vectors, err := gateway.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})

	assert.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 1}, vectors[0])
	assert.Equal(t, cached, vectors[1])
	assert.Equal(t, []float32{0.5, 0.5}, vectors[2])
	assert.Equal(t, 3, gateway.CacheSize())
	mockClient.AssertExpectations(t)
}

func TestEmbeddingGateway_EmbedBatch_AllCachedSkipsProvider(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)
	ctx := context.Background()

	mockClient.On("CreateEmbeddings", mock.Anything, []string{"a", "b"}).
		Return([][]float32{{1}, {2}}, nil).Once()

	_, err := gateway.EmbedBatch(ctx, []string{"a", "b"})
	assert.NoError(t, err)

	vectors, err := gateway.EmbedBatch(ctx, []string{"b", "a"})
	assert.NoError(t, err)
	assert.Equal(t, []float32{2}, vectors[0])
	assert.Equal(t, []float32{1}, vectors[1])

	mockClient.AssertNumberOfCalls(t, "CreateEmbeddings", 1)
}

func TestEmbeddingGateway_EmbedBatch_Empty(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)

	vectors, err := gateway.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vectors)
	mockClient.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestEmbeddingGateway_EmbedBatch_WrongVectorCount(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)

	mockClient.On("CreateEmbeddings", mock.Anything, []string{"a", "b"}).
		Return([][]float32{{1}}, nil)

	_, err := gateway.EmbedBatch(context.Background(), []string{"a", "b"})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingFailed, domainErr.Code)
}

func TestEmbeddingGateway_ClearCache(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)
	ctx := context.Background()

	mockClient.On("CreateEmbedding", mock.Anything, "text").Return([]float32{1}, nil).Twice()

	_, err := gateway.Embed(ctx, "text")
	assert.NoError(t, err)
	assert.Equal(t, 1, gateway.CacheSize())

	gateway.ClearCache()
	assert.Equal(t, 0, gateway.CacheSize())

	// Re-embedding after a cache clear hits the provider again.
	_, err = gateway.Embed(ctx, "text")
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingGateway_Embed_ReturnsCopy(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	gateway := NewEmbeddingGateway(mockClient)
	ctx := context.Background()

	mockClient.On("CreateEmbedding", mock.Anything, "text").Return([]float32{1, 2}, nil).Once()

	first, err := gateway.Embed(ctx, "text")
	assert.NoError(t, err)
	first[0] = 99

	second, err := gateway.Embed(ctx, "text")
	assert.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, second)
}

//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/pagination"
	"github.com/quillbase-ai/quillbase/internal/service"
	"github.com/quillbase-ai/quillbase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItem(id string, updated time.Time, withEmbedding bool) domain.KnowledgeItem {
	item := domain.KnowledgeItem{
		ID:          id,
		Title:       "Title " + id,
		Content:     "Content for " + id,
		Category:    domain.CategoryFAQ,
		Tags:        []string{"tag-" + id},
		Source:      domain.SourceFAQ,
		ContentHash: service.ContentHash("Title "+id, "Content for "+id, domain.SourceFAQ),
		LastUpdated: updated,
	}
	if withEmbedding {
		item.Embedding = make([]float32, 1536)
		item.Embedding[0] = 1
	}
	return item
}

func TestKnowledgeRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("store and list", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		items := []domain.KnowledgeItem{
			seedItem("faq_a", now.Add(-2*time.Hour), true),
			seedItem("faq_b", now.Add(-time.Hour), false),
		}
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", items))

		listed, err := repo.ListByOrgConfig(ctx, "org-1", "default")
		require.NoError(t, err)
		require.Len(t, listed, 2)
		// Newest first.
		assert.Equal(t, "faq_b", listed[0].ID)
		assert.Empty(t, listed[0].Embedding)
		assert.Equal(t, "faq_a", listed[1].ID)
		assert.Len(t, listed[1].Embedding, 1536)
		assert.Equal(t, []string{"tag-faq_a"}, listed[1].Tags)

		// Other scopes see nothing.
		other, err := repo.ListByOrgConfig(ctx, "org-2", "default")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("upsert replaces changed content", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		item := seedItem("faq_a", now, false)
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", []domain.KnowledgeItem{item}))

		exists, err := repo.KnowledgeItemExists(ctx, "org-1", "default", item.ID, item.ContentHash)
		require.NoError(t, err)
		assert.True(t, exists)

		item.Content = "Revised content"
		item.ContentHash = service.ContentHash(item.Title, item.Content, item.Source)
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", []domain.KnowledgeItem{item}))

		listed, err := repo.ListByOrgConfig(ctx, "org-1", "default")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Revised content", listed[0].Content)

		// Old hash no longer matches.
		exists, err = repo.KnowledgeItemExists(ctx, "org-1", "default", item.ID, "stale-hash")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("delete by source", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		crawled := seedItem("crawl_a", now, false)
		crawled.Source = domain.SourceCrawled
		crawled.SourceURL = "https://acme.example/a"
		faq := seedItem("faq_a", now, false)
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", []domain.KnowledgeItem{crawled, faq}))

		deleted, err := repo.DeleteKnowledgeItemsBySource(ctx, "org-1", "default", domain.SourceCrawled, "https://acme.example/a")
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		listed, err := repo.ListByOrgConfig(ctx, "org-1", "default")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "faq_a", listed[0].ID)
	})

	t.Run("cursor pagination", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		var items []domain.KnowledgeItem
		for i := 0; i < 5; i++ {
			items = append(items, seedItem(fmt.Sprintf("faq_%02d", i), now.Add(time.Duration(-i)*time.Minute), false))
		}
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", items))

		page1, err := repo.ListWithCursor(ctx, "org-1", "default", nil, 2)
		require.NoError(t, err)
		assert.Len(t, page1.Items, 2)
		assert.True(t, page1.HasMore)
		assert.NotEmpty(t, page1.NextCursor)

		cursor, err := pagination.DecodeCursor(page1.NextCursor)
		require.NoError(t, err)

		page2, err := repo.ListWithCursor(ctx, "org-1", "default", cursor, 2)
		require.NoError(t, err)
		assert.Len(t, page2.Items, 2)
		assert.True(t, page2.HasMore)
		// No overlap between pages.
		assert.NotEqual(t, page1.Items[1].ID, page2.Items[0].ID)

		cursor, err = pagination.DecodeCursor(page2.NextCursor)
		require.NoError(t, err)

		page3, err := repo.ListWithCursor(ctx, "org-1", "default", cursor, 2)
		require.NoError(t, err)
		assert.Len(t, page3.Items, 1)
		assert.False(t, page3.HasMore)
		assert.Empty(t, page3.NextCursor)
	})

	t.Run("embedding backfill", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		withVec := seedItem("faq_has", now, true)
		withoutVec := seedItem("faq_missing", now.Add(-time.Hour), false)
		require.NoError(t, repo.StoreKnowledgeItems(ctx, "org-1", "default", []domain.KnowledgeItem{withVec, withoutVec}))

		pending, err := repo.ListMissingEmbeddings(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "faq_missing", pending[0].Item.ID)
		assert.Equal(t, "org-1", pending[0].OrgID)
		assert.Equal(t, "default", pending[0].ConfigID)

		vec := make([]float32, 1536)
		vec[0] = 0.5
		require.NoError(t, repo.UpdateEmbedding(ctx, "org-1", "default", "faq_missing", vec))

		pending, err = repo.ListMissingEmbeddings(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		err = repo.UpdateEmbedding(ctx, "org-1", "default", "faq_ghost", vec)
		assert.ErrorIs(t, err, domain.ErrKnowledgeItemNotFound)
	})
}

func TestSearchLogRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	entry := service.SearchLogEntry{
		OrgID:        "org-1",
		ConfigID:     "default",
		Query:        "what are the plans",
		Intent:       "pricing_inquiry",
		ResultCount:  3,
		TopScore:     0.91,
		DurationMs:   42,
		RequiredMode: true,
	}
	require.NoError(t, repo.RecordSearch(ctx, entry))

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM search_logs WHERE org_id = $1 AND required_mode`, "org-1").Scan(&count))
	assert.Equal(t, 1, count)
}

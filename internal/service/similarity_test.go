package service

import (
	"testing"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	hash := ContentHash("Title", "Content", "faq")

	assert.Len(t, hash, 16)
	assert.Equal(t, hash, ContentHash("Title", "Content", "faq"))
	assert.NotEqual(t, hash, ContentHash("Title", "Content", "document"))
	assert.NotEqual(t, hash, ContentHash("Title", "Changed", "faq"))
}

func TestFindExactDuplicates(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", ContentHash: "hash1"},
		{ID: "b", ContentHash: "hash2"},
		{ID: "c", ContentHash: "hash1"},
		{ID: "d", ContentHash: "hash3"},
		{ID: "e", ContentHash: "hash3"},
	}

	groups := FindExactDuplicates(items)

	assert.Len(t, groups, 2)
	// Groups come out in first-seen order.
	assert.Equal(t, "hash1", groups[0].ContentHash)
	assert.Equal(t, "a", groups[0].Items[0].ID)
	assert.Equal(t, "c", groups[0].Items[1].ID)
	assert.Equal(t, "hash3", groups[1].ContentHash)
}

func TestFindExactDuplicates_ComputesMissingHashes(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", Title: "Same", Content: "Body", Source: "faq"},
		{ID: "b", Title: "Same", Content: "Body", Source: "faq"},
	}

	groups := FindExactDuplicates(items)

	assert.Len(t, groups, 1)
	assert.Len(t, groups[0].Items, 2)
}

func TestFindExactDuplicates_NoDuplicates(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", ContentHash: "hash1"},
		{ID: "b", ContentHash: "hash2"},
	}

	assert.Empty(t, FindExactDuplicates(items))
	assert.Empty(t, FindExactDuplicates(nil))
}

func TestFindNearDuplicates(t *testing.T) {
	twins := []domain.KnowledgeItem{
		{ID: "a", Title: "Shipping rates explained", Content: "Orders ship worldwide within five business days guaranteed", Tags: []string{"shipping"}},
		{ID: "b", Title: "Shipping rates explained", Content: "Orders ship worldwide within five business days guaranteed", Tags: []string{"shipping"}},
		{ID: "c", Title: "Refund policy", Content: "Customers receive refunds after returning unopened packaging promptly", Tags: []string{"refunds"}},
	}

	pairs := FindNearDuplicates(twins, DefaultNearDuplicateThreshold)

	assert.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A.ID)
	assert.Equal(t, "b", pairs[0].B.ID)
	assert.InDelta(t, 1.0, pairs[0].Similarity, 1e-9)
}

func TestFindNearDuplicates_DisjointContent(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", Title: "Alpha", Content: "completely different subject matter here"},
		{ID: "b", Title: "Beta", Content: "nothing shared with the first entry whatsoever"},
	}

	assert.Empty(t, FindNearDuplicates(items, DefaultNearDuplicateThreshold))
}

func TestClusterItems(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", Title: "Shipping info", Content: "Orders ship worldwide within five business days", Tags: []string{"shipping"}},
		{ID: "b", Title: "Shipping info", Content: "Orders ship worldwide within five business days", Tags: []string{"shipping"}},
		{ID: "c", Title: "Shipping info", Content: "Orders ship worldwide within five business days", Tags: []string{"shipping"}},
		{ID: "d", Title: "Careers", Content: "Open engineering positions across three offices", Tags: []string{"jobs"}},
	}

	clusters := ClusterItems(items, DefaultClusterThreshold)

	assert.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Items, 3)
	assert.Equal(t, "a", clusters[0].Items[0].ID)
	assert.InDelta(t, 1.0, clusters[0].AvgPairSim, 1e-9)
}

func TestClusterItems_SoloItemsExcluded(t *testing.T) {
	items := []domain.KnowledgeItem{
		{ID: "a", Title: "Alpha", Content: "entirely unique subject matter one"},
		{ID: "b", Title: "Beta", Content: "wholly separate discussion topic two"},
	}

	assert.Empty(t, ClusterItems(items, DefaultClusterThreshold))
}

func TestCombinedSimilarity(t *testing.T) {
	a := domain.KnowledgeItem{Title: "Shipping policy", Content: "Orders ship worldwide quickly", Tags: []string{"shipping"}}
	b := domain.KnowledgeItem{Title: "Shipping policy", Content: "Orders ship worldwide quickly", Tags: []string{"shipping"}}

	assert.InDelta(t, 1.0, CombinedSimilarity(a, b), 1e-9)

	c := domain.KnowledgeItem{Title: "Careers page", Content: "Open positions listed below", Tags: []string{"jobs"}}
	assert.Less(t, CombinedSimilarity(a, c), 0.1)
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"one": {}, "two": {}}
	b := map[string]struct{}{"two": {}, "three": {}}

	assert.InDelta(t, 1.0/3.0, jaccard(a, b), 1e-9)
	assert.Equal(t, 0.0, jaccard(nil, nil))
	assert.Equal(t, 0.0, jaccard(a, nil))
}

func TestWordSet(t *testing.T) {
	set := wordSet("The Quick, brown fox!")

	assert.Contains(t, set, "the")
	assert.Contains(t, set, "quick")
	assert.Contains(t, set, "brown")
	assert.Contains(t, set, "fox")
	// Words of two characters or fewer are dropped.
	assert.NotContains(t, wordSet("an ox"), "an")
	assert.NotContains(t, wordSet("an ox"), "ox")
}

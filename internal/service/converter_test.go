package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/stretchr/testify/assert"
)

func testMeta() domain.SourceMeta {
	return domain.SourceMeta{
		OrgID:       "org-1",
		ConfigID:    "default",
		CompanyName: "Acme",
		RetrievedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestConverter_ConvertFAQs(t *testing.T) {
	converter := NewConverter()

	entries := []domain.FAQEntry{
		{ID: "faq-1", Question: "How much does it cost?", Answer: "Twenty dollars a month.", Category: "billing", Keywords: []string{"Price", "price", " plans "}},
		{ID: "faq-2", Question: "What is the refund window?", Answer: "Thirty days.", Category: "mystery"},
	}

	result := converter.ConvertFAQs(entries, testMeta())

	assert.Len(t, result.Items, 2)
	assert.Empty(t, result.Warnings)

	first := result.Items[0]
	assert.Equal(t, "How much does it cost?", first.Title)
	assert.Equal(t, "How much does it cost?\n\nTwenty dollars a month.", first.Content)
	assert.Equal(t, domain.CategoryPricing, first.Category)
	assert.Equal(t, []string{"price", "plans"}, first.Tags)
	assert.Equal(t, domain.SourceFAQ, first.Source)
	assert.Equal(t, testMeta().RetrievedAt, first.LastUpdated)
	assert.NotEmpty(t, first.ContentHash)

	// Unmapped categories land in the FAQ bucket, not general.
	assert.Equal(t, domain.CategoryFAQ, result.Items[1].Category)
}

func TestConverter_ConvertFAQs_SkipsIncompleteEntries(t *testing.T) {
	converter := NewConverter()

	entries := []domain.FAQEntry{
		{ID: "faq-1", Question: "Orphan question?", Answer: "   "},
		{ID: "faq-2", Question: "", Answer: "Orphan answer."},
		{ID: "faq-3", Question: "Valid?", Answer: "Yes."},
	}

	result := converter.ConvertFAQs(entries, testMeta())

	assert.Len(t, result.Items, 1)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, "faq-1", result.Warnings[0].SourceID)
	assert.Contains(t, result.Warnings[0].Reason, "no answer")
	assert.Equal(t, "faq-2", result.Warnings[1].SourceID)
	assert.Contains(t, result.Warnings[1].Reason, "no question")
}

func TestConverter_ConvertFAQs_DeterministicIDs(t *testing.T) {
	converter := NewConverter()
	entries := []domain.FAQEntry{{ID: "faq-1", Question: "Q?", Answer: "A."}}

	first := converter.ConvertFAQs(entries, testMeta())
	second := converter.ConvertFAQs(entries, testMeta())

	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
	assert.Equal(t, first.Items[0].ContentHash, second.Items[0].ContentHash)
}

func TestConverter_ConvertDocument(t *testing.T) {
	converter := NewConverter()

	doc := domain.DocumentSource{
		ID:    "doc-1",
		Title: "Shipping Policy",
		URL:   "https://acme.example/shipping",
		Content: "# Domestic\n" +
			"Domestic orders ship within two business days via our regional carrier network.\n" +
			"# International\n" +
			"International orders clear customs before delivery and can take up to two weeks.",
	}

	result := converter.ConvertDocument(doc, testMeta())

	assert.Len(t, result.Items, 2)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "Domestic", result.Items[0].Title)
	assert.Equal(t, domain.SourceDocument, result.Items[0].Source)
	assert.Equal(t, "https://acme.example/shipping", result.Items[0].SourceURL)
	// The company/title context prefix keeps chunks self-describing.
	assert.Contains(t, result.Items[0].Content, "Acme - Shipping Policy")
}

func TestConverter_ConvertDocument_Empty(t *testing.T) {
	converter := NewConverter()

	result := converter.ConvertDocument(domain.DocumentSource{ID: "doc-1", Title: "Empty"}, testMeta())

	assert.Empty(t, result.Items)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "doc-1", result.Warnings[0].SourceID)
}

func TestConverter_ConvertDocument_FallbackTitle(t *testing.T) {
	converter := NewConverter()

	doc := domain.DocumentSource{
		ID:      "doc-1",
		Title:   "Onboarding Guide",
		Content: "A single unstructured paragraph describing how new customers get started.",
	}

	result := converter.ConvertDocument(doc, testMeta())

	assert.Len(t, result.Items, 1)
	assert.Equal(t, "Onboarding Guide", result.Items[0].Title)
}

func TestConverter_ConvertCrawledPages(t *testing.T) {
	converter := NewConverter()
	crawledAt := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)

	pages := []domain.CrawledPage{
		{
			URL:       "https://acme.example/about",
			Title:     "About Us",
			Content:   "Acme has supplied industrial fasteners to manufacturers since nineteen eighty.",
			CrawledAt: crawledAt,
		},
		{URL: "https://acme.example/blank", Title: "Blank", Content: "   "},
	}

	result := converter.ConvertCrawledPages(pages, testMeta())

	assert.Len(t, result.Items, 1)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "https://acme.example/blank", result.Warnings[0].SourceID)

	item := result.Items[0]
	assert.Equal(t, domain.SourceCrawled, item.Source)
	assert.Equal(t, "https://acme.example/about", item.SourceURL)
	assert.Equal(t, crawledAt, item.LastUpdated)
}

func TestConverter_ConvertCatalog(t *testing.T) {
	converter := NewConverter()

	entries := []domain.CatalogEntry{
		{ID: "sku-1", Name: "Widget Pro", Description: "The flagship widget.", PriceText: "$49", Tags: []string{"Widgets"}},
		{ID: "sku-2", Name: "Ghost", Description: ""},
	}

	result := converter.ConvertCatalog(entries, testMeta())

	assert.Len(t, result.Items, 1)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "sku-2", result.Warnings[0].SourceID)

	item := result.Items[0]
	assert.Equal(t, "Widget Pro", item.Title)
	assert.Equal(t, "The flagship widget.\n\nPricing: $49", item.Content)
	assert.Equal(t, domain.CategoryProductInfo, item.Category)
	assert.Equal(t, []string{"widgets"}, item.Tags)
	assert.Equal(t, domain.SourceCatalog, item.Source)
}

func TestItemID_Format(t *testing.T) {
	id := ItemID(domain.SourceFAQ, "some content")

	assert.Regexp(t, regexp.MustCompile(`^faq_[0-9a-f]{16}$`), id)
	assert.Equal(t, id, ItemID(domain.SourceFAQ, "some content"))
	assert.NotEqual(t, id, ItemID(domain.SourceFAQ, "other content"))
	assert.NotEqual(t, id, ItemID(domain.SourceDocument, "some content"))
}

func TestExtractCompanyName(t *testing.T) {
	assert.Equal(t, "Northwind Traders", extractCompanyName("Welcome to Northwind Traders. We sell provisions."))
	assert.Equal(t, "Contoso", extractCompanyName("© 2026 Contoso. All rights reserved."))
	assert.Equal(t, "", extractCompanyName("no recognizable company mention here"))
}

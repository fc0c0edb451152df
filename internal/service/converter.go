package service

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
)

// faqCategoryMap translates upstream FAQ editor categories into knowledge
// categories. Unknown categories fall back to general.
var faqCategoryMap = map[string]domain.Category{
	"billing":   domain.CategoryPricing,
	"pricing":   domain.CategoryPricing,
	"payment":   domain.CategoryPricing,
	"technical": domain.CategorySupport,
	"support":   domain.CategorySupport,
	"product":   domain.CategoryProductInfo,
	"features":  domain.CategoryProductInfo,
	"general":   domain.CategoryGeneral,
}

// ConvertWarning records a skipped source record. Conversion is partial
// failure tolerant: one bad record never aborts the batch.
type ConvertWarning struct {
	SourceID string
	Reason   string
}

// ConvertResult carries the converted items and any per-record warnings.
type ConvertResult struct {
	Items    []domain.KnowledgeItem
	Warnings []ConvertWarning
}

// Converter turns heterogeneous raw sources into KnowledgeItem records,
// invoking the chunker for long-form content.
type Converter struct {
	chunker ChunkerConfig
}

// NewConverter creates a Converter with default chunking.
func NewConverter() *Converter {
	return &Converter{chunker: DefaultChunkerConfig()}
}

// NewConverterWithChunker creates a Converter with explicit chunker settings.
func NewConverterWithChunker(cfg ChunkerConfig) *Converter {
	return &Converter{chunker: cfg}
}

// ConvertFAQs converts FAQ entries. Records missing an answer are skipped
// with a warning.
func (c *Converter) ConvertFAQs(entries []domain.FAQEntry, meta domain.SourceMeta) ConvertResult {
	var result ConvertResult
	updated := stampTime(meta)

	for _, entry := range entries {
		if strings.TrimSpace(entry.Answer) == "" {
			result.Warnings = append(result.Warnings, ConvertWarning{
				SourceID: entry.ID,
				Reason:   "faq entry has no answer",
			})
			continue
		}
		if strings.TrimSpace(entry.Question) == "" {
			result.Warnings = append(result.Warnings, ConvertWarning{
				SourceID: entry.ID,
				Reason:   "faq entry has no question",
			})
			continue
		}

		content := strings.TrimSpace(entry.Question) + "\n\n" + strings.TrimSpace(entry.Answer)
		tags := normalizeTags(entry.Keywords)
		item := domain.KnowledgeItem{
			ID:          ItemID(domain.SourceFAQ, content),
			Title:       strings.TrimSpace(entry.Question),
			Content:     content,
			Category:    mapFAQCategory(entry.Category),
			Tags:        tags,
			Source:      domain.SourceFAQ,
			LastUpdated: updated,
		}
		item.ContentHash = ContentHash(item.Title, item.Content, item.Source)
		result.Items = append(result.Items, item)
	}

	return result
}

// ConvertDocument converts one long-form document via the chunker. Empty
// content yields zero items and a warning, not an error.
func (c *Converter) ConvertDocument(doc domain.DocumentSource, meta domain.SourceMeta) ConvertResult {
	var result ConvertResult
	updated := stampTime(meta)

	context := chunkContext(meta.CompanyName, doc.Title, doc.Content)
	chunks := ChunkContent(doc.Content, context, c.chunker)
	if len(chunks) == 0 {
		result.Warnings = append(result.Warnings, ConvertWarning{
			SourceID: doc.ID,
			Reason:   "document has no content to index",
		})
		return result
	}

	for _, chunk := range chunks {
		title := chunk.Title
		if title == "" || title == "Overview" {
			if doc.Title != "" {
				title = doc.Title
			} else {
				title = "Overview"
			}
		}
		item := domain.KnowledgeItem{
			ID:          ItemID(domain.SourceDocument, chunk.EmbeddingText()),
			Title:       title,
			Content:     chunk.EmbeddingText(),
			Category:    domain.CategoryGeneral,
			Tags:        chunk.Tags,
			Source:      domain.SourceDocument,
			SourceURL:   doc.URL,
			LastUpdated: updated,
		}
		item.ContentHash = ContentHash(item.Title, item.Content, item.Source)
		result.Items = append(result.Items, item)
	}

	return result
}

// ConvertCrawledPages converts crawler output, one or more items per page.
func (c *Converter) ConvertCrawledPages(pages []domain.CrawledPage, meta domain.SourceMeta) ConvertResult {
	var result ConvertResult

	for _, page := range pages {
		if strings.TrimSpace(page.Content) == "" {
			result.Warnings = append(result.Warnings, ConvertWarning{
				SourceID: page.URL,
				Reason:   "crawled page has no content",
			})
			continue
		}

		updated := page.CrawledAt
		if updated.IsZero() {
			updated = stampTime(meta)
		}

		context := chunkContext(meta.CompanyName, page.Title, page.Content)
		for _, chunk := range ChunkContent(page.Content, context, c.chunker) {
			title := chunk.Title
			if title == "" || strings.HasPrefix(title, "Section ") || strings.HasPrefix(title, "Part ") {
				if page.Title != "" {
					title = page.Title + " - " + chunk.Title
				}
			}
			item := domain.KnowledgeItem{
				ID:          ItemID(domain.SourceCrawled, page.URL+"|"+chunk.EmbeddingText()),
				Title:       title,
				Content:     chunk.EmbeddingText(),
				Category:    domain.CategoryGeneral,
				Tags:        chunk.Tags,
				Source:      domain.SourceCrawled,
				SourceURL:   page.URL,
				LastUpdated: updated,
			}
			item.ContentHash = ContentHash(item.Title, item.Content, item.Source)
			result.Items = append(result.Items, item)
		}
	}

	return result
}

// ConvertCatalog converts product catalog entries.
func (c *Converter) ConvertCatalog(entries []domain.CatalogEntry, meta domain.SourceMeta) ConvertResult {
	var result ConvertResult
	updated := stampTime(meta)

	for _, entry := range entries {
		if strings.TrimSpace(entry.Description) == "" {
			result.Warnings = append(result.Warnings, ConvertWarning{
				SourceID: entry.ID,
				Reason:   "catalog entry has no description",
			})
			continue
		}

		content := strings.TrimSpace(entry.Description)
		if entry.PriceText != "" {
			content += "\n\nPricing: " + entry.PriceText
		}
		category := domain.CategoryProductInfo
		if entry.PriceText != "" && entry.Description == "" {
			category = domain.CategoryPricing
		}

		item := domain.KnowledgeItem{
			ID:          ItemID(domain.SourceCatalog, entry.Name+"|"+content),
			Title:       entry.Name,
			Content:     content,
			Category:    category,
			Tags:        normalizeTags(entry.Tags),
			Source:      domain.SourceCatalog,
			LastUpdated: updated,
		}
		item.ContentHash = ContentHash(item.Title, item.Content, item.Source)
		result.Items = append(result.Items, item)
	}

	return result
}

// ItemID derives a deterministic identifier from the source discriminator
// and content, so re-ingesting unchanged content does not mint new
// identities.
func ItemID(sourceType, content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%s_%016x", sourceType, h.Sum64())
}

func mapFAQCategory(category string) domain.Category {
	if mapped, ok := faqCategoryMap[strings.ToLower(strings.TrimSpace(category))]; ok {
		return mapped
	}
	return domain.CategoryFAQ
}

func stampTime(meta domain.SourceMeta) time.Time {
	if !meta.RetrievedAt.IsZero() {
		return meta.RetrievedAt.UTC()
	}
	return time.Now().UTC()
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		clean := strings.ToLower(strings.TrimSpace(tag))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}

var companyNameRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\babout\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:[.,\n]|$)`),
	regexp.MustCompile(`(?i)\bwelcome\s+to\s+([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:[.,\n]|$)`),
	regexp.MustCompile(`©\s*(?:\d{4}\s+)?([A-Z][A-Za-z0-9&.\- ]{2,40}?)(?:[.,\n]|$)`),
}

// extractCompanyName is a best-effort enrichment step. It may return ""
// and must never block conversion.
func extractCompanyName(content string) string {
	for _, re := range companyNameRes {
		if m := re.FindStringSubmatch(content); m != nil {
			name := strings.TrimSpace(m[1])
			if name != "" {
				return name
			}
		}
	}
	return ""
}

// chunkContext builds the self-describing prefix injected into each chunk.
func chunkContext(companyName, title, content string) string {
	if companyName == "" {
		companyName = extractCompanyName(content)
	}
	switch {
	case companyName != "" && title != "":
		return companyName + " - " + title
	case companyName != "":
		return companyName
	default:
		return title
	}
}

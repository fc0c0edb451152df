package domain

import "time"

// Source type identifiers recorded on converted items. The crawler and FAQ
// editor live outside this engine; these strings are the provenance contract.
const (
	SourceFAQ      = "faq"
	SourceDocument = "document"
	SourceCrawled  = "website_crawled"
	SourceCatalog  = "product_catalog"
)

// FAQEntry is a raw FAQ record as supplied by the upstream content editor.
type FAQEntry struct {
	ID       string
	Question string
	Answer   string
	Category string
	Keywords []string
}

// DocumentSource is a raw long-form document (support doc, policy page)
// supplied for chunked conversion.
type DocumentSource struct {
	ID      string
	Title   string
	Content string
	URL     string
}

// CrawledPage is the body of one page delivered by the external crawler.
type CrawledPage struct {
	URL       string
	Title     string
	Content   string
	CrawledAt time.Time
}

// CatalogEntry is one product record from an organization's catalog export.
type CatalogEntry struct {
	ID          string
	Name        string
	Description string
	PriceText   string
	Tags        []string
}

// SourceMeta carries the organization scope and timestamps stamped onto
// every converted item.
type SourceMeta struct {
	OrgID       string
	ConfigID    string
	CompanyName string
	RetrievedAt time.Time
}

package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/quillbase-ai/quillbase/internal/api"
	"github.com/quillbase-ai/quillbase/internal/api/middleware"
	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/service"
)

type IngestService interface {
	IngestFAQs(ctx context.Context, input service.IngestInput, entries []domain.FAQEntry) (*service.IngestOutput, error)
	IngestDocument(ctx context.Context, input service.IngestInput, doc domain.DocumentSource) (*service.IngestOutput, error)
	IngestCrawledPages(ctx context.Context, input service.IngestInput, pages []domain.CrawledPage) (*service.IngestOutput, error)
	IngestCatalog(ctx context.Context, input service.IngestInput, entries []domain.CatalogEntry) (*service.IngestOutput, error)
	DeleteSource(ctx context.Context, input service.IngestInput, sourceType, sourceURL string) (int64, error)
}

// SourceArchiver persists raw ingestion payloads for replay and audit.
type SourceArchiver interface {
	ArchiveSource(ctx context.Context, orgID, configID, sourceType string, payload []byte) (string, error)
}

type IngestHandler struct {
	svc      IngestService
	archiver SourceArchiver
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// NewIngestHandlerWithArchiver creates an ingest handler that archives raw
// payloads before conversion.
func NewIngestHandlerWithArchiver(svc IngestService, archiver SourceArchiver) *IngestHandler {
	return &IngestHandler{svc: svc, archiver: archiver}
}

type FAQEntryRequest struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

type IngestFAQsRequest struct {
	ConfigID    string            `json:"config_id"`
	CompanyName string            `json:"company_name,omitempty"`
	Entries     []FAQEntryRequest `json:"entries"`
}

type IngestDocumentRequest struct {
	ConfigID    string `json:"config_id"`
	CompanyName string `json:"company_name,omitempty"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url,omitempty"`
}

type CrawledPageRequest struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CrawledAt string `json:"crawled_at,omitempty"`
}

type IngestPagesRequest struct {
	ConfigID    string               `json:"config_id"`
	CompanyName string               `json:"company_name,omitempty"`
	Pages       []CrawledPageRequest `json:"pages"`
}

type CatalogEntryRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceText   string   `json:"price_text,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type IngestCatalogRequest struct {
	ConfigID    string                `json:"config_id"`
	CompanyName string                `json:"company_name,omitempty"`
	Entries     []CatalogEntryRequest `json:"entries"`
}

type ItemValidationResponse struct {
	ItemID string   `json:"item_id"`
	Errors []string `json:"errors"`
}

type IngestResponse struct {
	Stored     int                      `json:"stored"`
	Skipped    int                      `json:"skipped"`
	Invalid    []ItemValidationResponse `json:"invalid,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty"`
	ArchiveKey string                   `json:"archive_key,omitempty"`
}

type DeleteSourceRequest struct {
	ConfigID   string `json:"config_id"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url,omitempty"`
}

type DeleteSourceResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *IngestHandler) IngestFAQs(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestFAQsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}
	if len(req.Entries) == 0 {
		api.Error(w, http.StatusBadRequest, "entries are required")
		return
	}

	entries := make([]domain.FAQEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = domain.FAQEntry{
			ID:       e.ID,
			Question: e.Question,
			Answer:   e.Answer,
			Category: e.Category,
			Keywords: e.Keywords,
		}
	}

	archiveKey := h.archive(r.Context(), orgID, req.ConfigID, domain.SourceFAQ, req)

	output, err := h.svc.IngestFAQs(r.Context(), h.input(orgID, req.ConfigID, req.CompanyName), entries)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestResponse(output, archiveKey))
}

func (h *IngestHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	doc := domain.DocumentSource{
		ID:      req.ID,
		Title:   req.Title,
		Content: req.Content,
		URL:     req.URL,
	}

	archiveKey := h.archive(r.Context(), orgID, req.ConfigID, domain.SourceDocument, req)

	output, err := h.svc.IngestDocument(r.Context(), h.input(orgID, req.ConfigID, req.CompanyName), doc)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestResponse(output, archiveKey))
}

func (h *IngestHandler) IngestPages(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestPagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}
	if len(req.Pages) == 0 {
		api.Error(w, http.StatusBadRequest, "pages are required")
		return
	}

	pages := make([]domain.CrawledPage, len(req.Pages))
	for i, p := range req.Pages {
		crawledAt := time.Now().UTC()
		if p.CrawledAt != "" {
			if t, err := time.Parse(time.RFC3339, p.CrawledAt); err == nil {
				crawledAt = t
			}
		}
		pages[i] = domain.CrawledPage{
			URL:       p.URL,
			Title:     p.Title,
			Content:   p.Content,
			CrawledAt: crawledAt,
		}
	}

	archiveKey := h.archive(r.Context(), orgID, req.ConfigID, domain.SourceCrawled, req)

	output, err := h.svc.IngestCrawledPages(r.Context(), h.input(orgID, req.ConfigID, req.CompanyName), pages)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestResponse(output, archiveKey))
}

func (h *IngestHandler) IngestCatalog(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}
	if len(req.Entries) == 0 {
		api.Error(w, http.StatusBadRequest, "entries are required")
		return
	}

	entries := make([]domain.CatalogEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = domain.CatalogEntry{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			PriceText:   e.PriceText,
			Tags:        e.Tags,
		}
	}

	archiveKey := h.archive(r.Context(), orgID, req.ConfigID, domain.SourceCatalog, req)

	output, err := h.svc.IngestCatalog(r.Context(), h.input(orgID, req.ConfigID, req.CompanyName), entries)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ingestResponse(output, archiveKey))
}

func (h *IngestHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DeleteSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}
	if req.SourceType == "" {
		api.Error(w, http.StatusBadRequest, "source_type is required")
		return
	}

	deleted, err := h.svc.DeleteSource(r.Context(), h.input(orgID, req.ConfigID, ""), req.SourceType, req.SourceURL)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteSourceResponse{Deleted: deleted})
}

func (h *IngestHandler) input(orgID, configID, companyName string) service.IngestInput {
	return service.IngestInput{
		OrgID:    orgID,
		ConfigID: configID,
		Meta: domain.SourceMeta{
			CompanyName: companyName,
		},
	}
}

// archive stores the raw payload when an archiver is configured. Archive
// failures are logged, not surfaced.
func (h *IngestHandler) archive(ctx context.Context, orgID, configID, sourceType string, payload any) string {
	if h.archiver == nil {
		return ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	key, err := h.archiver.ArchiveSource(ctx, orgID, configID, sourceType, raw)
	if err != nil {
		log.Printf("ingest: failed to archive %s payload: %v", sourceType, err)
		return ""
	}
	return key
}

func ingestResponse(output *service.IngestOutput, archiveKey string) IngestResponse {
	invalid := make([]ItemValidationResponse, len(output.Invalid))
	for i, v := range output.Invalid {
		invalid[i] = ItemValidationResponse{ItemID: v.ItemID, Errors: v.Errors}
	}

	warnings := make([]string, len(output.Warnings))
	for i, warning := range output.Warnings {
		warnings[i] = warning.SourceID + ": " + warning.Reason
	}

	return IngestResponse{
		Stored:     output.Stored,
		Skipped:    output.Skipped,
		Invalid:    invalid,
		Warnings:   warnings,
		ArchiveKey: archiveKey,
	}
}

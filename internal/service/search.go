package service

import (
	"context"
	"log"
	"time"

	"github.com/quillbase-ai/quillbase/internal/telemetry"
)

// SearchLogEntry records one search for corpus-maintenance analysis.
type SearchLogEntry struct {
	OrgID        string
	ConfigID     string
	Query        string
	Intent       string
	ResultCount  int
	TopScore     float64
	DurationMs   int64
	RequiredMode bool
	CreatedAt    time.Time
}

// SearchLogRecorder defines the repository interface for search logging.
type SearchLogRecorder interface {
	RecordSearch(ctx context.Context, entry SearchLogEntry) error
}

// SearchService loads an organization's corpus and ranks it through the
// relevance engine.
type SearchService struct {
	store  KnowledgeStore
	engine *RelevanceEngine
	logs   SearchLogRecorder
}

// NewSearchService creates a SearchService instance
func NewSearchService(store KnowledgeStore, engine *RelevanceEngine, logs SearchLogRecorder) *SearchService {
	return &SearchService{
		store:  store,
		engine: engine,
		logs:   logs,
	}
}

// Search runs the non-throwing variant: no qualifying items yields an empty
// result set.
func (s *SearchService) Search(ctx context.Context, orgID, configID string, req SearchRequest) (*SearchResponse, error) {
	return s.search(ctx, orgID, configID, req, false)
}

// SearchRequired fails with a typed error when nothing qualifies, so the
// caller can decline to answer instead of replying ungrounded.
func (s *SearchService) SearchRequired(ctx context.Context, orgID, configID string, req SearchRequest) (*SearchResponse, error) {
	return s.search(ctx, orgID, configID, req, true)
}

func (s *SearchService) search(ctx context.Context, orgID, configID string, req SearchRequest, required bool) (*SearchResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		OrgID:     orgID,
		ConfigID:  configID,
		Operation: "search",
	})
	defer span.End()

	candidates, err := s.store.ListByOrgConfig(ctx, orgID, configID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var resp *SearchResponse
	if required {
		resp, err = s.engine.SearchRequired(ctx, req, candidates)
	} else {
		resp, err = s.engine.Search(ctx, req, candidates)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.record(ctx, orgID, configID, req, resp, required)
	return resp, nil
}

// record logs the search; logging failures never fail the search itself.
func (s *SearchService) record(ctx context.Context, orgID, configID string, req SearchRequest, resp *SearchResponse, required bool) {
	if s.logs == nil {
		return
	}

	var topScore float64
	if len(resp.Items) > 0 {
		topScore = resp.Items[0].Score
	}

	entry := SearchLogEntry{
		OrgID:        orgID,
		ConfigID:     configID,
		Query:        resp.SearchQuery,
		Intent:       req.Intent,
		ResultCount:  len(resp.Items),
		TopScore:     topScore,
		DurationMs:   resp.SearchTimeMs,
		RequiredMode: required,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.logs.RecordSearch(ctx, entry); err != nil {
		log.Printf("search_log: failed to record search: %v", err)
	}
}

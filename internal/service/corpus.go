package service

import (
	"context"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/pagination"
	"github.com/quillbase-ai/quillbase/internal/telemetry"
)

// CorpusLister defines the repository interface for paginated corpus
// listing.
type CorpusLister interface {
	ListWithCursor(ctx context.Context, orgID, configID string, cursor *pagination.Cursor, limit int) (*CorpusPage, error)
}

// CorpusPage is one page of corpus items.
type CorpusPage struct {
	Items      []domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

// DuplicateReport bundles the dedup service output for one corpus.
type DuplicateReport struct {
	ExactGroups []DuplicateGroup
	NearPairs   []NearDuplicatePair
	Clusters    []Cluster
}

// CorpusService exposes maintenance views over a corpus: health analytics,
// duplicate detection, and listing. None of this runs on the query path.
type CorpusService struct {
	store  KnowledgeStore
	lister CorpusLister
	health HealthConfig
}

// NewCorpusService creates a CorpusService instance
func NewCorpusService(store KnowledgeStore, lister CorpusLister) *CorpusService {
	return &CorpusService{
		store:  store,
		lister: lister,
		health: DefaultHealthConfig(),
	}
}

// Health computes the corpus health report.
func (s *CorpusService) Health(ctx context.Context, orgID, configID string) (*HealthReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "CorpusService.Health", telemetry.SpanAttributes{
		OrgID:     orgID,
		ConfigID:  configID,
		Operation: "health",
	})
	defer span.End()

	items, err := s.store.ListByOrgConfig(ctx, orgID, configID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	report := AnalyzeCorpus(items, time.Now().UTC(), s.health)
	return &report, nil
}

// Duplicates runs exact and near-duplicate detection plus clustering.
func (s *CorpusService) Duplicates(ctx context.Context, orgID, configID string) (*DuplicateReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "CorpusService.Duplicates", telemetry.SpanAttributes{
		OrgID:     orgID,
		ConfigID:  configID,
		Operation: "duplicates",
	})
	defer span.End()

	items, err := s.store.ListByOrgConfig(ctx, orgID, configID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &DuplicateReport{
		ExactGroups: FindExactDuplicates(items),
		NearPairs:   FindNearDuplicates(items, DefaultNearDuplicateThreshold),
		Clusters:    ClusterItems(items, DefaultClusterThreshold),
	}, nil
}

// ListItems returns one page of corpus items.
func (s *CorpusService) ListItems(ctx context.Context, orgID, configID, cursor string, limit int) (*CorpusPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "CorpusService.ListItems", telemetry.SpanAttributes{
		OrgID:     orgID,
		ConfigID:  configID,
		Operation: "list",
	})
	defer span.End()

	decoded, _ := pagination.DecodeCursor(cursor)
	if limit <= 0 {
		limit = 20
	}
	return s.lister.ListWithCursor(ctx, orgID, configID, decoded, limit)
}

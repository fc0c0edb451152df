package service

import (
	"context"
	"log"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/telemetry"
)

// KnowledgeStore defines the repository contract consumed by the engine.
type KnowledgeStore interface {
	StoreKnowledgeItems(ctx context.Context, orgID, configID string, items []domain.KnowledgeItem) error
	KnowledgeItemExists(ctx context.Context, orgID, configID, itemID, contentHash string) (bool, error)
	DeleteKnowledgeItemsBySource(ctx context.Context, orgID, configID, sourceType, sourceURL string) (int64, error)
	ListByOrgConfig(ctx context.Context, orgID, configID string) ([]domain.KnowledgeItem, error)
}

// IngestService orchestrates conversion, content-addressed change detection,
// embedding and storage for a corpus.
type IngestService struct {
	converter *Converter
	gateway   EmbeddingGatewayInterface
	store     KnowledgeStore
}

// NewIngestService creates an IngestService instance
func NewIngestService(converter *Converter, gateway EmbeddingGatewayInterface, store KnowledgeStore) *IngestService {
	return &IngestService{
		converter: converter,
		gateway:   gateway,
		store:     store,
	}
}

// IngestInput scopes one ingestion batch to an organization's corpus.
type IngestInput struct {
	OrgID    string
	ConfigID string
	Meta     domain.SourceMeta
}

// IngestOutput reports what one batch did.
type IngestOutput struct {
	Stored   int
	Skipped  int
	Invalid  []domain.ItemValidation
	Warnings []ConvertWarning
}

// IngestFAQs converts and stores FAQ entries.
func (s *IngestService) IngestFAQs(ctx context.Context, input IngestInput, entries []domain.FAQEntry) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestFAQs", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		ConfigID:  input.ConfigID,
		Operation: "ingest",
	})
	defer span.End()

	result := s.converter.ConvertFAQs(entries, s.meta(input))
	return s.persist(ctx, input, result)
}

// IngestDocument chunks and stores one long-form document.
func (s *IngestService) IngestDocument(ctx context.Context, input IngestInput, doc domain.DocumentSource) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestDocument", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		ConfigID:  input.ConfigID,
		Operation: "ingest",
	})
	defer span.End()

	result := s.converter.ConvertDocument(doc, s.meta(input))
	return s.persist(ctx, input, result)
}

// IngestCrawledPages replaces the stored items for each re-crawled page and
// stores the fresh conversion.
func (s *IngestService) IngestCrawledPages(ctx context.Context, input IngestInput, pages []domain.CrawledPage) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestCrawledPages", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		ConfigID:  input.ConfigID,
		Operation: "ingest",
	})
	defer span.End()

	for _, page := range pages {
		deleted, err := s.store.DeleteKnowledgeItemsBySource(ctx, input.OrgID, input.ConfigID, domain.SourceCrawled, page.URL)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if deleted > 0 {
			log.Printf("ingest: replaced %d items for %s", deleted, page.URL)
		}
	}

	result := s.converter.ConvertCrawledPages(pages, s.meta(input))
	return s.persist(ctx, input, result)
}

// IngestCatalog converts and stores product catalog entries.
func (s *IngestService) IngestCatalog(ctx context.Context, input IngestInput, entries []domain.CatalogEntry) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestCatalog", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		ConfigID:  input.ConfigID,
		Operation: "ingest",
	})
	defer span.End()

	result := s.converter.ConvertCatalog(entries, s.meta(input))
	return s.persist(ctx, input, result)
}

// DeleteSource removes all items originating from one source.
func (s *IngestService) DeleteSource(ctx context.Context, input IngestInput, sourceType, sourceURL string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.DeleteSource", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		ConfigID:  input.ConfigID,
		Operation: "delete",
	})
	defer span.End()

	return s.store.DeleteKnowledgeItemsBySource(ctx, input.OrgID, input.ConfigID, sourceType, sourceURL)
}

// persist validates, skips unchanged items by content hash, embeds the rest
// in one batch, and stores them.
func (s *IngestService) persist(ctx context.Context, input IngestInput, result ConvertResult) (*IngestOutput, error) {
	out := &IngestOutput{Warnings: result.Warnings}

	invalid := domain.ValidateKnowledgeItems(result.Items)
	badIDs := make(map[string]struct{}, len(invalid))
	for _, v := range invalid {
		badIDs[v.ItemID] = struct{}{}
	}
	out.Invalid = invalid

	var fresh []domain.KnowledgeItem
	for _, item := range result.Items {
		if _, bad := badIDs[item.ID]; bad {
			continue
		}
		exists, err := s.store.KnowledgeItemExists(ctx, input.OrgID, input.ConfigID, item.ID, item.ContentHash)
		if err != nil {
			return nil, err
		}
		if exists {
			out.Skipped++
			continue
		}
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		return out, nil
	}

	texts := make([]string, len(fresh))
	for i, item := range fresh {
		texts[i] = ItemEmbeddingText(item)
	}

	vectors, err := s.gateway.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range fresh {
		fresh[i].Embedding = vectors[i]
	}

	if err := s.store.StoreKnowledgeItems(ctx, input.OrgID, input.ConfigID, fresh); err != nil {
		return nil, err
	}
	out.Stored = len(fresh)
	return out, nil
}

func (s *IngestService) meta(input IngestInput) domain.SourceMeta {
	meta := input.Meta
	meta.OrgID = input.OrgID
	meta.ConfigID = input.ConfigID
	if meta.RetrievedAt.IsZero() {
		meta.RetrievedAt = time.Now().UTC()
	}
	return meta
}

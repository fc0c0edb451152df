package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/quillbase-ai/quillbase/internal/service"
)

const reembedBatchSize = 50

// ReembedStore defines the persistence interface for the embedding
// backfill worker.
type ReembedStore interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]service.PendingEmbedding, error)
	UpdateEmbedding(ctx context.Context, orgID, configID, itemID string, embedding []float32) error
}

// ReembedWorker backfills embeddings for items stored without one, for
// example after a provider outage during ingestion.
type ReembedWorker struct {
	store   ReembedStore
	gateway service.EmbeddingGatewayInterface
}

// NewReembedWorker creates a new ReembedWorker instance
func NewReembedWorker(store ReembedStore, gateway service.EmbeddingGatewayInterface) *ReembedWorker {
	return &ReembedWorker{
		store:   store,
		gateway: gateway,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReembedWorker) ProcessJobs(ctx context.Context) error {
	pending, err := w.store.ListMissingEmbeddings(ctx, reembedBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list items missing embeddings: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	log.Printf("reembed: backfilling %d items", len(pending))

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = service.ItemEmbeddingText(p.Item)
	}

	vectors, err := w.gateway.EmbedBatch(ctx, texts)
	if err != nil {
		// Provider failures are transient; items stay pending for the
		// next poll.
		return fmt.Errorf("failed to embed batch: %w", err)
	}

	var updated int
	for i, p := range pending {
		if err := w.store.UpdateEmbedding(ctx, p.OrgID, p.ConfigID, p.Item.ID, vectors[i]); err != nil {
			log.Printf("reembed: failed to update %s: %v", p.Item.ID, err)
			continue
		}
		updated++
	}

	log.Printf("reembed: updated %d/%d items", updated, len(pending))
	return nil
}

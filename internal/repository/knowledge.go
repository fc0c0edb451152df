package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/pagination"
	"github.com/quillbase-ai/quillbase/internal/service"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const knowledgeItemColumns = `id, org_id, config_id, title, content, category, tags, source, source_url, content_hash, embedding, last_updated`

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

// StoreKnowledgeItems upserts a batch of items keyed on (org_id, config_id, id).
// A re-ingested item with changed content overwrites the stored row.
func (r *KnowledgeRepository) StoreKnowledgeItems(ctx context.Context, orgID, configID string, items []domain.KnowledgeItem) error {
	for _, item := range items {
		var embedding any
		if len(item.Embedding) > 0 {
			embedding = pgvector.NewVector(item.Embedding)
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_items (id, org_id, config_id, title, content, category, tags, source, source_url, content_hash, embedding, last_updated)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (org_id, config_id, id) DO UPDATE SET
			   title = EXCLUDED.title,
			   content = EXCLUDED.content,
			   category = EXCLUDED.category,
			   tags = EXCLUDED.tags,
			   source = EXCLUDED.source,
			   source_url = EXCLUDED.source_url,
			   content_hash = EXCLUDED.content_hash,
			   embedding = EXCLUDED.embedding,
			   last_updated = EXCLUDED.last_updated`,
			item.ID, orgID, configID, item.Title, item.Content, string(item.Category), item.Tags,
			item.Source, nullableString(item.SourceURL), item.ContentHash, embedding, item.LastUpdated,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// KnowledgeItemExists reports whether an item with this ID and exact content
// hash is already stored. A hash mismatch means the content changed and the
// item should be re-stored.
func (r *KnowledgeRepository) KnowledgeItemExists(ctx context.Context, orgID, configID, itemID, contentHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM knowledge_items
		   WHERE org_id = $1 AND config_id = $2 AND id = $3 AND content_hash = $4
		 )`,
		orgID, configID, itemID, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *KnowledgeRepository) DeleteKnowledgeItemsBySource(ctx context.Context, orgID, configID, sourceType, sourceURL string) (int64, error) {
	var cmdTag pgconn.CommandTag
	var err error
	if sourceURL != "" {
		cmdTag, err = r.db.Exec(ctx,
			`DELETE FROM knowledge_items
			 WHERE org_id = $1 AND config_id = $2 AND source = $3 AND source_url = $4`,
			orgID, configID, sourceType, sourceURL,
		)
	} else {
		cmdTag, err = r.db.Exec(ctx,
			`DELETE FROM knowledge_items
			 WHERE org_id = $1 AND config_id = $2 AND source = $3`,
			orgID, configID, sourceType,
		)
	}
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *KnowledgeRepository) ListByOrgConfig(ctx context.Context, orgID, configID string) ([]domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeItemColumns+`
		 FROM knowledge_items
		 WHERE org_id = $1 AND config_id = $2
		 ORDER BY last_updated DESC, id DESC`,
		orgID, configID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeItems(rows)
}

func (r *KnowledgeRepository) ListWithCursor(ctx context.Context, orgID, configID string, cursor *pagination.Cursor, limit int) (*service.CorpusPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeItemColumns+`
			 FROM knowledge_items
			 WHERE org_id = $1 AND config_id = $2 AND (last_updated, id) < ($3, $4)
			 ORDER BY last_updated DESC, id DESC
			 LIMIT $5`,
			orgID, configID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeItemColumns+`
			 FROM knowledge_items
			 WHERE org_id = $1 AND config_id = $2
			 ORDER BY last_updated DESC, id DESC
			 LIMIT $3`,
			orgID, configID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeItems(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.LastUpdated)
	}

	return &service.CorpusPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListMissingEmbeddings returns items whose embedding column is NULL,
// oldest first, for the re-embed worker.
func (r *KnowledgeRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]service.PendingEmbedding, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeItemColumns+`
		 FROM knowledge_items
		 WHERE embedding IS NULL
		 ORDER BY last_updated ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []service.PendingEmbedding
	for rows.Next() {
		var item domain.KnowledgeItem
		var orgID, configID string
		if err := scanKnowledgeItem(rows, &item, &orgID, &configID); err != nil {
			return nil, err
		}
		pending = append(pending, service.PendingEmbedding{
			OrgID:    orgID,
			ConfigID: configID,
			Item:     item,
		})
	}
	return pending, rows.Err()
}

func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, orgID, configID, itemID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET embedding = $1
		 WHERE org_id = $2 AND config_id = $3 AND id = $4`,
		pgvector.NewVector(embedding), orgID, configID, itemID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeItemNotFound
	}
	return nil
}

func scanKnowledgeItems(rows pgx.Rows) ([]domain.KnowledgeItem, error) {
	var results []domain.KnowledgeItem
	for rows.Next() {
		var item domain.KnowledgeItem
		var orgID, configID string
		if err := scanKnowledgeItem(rows, &item, &orgID, &configID); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func scanKnowledgeItem(row pgx.Row, item *domain.KnowledgeItem, orgID, configID *string) error {
	var category string
	var sourceURL *string
	var embedding *pgvector.Vector
	var lastUpdated time.Time

	if err := row.Scan(&item.ID, orgID, configID, &item.Title, &item.Content, &category, &item.Tags,
		&item.Source, &sourceURL, &item.ContentHash, &embedding, &lastUpdated); err != nil {
		return err
	}

	item.Category = domain.Category(category)
	if sourceURL != nil {
		item.SourceURL = *sourceURL
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	item.LastUpdated = lastUpdated
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quillbase-ai/quillbase/internal/service"
)

// SearchLogRepository stores search logs for corpus evaluation.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) RecordSearch(ctx context.Context, entry service.SearchLogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO search_logs (id, org_id, config_id, query, intent, result_count, top_score, duration_ms, required_mode, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.NewString(),
		entry.OrgID,
		entry.ConfigID,
		entry.Query,
		nullableString(entry.Intent),
		entry.ResultCount,
		entry.TopScore,
		entry.DurationMs,
		entry.RequiredMode,
		createdAt,
	)
	return err
}

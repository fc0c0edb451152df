package service

import "github.com/quillbase-ai/quillbase/internal/domain"

// PendingEmbedding is one stored item waiting for an embedding backfill.
type PendingEmbedding struct {
	OrgID    string
	ConfigID string
	Item     domain.KnowledgeItem
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/quillbase-ai/quillbase/internal/api"
	"github.com/quillbase-ai/quillbase/internal/api/middleware"
	"github.com/quillbase-ai/quillbase/internal/domain"
	"github.com/quillbase-ai/quillbase/internal/service"
)

type CorpusService interface {
	Health(ctx context.Context, orgID, configID string) (*service.HealthReport, error)
	Duplicates(ctx context.Context, orgID, configID string) (*service.DuplicateReport, error)
	ListItems(ctx context.Context, orgID, configID, cursor string, limit int) (*service.CorpusPage, error)
}

type CorpusHandler struct {
	svc CorpusService
}

func NewCorpusHandler(svc CorpusService) *CorpusHandler {
	return &CorpusHandler{svc: svc}
}

type HealthReportResponse struct {
	ItemCount             int      `json:"item_count"`
	Completeness          float64  `json:"completeness"`
	Freshness             float64  `json:"freshness"`
	StructuralConsistency float64  `json:"structural_consistency"`
	TagCoverage           float64  `json:"tag_coverage"`
	DuplicateRate         float64  `json:"duplicate_rate"`
	HealthScore           float64  `json:"health_score"`
	StaleItemIDs          []string `json:"stale_item_ids,omitempty"`
	Alerts                []string `json:"alerts,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
}

type DuplicateGroupResponse struct {
	ContentHash string   `json:"content_hash,omitempty"`
	ItemIDs     []string `json:"item_ids"`
}

type NearDuplicatePairResponse struct {
	ItemA      string  `json:"item_a"`
	ItemB      string  `json:"item_b"`
	Similarity float64 `json:"similarity"`
}

type ClusterResponse struct {
	ItemIDs    []string `json:"item_ids"`
	AvgPairSim float64  `json:"avg_pair_similarity"`
}

type DuplicateReportResponse struct {
	ExactGroups []DuplicateGroupResponse    `json:"exact_groups"`
	NearPairs   []NearDuplicatePairResponse `json:"near_pairs"`
	Clusters    []ClusterResponse           `json:"clusters"`
}

type CorpusItemResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags,omitempty"`
	Source       string   `json:"source"`
	SourceURL    string   `json:"source_url,omitempty"`
	ContentHash  string   `json:"content_hash"`
	HasEmbedding bool     `json:"has_embedding"`
	LastUpdated  string   `json:"last_updated,omitempty"`
}

type CorpusListResponse struct {
	Items   []*CorpusItemResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

func (h *CorpusHandler) Health(w http.ResponseWriter, r *http.Request) {
	orgID, configID, ok := h.scope(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Health(r.Context(), orgID, configID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, HealthReportResponse{
		ItemCount:             report.ItemCount,
		Completeness:          report.Completeness,
		Freshness:             report.Freshness,
		StructuralConsistency: report.StructuralConsistency,
		TagCoverage:           report.TagCoverage,
		DuplicateRate:         report.DuplicateRate,
		HealthScore:           report.HealthScore,
		StaleItemIDs:          report.StaleItemIDs,
		Alerts:                report.Alerts,
		Recommendations:       report.Recommendations,
	})
}

func (h *CorpusHandler) Duplicates(w http.ResponseWriter, r *http.Request) {
	orgID, configID, ok := h.scope(w, r)
	if !ok {
		return
	}

	report, err := h.svc.Duplicates(r.Context(), orgID, configID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	exact := make([]DuplicateGroupResponse, len(report.ExactGroups))
	for i, group := range report.ExactGroups {
		exact[i] = DuplicateGroupResponse{ContentHash: group.ContentHash, ItemIDs: itemIDs(group.Items)}
	}

	pairs := make([]NearDuplicatePairResponse, len(report.NearPairs))
	for i, pair := range report.NearPairs {
		pairs[i] = NearDuplicatePairResponse{ItemA: pair.A.ID, ItemB: pair.B.ID, Similarity: pair.Similarity}
	}

	clusters := make([]ClusterResponse, len(report.Clusters))
	for i, cluster := range report.Clusters {
		clusters[i] = ClusterResponse{ItemIDs: itemIDs(cluster.Items), AvgPairSim: cluster.AvgPairSim}
	}

	api.Success(w, http.StatusOK, DuplicateReportResponse{
		ExactGroups: exact,
		NearPairs:   pairs,
		Clusters:    clusters,
	})
}

func (h *CorpusHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	orgID, configID, ok := h.scope(w, r)
	if !ok {
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	page, err := h.svc.ListItems(r.Context(), orgID, configID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*CorpusItemResponse, len(page.Items))
	for i, item := range page.Items {
		lastUpdated := ""
		if !item.LastUpdated.IsZero() {
			lastUpdated = item.LastUpdated.UTC().Format(time.RFC3339Nano)
		}
		items[i] = &CorpusItemResponse{
			ID:           item.ID,
			Title:        item.Title,
			Category:     string(item.Category),
			Tags:         item.Tags,
			Source:       item.Source,
			SourceURL:    item.SourceURL,
			ContentHash:  item.ContentHash,
			HasEmbedding: len(item.Embedding) > 0,
			LastUpdated:  lastUpdated,
		}
	}

	api.Success(w, http.StatusOK, CorpusListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func itemIDs(items []domain.KnowledgeItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func (h *CorpusHandler) scope(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", "", false
	}

	configID := r.URL.Query().Get("config_id")
	if configID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return "", "", false
	}

	return orgID, configID, true
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quillbase-ai/quillbase/internal/api"
	"github.com/quillbase-ai/quillbase/internal/api/middleware"
	"github.com/quillbase-ai/quillbase/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, orgID, configID string, req service.SearchRequest) (*service.SearchResponse, error)
	SearchRequired(ctx context.Context, orgID, configID string, req service.SearchRequest) (*service.SearchResponse, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	ConfigID       string  `json:"config_id"`
	UserQuery      string  `json:"user_query"`
	Intent         string  `json:"intent,omitempty"`
	MaxResults     int     `json:"max_results,omitempty"`
	MinScore       float64 `json:"min_relevance_score,omitempty"`
	RequireResults bool    `json:"require_results,omitempty"`
}

type SearchResultResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source"`
	SourceURL   string   `json:"source_url,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
	Score       float64  `json:"relevance_score"`
}

type SearchResponse struct {
	Results      []*SearchResultResponse `json:"results"`
	TotalFound   int                     `json:"total_found"`
	SearchQuery  string                  `json:"search_query"`
	SearchTimeMs int64                   `json:"search_time_ms"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgID(r.Context())
	if orgID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserQuery == "" {
		api.Error(w, http.StatusBadRequest, "user_query is required")
		return
	}
	if req.ConfigID == "" {
		api.Error(w, http.StatusBadRequest, "config_id is required")
		return
	}

	input := service.SearchRequest{
		Query:      req.UserQuery,
		Intent:     req.Intent,
		MaxResults: req.MaxResults,
		MinScore:   req.MinScore,
	}

	var output *service.SearchResponse
	var err error
	if req.RequireResults {
		output, err = h.svc.SearchRequired(r.Context(), orgID, req.ConfigID, input)
	} else {
		output, err = h.svc.Search(r.Context(), orgID, req.ConfigID, input)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResultResponse, len(output.Items))
	for i, result := range output.Items {
		lastUpdated := ""
		if !result.Item.LastUpdated.IsZero() {
			lastUpdated = result.Item.LastUpdated.UTC().Format(time.RFC3339Nano)
		}
		results[i] = &SearchResultResponse{
			ID:          result.Item.ID,
			Title:       result.Item.Title,
			Content:     result.Item.Content,
			Category:    string(result.Item.Category),
			Tags:        result.Item.Tags,
			Source:      result.Item.Source,
			SourceURL:   result.Item.SourceURL,
			LastUpdated: lastUpdated,
			Score:       result.Score,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Results:      results,
		TotalFound:   output.TotalFound,
		SearchQuery:  output.SearchQuery,
		SearchTimeMs: output.SearchTimeMs,
	})
}

package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	ConfigID       string  `json:"config_id"`
	UserQuery      string  `json:"user_query"`
	Intent         string  `json:"intent,omitempty"`
	MaxResults     int     `json:"max_results,omitempty"`
	MinScore       float64 `json:"min_relevance_score,omitempty"`
	RequireResults bool    `json:"require_results,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category string  `json:"category"`
	Source   string  `json:"source"`
	Score    float64 `json:"relevance_score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalFound   int            `json:"total_found"`
	SearchTimeMs int64          `json:"search_time_ms"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		configID string
		intent   string
		limit    int
		minScore float64
		required bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge corpus",
		Long:  "Ranks the knowledge corpus against a query using semantic relevance.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], configID, intent, limit, minScore, required, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVarP(&intent, "intent", "i", "", "Classified intent hint (e.g. faq_pricing)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum relevance score")
	cmd.Flags().BoolVar(&required, "required", false, "Fail when no item meets the threshold")

	return cmd
}

func runSearch(cmd *cobra.Command, query, configID, intent string, limit int, minScore float64, required, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		ConfigID:       configID,
		UserQuery:      query,
		Intent:         intent,
		MaxResults:     limit,
		MinScore:       minScore,
		RequireResults: required,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results (%dms):\n\n", searchResp.TotalFound, searchResp.SearchTimeMs)
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f) [%s]\n", i+1, result.Title, result.Score, result.Category)
		content := result.Content
		if len(content) > 120 {
			content = content[:117] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s  Source: %s\n", result.ID, result.Source)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}

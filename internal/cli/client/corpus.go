package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// HealthReport represents the corpus health API response.
type HealthReport struct {
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

// CorpusCmd creates the corpus command group.
func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect corpus health and duplicates",
	}

	cmd.AddCommand(corpusHealthCmd())
	cmd.AddCommand(corpusDuplicatesCmd())
	cmd.AddCommand(corpusItemsCmd())

	return cmd
}

func corpusHealthCmd() *cobra.Command {
	var configID string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the corpus health report",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/corpus/health?config_id=" + url.QueryEscape(configID))
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			var report HealthReport
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("failed to parse health report: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				output, _ := json.MarshalIndent(report, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Items:        %d\n", report.ItemCount)
			fmt.Printf("Health score: %.2f\n", report.HealthScore)
			fmt.Printf("  completeness: %.2f  freshness: %.2f\n", report.Completeness, report.Freshness)
			fmt.Printf("  structure:    %.2f  tags:      %.2f\n", report.StructuralConsistency, report.TagCoverage)
			fmt.Printf("  duplicates:   %.2f\n", report.DuplicateRate)
			if len(report.StaleItemIDs) > 0 {
				fmt.Printf("Stale items:  %d\n", len(report.StaleItemIDs))
			}
			for _, alert := range report.Alerts {
				fmt.Printf("ALERT: %s\n", alert)
			}
			for _, rec := range report.Recommendations {
				fmt.Printf("recommend: %s\n", rec)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")

	return cmd
}

func corpusDuplicatesCmd() *cobra.Command {
	var configID string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report exact and near-duplicate items",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/corpus/duplicates?config_id=" + url.QueryEscape(configID))
			if err != nil {
				return fmt.Errorf("duplicate report failed: %w", err)
			}

			var report struct {
				ExactGroups []struct {
					ContentHash string   `json:"content_hash"`
					ItemIDs     []string `json:"item_ids"`
				} `json:"exact_groups"`
				NearPairs []struct {
					ItemA      string  `json:"item_a"`
					ItemB      string  `json:"item_b"`
					Similarity float64 `json:"similarity"`
				} `json:"near_pairs"`
				Clusters []struct {
					ItemIDs    []string `json:"item_ids"`
					AvgPairSim float64  `json:"avg_pair_similarity"`
				} `json:"clusters"`
			}
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("failed to parse duplicate report: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				fmt.Println(string(resp.Data))
				return nil
			}

			fmt.Printf("Exact duplicate groups: %d\n", len(report.ExactGroups))
			for _, group := range report.ExactGroups {
				fmt.Printf("  %s: %s\n", group.ContentHash, strings.Join(group.ItemIDs, ", "))
			}
			fmt.Printf("Near-duplicate pairs: %d\n", len(report.NearPairs))
			for _, pair := range report.NearPairs {
				fmt.Printf("  %s ~ %s (%.2f)\n", pair.ItemA, pair.ItemB, pair.Similarity)
			}
			fmt.Printf("Clusters: %d\n", len(report.Clusters))
			for _, cluster := range report.Clusters {
				fmt.Printf("  [%.2f] %s\n", cluster.AvgPairSim, strings.Join(cluster.ItemIDs, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")

	return cmd
}

func corpusItemsCmd() *cobra.Command {
	var (
		configID string
		cursor   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List corpus items",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			query.Set("config_id", configID)
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			if limit > 0 {
				query.Set("limit", fmt.Sprint(limit))
			}

			resp, err := api.Get("/corpus/items?" + query.Encode())
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var page struct {
				Items []struct {
					ID           string `json:"id"`
					Title        string `json:"title"`
					Category     string `json:"category"`
					Source       string `json:"source"`
					HasEmbedding bool   `json:"has_embedding"`
					LastUpdated  string `json:"last_updated"`
				} `json:"items"`
				Cursor  string `json:"cursor"`
				HasMore bool   `json:"has_more"`
			}
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse items: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				fmt.Println(string(resp.Data))
				return nil
			}

			for _, item := range page.Items {
				embedded := " "
				if item.HasEmbedding {
					embedded = "*"
				}
				fmt.Printf("%s %-40s %-12s %-16s %s\n", embedded, item.ID, item.Category, item.Source, item.Title)
			}
			if page.HasMore && page.Cursor != "" {
				fmt.Printf("\nMore items available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of items")

	return cmd
}

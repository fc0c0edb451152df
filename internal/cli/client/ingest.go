package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Stored   int      `json:"stored"`
	Skipped  int      `json:"skipped"`
	Invalid  []any    `json:"invalid,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// IngestCmd creates the ingest command group.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest knowledge sources",
		Long:  "Converts raw sources (FAQs, documents, crawled pages, catalogs) into searchable knowledge items.",
	}

	cmd.AddCommand(ingestFAQsCmd())
	cmd.AddCommand(ingestDocumentCmd())
	cmd.AddCommand(ingestPagesCmd())
	cmd.AddCommand(ingestCatalogCmd())

	return cmd
}

func ingestFAQsCmd() *cobra.Command {
	var configID, company string

	cmd := &cobra.Command{
		Use:   "faqs <file.json>",
		Short: "Ingest FAQ entries from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(cmd, args[0], "/ingest/faqs", configID, company, "entries")
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&company, "company", "", "Company name for chunk context")

	return cmd
}

func ingestDocumentCmd() *cobra.Command {
	var configID, company, title, url string

	cmd := &cobra.Command{
		Use:   "document <file>",
		Short: "Ingest a long-form document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			if title == "" {
				title = args[0]
			}

			body := map[string]any{
				"config_id":    configID,
				"company_name": company,
				"id":           args[0],
				"title":        title,
				"content":      string(content),
				"url":          url,
			}
			return postIngest(cmd, "/ingest/document", body)
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&company, "company", "", "Company name for chunk context")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to filename)")
	cmd.Flags().StringVar(&url, "url", "", "Source URL")

	return cmd
}

func ingestPagesCmd() *cobra.Command {
	var configID, company string

	cmd := &cobra.Command{
		Use:   "pages <file.json>",
		Short: "Ingest crawled website pages from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(cmd, args[0], "/ingest/pages", configID, company, "pages")
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&company, "company", "", "Company name for chunk context")

	return cmd
}

func ingestCatalogCmd() *cobra.Command {
	var configID, company string

	cmd := &cobra.Command{
		Use:   "catalog <file.json>",
		Short: "Ingest product catalog entries from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(cmd, args[0], "/ingest/catalog", configID, company, "entries")
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&company, "company", "", "Company name for chunk context")

	return cmd
}

// DeleteSourceCmd creates the delete-source command.
func DeleteSourceCmd() *cobra.Command {
	var configID, sourceURL string

	cmd := &cobra.Command{
		Use:   "delete-source <source-type>",
		Short: "Delete all items from one source",
		Long:  "Removes every knowledge item originating from the given source type, optionally narrowed to one URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]any{
				"config_id":   configID,
				"source_type": args[0],
				"source_url":  sourceURL,
			}

			resp, err := api.Delete("/sources", body)
			if err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			var result struct {
				Deleted int64 `json:"deleted"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Deleted %d items.\n", result.Deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configID, "config", "c", "default", "Corpus config ID")
	cmd.Flags().StringVar(&sourceURL, "url", "", "Narrow deletion to one source URL")

	return cmd
}

// runIngestFile reads a JSON array from file and posts it under the given
// payload key.
func runIngestFile(cmd *cobra.Command, path, endpoint, configID, company, payloadKey string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("%s must contain a JSON array: %w", path, err)
	}

	body := map[string]any{
		"config_id":    configID,
		"company_name": company,
		payloadKey:     records,
	}
	return postIngest(cmd, endpoint, body)
}

func postIngest(cmd *cobra.Command, endpoint string, body any) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(endpoint, body)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var result IngestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	outputJSON, _ := cmd.Flags().GetBool("output")
	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Stored %d items, skipped %d unchanged.\n", result.Stored, result.Skipped)
	if len(result.Invalid) > 0 {
		fmt.Printf("%d items failed validation.\n", len(result.Invalid))
	}
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return nil
}

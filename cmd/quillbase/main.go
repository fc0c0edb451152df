package main

import (
	"fmt"
	"os"

	"github.com/quillbase-ai/quillbase/internal/cli"
	"github.com/quillbase-ai/quillbase/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "quillbase",
		Short: "Quillbase CLI - Knowledge retrieval for chat assistants",
		Long: `Quillbase CLI provides commands to ingest and search assistant knowledge.

Environment variables:
  QUILLBASE_API_KEY   API key for authentication (required)
  QUILLBASE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.DeleteSourceCmd())
	rootCmd.AddCommand(client.CorpusCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

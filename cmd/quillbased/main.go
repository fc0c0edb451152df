package main

import (
	"fmt"
	"os"

	"github.com/quillbase-ai/quillbase/internal/cli"
	"github.com/quillbase-ai/quillbase/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quillbased",
		Short: "Quillbase daemon",
		Long:  "Quillbase daemon for running the knowledge retrieval API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

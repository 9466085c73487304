package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qa-forge",
		Short: "QA Forge - LLM-judged QA dataset generation",
		Long: `QA Forge generates question/answer evaluation datasets from a document
corpus, scores them with LLM judges for faithfulness, relevancy and
answerability, and discovers semantic relationships between fragments.

Run 'qa-forge generate' to build a dataset from a corpus.
Run 'qa-forge --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(
		generateCmd(),
		evaluateCmd(),
		relationshipsCmd(),
		datasetsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qa-forge %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

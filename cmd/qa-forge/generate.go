package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/qaforge/qa-forge/internal/evaluation"
	"github.com/qaforge/qa-forge/internal/generation"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate QA candidates from a corpus and filter them through the quality gate",
		Long: `Generate question/answer candidates for each fragment in the corpus,
score them for faithfulness, relevancy and answerability, and keep the
candidates that clear all three thresholds.

The corpus comes from a JSONL file (--input) or a Qdrant collection
(--collection).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			inputPath, _ := cmd.Flags().GetString("input")
			collection, _ := cmd.Flags().GetString("collection")
			dataset, _ := cmd.Flags().GetString("dataset")
			outputPath, _ := cmd.Flags().GetString("output")
			questions, _ := cmd.Flags().GetInt("questions")
			skipFiltering, _ := cmd.Flags().GetBool("skip-filtering")

			ctx := cmd.Context()

			fragments, err := a.loadFragments(ctx, inputPath, collection)
			if err != nil {
				return err
			}
			if len(fragments) == 0 {
				return fmt.Errorf("corpus is empty")
			}

			gate := evaluation.NewQualityGate(a.client, a.thresholds(), a.log)
			generator := generation.NewLLMGenerator(a.client, a.log)
			pipeline := generation.NewPipeline(generator, gate, a.log, a.bus)

			opts := generation.Options{
				QuestionsPerFragment: a.cfg.Generation.QuestionsPerFragment,
				Temperature:          a.cfg.Generation.Temperature,
				MaxTokens:            a.cfg.Generation.MaxTokens,
				SkipFiltering:        skipFiltering || a.cfg.Generation.SkipFiltering,
			}
			if questions > 0 {
				opts.QuestionsPerFragment = questions
			}

			results, err := pipeline.ExecuteBatch(ctx, fragments, opts)
			if err != nil {
				return err
			}

			var kept []evaluation.Candidate
			var generated, survived int
			for _, r := range results {
				kept = append(kept, r.Candidates...)
				generated += r.GeneratedCount
				survived += r.FilteredCount
			}

			if dataset != "" {
				if err := a.store.SaveCandidates(ctx, dataset, kept); err != nil {
					return err
				}
			}
			if outputPath != "" {
				if err := writeJSON(outputPath, kept); err != nil {
					return err
				}
			}

			printCandidateTable(kept)
			printGenerateSummary(len(fragments), generated, survived, dataset)
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "corpus JSONL file")
	cmd.Flags().String("collection", "", "Qdrant collection to read fragments from")
	cmd.Flags().StringP("dataset", "d", "", "dataset name to store results under")
	cmd.Flags().StringP("output", "o", "", "write surviving candidates to a JSON file")
	cmd.Flags().IntP("questions", "q", 0, "questions per fragment (overrides config)")
	cmd.Flags().Bool("skip-filtering", false, "keep all generated candidates without scoring")

	return cmd
}

func printCandidateTable(candidates []evaluation.Candidate) {
	if len(candidates) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Fragment", "Question", "Faith", "Rel", "Ans", "Overall"})

	var data [][]string
	for _, c := range candidates {
		row := []string{
			truncate(c.FragmentID, 16),
			truncate(c.Question, 56),
			metricCell(c.Evaluation, evaluation.MetricFaithfulness),
			metricCell(c.Evaluation, evaluation.MetricRelevancy),
			metricCell(c.Evaluation, evaluation.MetricAnswerability),
			overallCell(c.Evaluation),
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(os.Stderr, "rendering table: %v\n", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "rendering table: %v\n", err)
	}
}

func printGenerateSummary(fragments, generated, survived int, dataset string) {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldYellow := color.New(color.FgYellow, color.Bold).SprintFunc()

	fmt.Printf("\n%s fragments processed, %s candidates generated, %s kept\n",
		boldGreen(fragments), boldYellow(generated), boldGreen(survived))
	if generated > 0 {
		fmt.Printf("pass rate: %s\n", boldGreen(fmt.Sprintf("%.0f%%", 100*float64(survived)/float64(generated))))
	}
	if dataset != "" {
		fmt.Printf("stored as dataset %s\n", boldGreen(dataset))
	}
}

func metricCell(eval *evaluation.CompositeEvaluation, metric string) string {
	if eval == nil {
		return "-"
	}
	var result *evaluation.MetricResult
	switch metric {
	case evaluation.MetricFaithfulness:
		result = eval.Faithfulness
	case evaluation.MetricRelevancy:
		result = eval.Relevancy
	case evaluation.MetricAnswerability:
		result = eval.Answerability
	}
	if result == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", result.Score)
}

func overallCell(eval *evaluation.CompositeEvaluation) string {
	if eval == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", eval.OverallScore())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

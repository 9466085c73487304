package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/qaforge/qa-forge/internal/evaluation"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score existing QA candidates with the LLM judges",
		Long: `Score a candidate set for faithfulness, relevancy and answerability
without filtering anything out. Candidates come from a stored dataset
(--dataset) or a JSON file holding a candidate array (--input).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			inputPath, _ := cmd.Flags().GetString("input")
			dataset, _ := cmd.Flags().GetString("dataset")
			outputPath, _ := cmd.Flags().GetString("output")

			ctx := cmd.Context()

			candidates, err := a.loadCandidates(ctx, inputPath, dataset)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return fmt.Errorf("no candidates to evaluate")
			}

			gate := evaluation.NewQualityGate(a.client, a.thresholds(), a.log)

			evaluated := make([]evaluation.Candidate, 0, len(candidates))
			passed := 0
			for _, cand := range candidates {
				result, err := gate.Evaluate(ctx, cand, evaluation.DefaultOptions())
				if err != nil {
					return err
				}
				if result.Evaluation.PassesThresholds(
					a.cfg.Evaluation.MinFaithfulness,
					a.cfg.Evaluation.MinRelevancy,
					a.cfg.Evaluation.MinAnswerability,
				) {
					passed++
				}
				evaluated = append(evaluated, result)
			}

			if dataset != "" {
				if err := a.store.SaveCandidates(ctx, dataset, evaluated); err != nil {
					return err
				}
			}
			if outputPath != "" {
				if err := writeJSON(outputPath, evaluated); err != nil {
					return err
				}
			}

			printCandidateTable(evaluated)

			boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
			boldRed := color.New(color.FgRed, color.Bold).SprintFunc()
			fmt.Printf("\n%s passed, %s failed of %d candidates\n",
				boldGreen(passed), boldRed(len(evaluated)-passed), len(evaluated))
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "JSON file holding a candidate array")
	cmd.Flags().StringP("dataset", "d", "", "stored dataset to evaluate and update")
	cmd.Flags().StringP("output", "o", "", "write evaluated candidates to a JSON file")

	return cmd
}

// loadCandidates reads candidates from a JSON file or the store, exactly
// one of which must be given.
func (a *app) loadCandidates(ctx context.Context, inputPath, dataset string) ([]evaluation.Candidate, error) {
	switch {
	case inputPath != "" && dataset != "":
		return nil, fmt.Errorf("--input and --dataset are mutually exclusive")

	case inputPath != "":
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("reading candidates file: %w", err)
		}
		var candidates []evaluation.Candidate
		if err := json.Unmarshal(data, &candidates); err != nil {
			return nil, fmt.Errorf("parsing candidates file: %w", err)
		}
		return candidates, nil

	case dataset != "":
		return a.store.LoadCandidates(ctx, dataset)

	default:
		return nil, fmt.Errorf("either --input or --dataset is required")
	}
}

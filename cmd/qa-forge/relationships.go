package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/qaforge/qa-forge/internal/bus"
	"github.com/qaforge/qa-forge/internal/corpus"
	"github.com/qaforge/qa-forge/internal/relationship"
)

func relationshipsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relationships",
		Short: "Discover semantic relationships between corpus fragments",
		Long: `Analyze fragment pairs with the LLM and report typed relationships
(same_topic, elaborates, contradicts, ...) above the confidence floor.

By default every unordered pair is analyzed once. With --source only
that fragment is compared against the rest of the corpus, tolerating
per-pair failures.`,
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
			sourceID, _ := cmd.Flags().GetString("source")

			ctx := cmd.Context()

			fragments, err := a.loadFragments(ctx, inputPath, collection)
			if err != nil {
				return err
			}
			if len(fragments) < 2 {
				return fmt.Errorf("relationship discovery needs at least two fragments")
			}

			engine := relationship.NewEngine(a.client, relationship.Config{
				MinConfidence:  a.cfg.Relationships.MinConfidence,
				MaxPerPair:     a.cfg.Relationships.MaxPerPair,
				EnableParallel: a.cfg.Relationships.EnableParallel,
				MaxParallel:    a.cfg.Relationships.MaxParallel,
			}, a.log)

			var relationships []relationship.Relationship
			if sourceID != "" {
				source, rest, err := splitFragments(fragments, sourceID)
				if err != nil {
					return err
				}
				analysis := engine.AnalyzeRelationships(ctx, source, rest)
				if !analysis.Success {
					fmt.Fprintf(os.Stderr, "partial results: %s\n", analysis.ErrorMessage)
				}
				relationships = analysis.Relationships
			} else {
				relationships, err = engine.DiscoverAll(ctx, fragments)
				if err != nil {
					return err
				}
			}

			for _, rel := range relationships {
				event := bus.NewEvent(bus.TopicRelationshipDiscovered, "relationship-engine", rel)
				if err := a.bus.Publish(ctx, bus.TopicRelationshipDiscovered, event); err != nil {
					a.log.Warn("event publish failed", "topic", bus.TopicRelationshipDiscovered, "error", err)
				}
			}

			if dataset != "" {
				if err := a.store.SaveRelationships(ctx, dataset, relationships); err != nil {
					return err
				}
			}
			if outputPath != "" {
				if err := writeJSON(outputPath, relationships); err != nil {
					return err
				}
			}

			printRelationshipTable(relationships)

			boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
			fmt.Printf("\n%s relationships found across %d fragments\n",
				boldGreen(len(relationships)), len(fragments))
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "corpus JSONL file")
	cmd.Flags().String("collection", "", "Qdrant collection to read fragments from")
	cmd.Flags().StringP("dataset", "d", "", "dataset name to store results under")
	cmd.Flags().StringP("output", "o", "", "write relationships to a JSON file")
	cmd.Flags().StringP("source", "s", "", "analyze one fragment against the rest")

	return cmd
}

// splitFragments separates the named fragment from the rest of the
// corpus.
func splitFragments(fragments []corpus.Fragment, sourceID string) (corpus.Fragment, []corpus.Fragment, error) {
	var source corpus.Fragment
	rest := make([]corpus.Fragment, 0, len(fragments)-1)
	found := false

	for _, f := range fragments {
		if f.ID == sourceID {
			source = f
			found = true
			continue
		}
		rest = append(rest, f)
	}

	if !found {
		return corpus.Fragment{}, nil, fmt.Errorf("fragment %s not found in corpus", sourceID)
	}
	return source, rest, nil
}

func printRelationshipTable(relationships []relationship.Relationship) {
	if len(relationships) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Source", "Target", "Type", "Conf", "Explanation"})

	var data [][]string
	for _, rel := range relationships {
		data = append(data, []string{
			truncate(rel.SourceID, 16),
			truncate(rel.TargetID, 16),
			string(rel.Type),
			fmt.Sprintf("%.2f", rel.Confidence),
			truncate(rel.Explanation, 48),
		})
	}

	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(os.Stderr, "rendering table: %v\n", err)
		return
	}
	if err := table.Render(); err != nil {
		fmt.Fprintf(os.Stderr, "rendering table: %v\n", err)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage stored datasets",
	}

	cmd.AddCommand(datasetsListCmd(), datasetsDeleteCmd())
	return cmd
}

func datasetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()

			names, err := a.store.ListDatasets(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no datasets stored")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header([]string{"Dataset", "Candidates", "Relationships"})

			var data [][]string
			for _, name := range names {
				candidates, err := a.store.LoadCandidates(ctx, name)
				if err != nil {
					return err
				}
				relationships, err := a.store.LoadRelationships(ctx, name)
				if err != nil {
					return err
				}
				data = append(data, []string{
					name,
					fmt.Sprintf("%d", len(candidates)),
					fmt.Sprintf("%d", len(relationships)),
				})
			}

			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		},
	}
}

func datasetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset>",
		Short: "Delete a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteDataset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted dataset %s\n", args[0])
			return nil
		},
	}
}

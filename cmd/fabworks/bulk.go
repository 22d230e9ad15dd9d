package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	bulkFeature string
	bulkState   string
	bulkType    string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Move a feature's descendants to a new state",
	Long: `Transitions every work item under a feature to a new state without
going through an agent. The update is best effort: items that fail are
reported and the rest proceed.

Examples:
  fabworks bulk --feature "Sales Dashboard" --state Closed
  fabworks bulk --feature "Sales Dashboard" --state Active --type task`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.tracker.BulkUpdateState(context.Background(), bulkFeature, bulkState, bulkType)
		if err != nil {
			return err
		}

		for _, item := range result.Items {
			if item.OK {
				fmt.Printf("%s #%d %s (%s)\n", color.GreenString("✓"), item.ID, item.Title, item.Type)
			} else {
				fmt.Printf("%s #%d %s (%s): %s\n", color.RedString("✗"), item.ID, item.Title, item.Type, item.Err)
			}
		}
		fmt.Printf("\nUpdated %d of %d work items under %q to state %q.\n",
			result.Succeeded, result.Attempted, result.Feature, result.State)
		if result.Failed > 0 {
			return fmt.Errorf("%d items failed to update", result.Failed)
		}
		return nil
	},
}

func init() {
	bulkCmd.Flags().StringVar(&bulkFeature, "feature", "", "feature title (required)")
	bulkCmd.Flags().StringVar(&bulkState, "state", "", "target state (required)")
	bulkCmd.Flags().StringVar(&bulkType, "type", "", "only items whose type matches (e.g. task, story)")
	bulkCmd.MarkFlagRequired("feature")
	bulkCmd.MarkFlagRequired("state")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"imgbridge/internal/workflow"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete preview directories older than the retention window",
	RunE:  runSweep,
}

var (
	sweepOlderThan int
	sweepDryRun    bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().IntVar(&sweepOlderThan, "older-than", 0, "age threshold in days (default: preview.retention_days)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report what would be deleted without deleting")
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	out, err := a.svc.Sweep(workflow.SweepInput{
		OlderThanDays: sweepOlderThan,
		DryRun:        sweepDryRun,
	})
	if err != nil {
		return err
	}

	if out.DryRun {
		if len(out.Candidates) == 0 {
			fmt.Println("Nothing to delete")
			return nil
		}
		fmt.Printf("Would delete %d preview directories:\n", len(out.Candidates)+out.More)
		for _, c := range out.Candidates {
			fmt.Printf("  - %s (%d days old)\n", c.Dir, c.AgeDays)
		}
		if out.More > 0 {
			fmt.Printf("  ... and %d more\n", out.More)
		}
		return nil
	}

	fmt.Printf("Deleted %d preview directories\n", out.Deleted)
	for _, e := range out.Errors {
		fmt.Printf("Warning: %s\n", e)
	}
	return nil
}

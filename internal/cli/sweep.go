package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/tasks"
	"github.com/unionhall/claimflow/internal/workflow"
)

var sweepDryRun bool

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Report breaches without raising signals")

	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Raise SLA breach signals on overdue claims",
	Long: `Examine every open claim and raise an SLA_BREACH signal on those
past their deadline.

The sweep is idempotent: claims that already carry an active SLA_BREACH
signal are skipped. Run it from cron or a timer.

Examples:
  claimflow sweep
  claimflow sweep --dry-run`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	sweeper := tasks.NewSLASweeper(database.DB, workflow.NewEngine())
	result, err := sweeper.SweepAll(sweepDryRun)
	if err != nil {
		return ErrDatabase(err, "sweep failed")
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if sweepDryRun {
		OutputLine("Dry run: no signals were raised.")
	}
	OutputLine("Examined: %d open claims", result.Examined)
	OutputLine("Breached: %d", result.Breached)
	OutputLine("Raised: %d", result.Raised)
	if result.Errors > 0 {
		OutputLine("Errors: %d", result.Errors)
	}

	if IsVerbose() {
		for _, item := range result.Results {
			line := fmt.Sprintf("  %s (%s, %s) deadline %s",
				item.ClaimKey, item.Status, item.Priority,
				item.Deadline.Local().Format("2006-01-02 15:04"))
			switch {
			case item.ErrorMessage != "":
				line += " error: " + item.ErrorMessage
			case item.AlreadyOpen:
				line += " already signaled"
			case item.Raised:
				line += " raised"
			}
			OutputLine("%s", line)
		}
	}

	return nil
}

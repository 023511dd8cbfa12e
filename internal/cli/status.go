package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/service"
	"github.com/unionhall/claimflow/internal/workflow"
)

// Status command flags
var statusOrg string

func init() {
	statusCmd.Flags().StringVarP(&statusOrg, "org", "o", "", "Filter by organization")

	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quick status overview",
	Long: `Display a dashboard overview of the current claimflow state.

Shows:
  - Claim counts by status
  - Open claim count
  - Claims at or past their SLA deadline
  - Recent activity

Examples:
  claimflow status               # Global status
  claimflow status --org ACME    # Status for one organization`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewStatusService(database.DB, workflow.NewEngine())
	summary, err := svc.GetSummary(models.NormalizeOrgKey(statusOrg))
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if summary.OrgKey != "" {
		OutputLine("Organization: %s", summary.OrgKey)
	}
	OutputLine("Open claims: %d", summary.Open)
	fmt.Println()

	fmt.Println("By Status:")
	for _, state := range models.AllClaimStates {
		if summary.Counts[state] == 0 {
			continue
		}
		fmt.Printf("  %-17s %d\n", string(state)+":", summary.Counts[state])
	}

	if len(summary.AtRisk) > 0 {
		fmt.Println()
		fmt.Println("SLA Attention:")
		for _, item := range summary.AtRisk {
			label := colorize(colorYellow, "at risk")
			if item.Breached {
				label = colorize(colorRed, "breached")
			}
			fmt.Printf("  %-12s %-16s %-8s %s (deadline %s)\n",
				item.ClaimKey,
				item.Status,
				item.Priority,
				label,
				item.Deadline.Local().Format("2006-01-02"),
			)
		}
	}

	if len(summary.RecentActivity) > 0 {
		fmt.Println()
		fmt.Println("Recent Activity:")
		for _, entry := range summary.RecentActivity {
			line := fmt.Sprintf("  %-12s %-16s %s", entry.ClaimKey, entry.Action, entry.Age)
			if entry.Summary != "" {
				line += "  " + truncate(entry.Summary, 40)
			}
			fmt.Println(line)
		}
	}

	if summary.Open == 0 && len(summary.Counts) == 0 {
		OutputLine("No claims found. File one with: claimflow claim file <ORG> --title <TITLE>")
	}

	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/common"
	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/service"
)

var activityLimit int

func init() {
	claimActivityCmd.Flags().IntVarP(&activityLimit, "limit", "l", 20, "Max entries to show")

	claimCmd.AddCommand(claimMoveCmd)
	claimCmd.AddCommand(claimCloseCmd)
	claimCmd.AddCommand(claimWithdrawCmd)
	claimCmd.AddCommand(claimTransitionsCmd)
	claimCmd.AddCommand(claimActivityCmd)
}

// claim move
var claimMoveCmd = &cobra.Command{
	Use:   "move <CLAIM> <STATUS>",
	Short: "Move a claim to a new status",
	Long: `Move a claim to a new status.

The move is checked against the transition table, your role level,
cooling-off periods, and active critical signals. Denied moves are
still recorded in the claim's activity log.

Examples:
  claimflow claim move ACME-42 acknowledged --role steward
  claimflow claim move ACME-42 investigating --role officer --actor m.okafor`,
	Args: cobra.ExactArgs(2),
	RunE: runClaimMove,
}

func runClaimMove(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	to := models.ClaimState(strings.ToLower(args[1]))
	if !to.IsValid() {
		return ErrInvalidArgs("invalid status: %s", args[1])
	}

	actor, err := cliActor()
	if err != nil {
		return err
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewClaimService(database.DB)
	result, err := svc.Transition(orgKey, number, to, actor)
	if err != nil {
		return err
	}

	outputTransition(result)
	return nil
}

// claim close
var claimCloseCmd = &cobra.Command{
	Use:   "close <CLAIM>",
	Short: "Close a resolved claim",
	Long: `Close a resolved claim after its cooling-off period.

Closing requires admin role and a 7 day dwell in resolved status. An
active critical signal blocks closure.

Example:
  claimflow claim close ACME-42 --role admin`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimClose,
}

func runClaimClose(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	actor, err := cliActor()
	if err != nil {
		return err
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewClaimService(database.DB)
	result, err := svc.Close(orgKey, number, actor)
	if err != nil {
		return err
	}

	outputTransition(result)
	return nil
}

// claim withdraw
var claimWithdrawCmd = &cobra.Command{
	Use:   "withdraw <CLAIM>",
	Short: "Withdraw a claim",
	Long: `Withdraw a claim at the claimant's request.

Withdrawal is terminal. An active legal hold blocks it.

Example:
  claimflow claim withdraw ACME-42`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimWithdraw,
}

func runClaimWithdraw(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	actor, err := cliActor()
	if err != nil {
		return err
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewClaimService(database.DB)
	result, err := svc.Withdraw(orgKey, number, actor)
	if err != nil {
		return err
	}

	outputTransition(result)
	return nil
}

// outputTransition prints an accepted transition result.
func outputTransition(result *service.TransitionResult) {
	if IsJSON() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"claim":    result.Claim.ClaimKey,
			"from":     result.From,
			"to":       result.To,
			"warnings": result.Warnings,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	OutputLine("Moved: %s", result.Claim.ClaimKey)
	OutputLine("Status: %s -> %s", result.From, statusColored(models.ClaimState(result.To)))
	for _, w := range result.Warnings {
		OutputLine("Warning: %s", w)
	}
}

// claim transitions
var claimTransitionsCmd = &cobra.Command{
	Use:   "transitions <CLAIM>",
	Short: "Show allowed transitions for a claim",
	Long: `Show every legal move from the claim's current status, with the
role level each requires and whether your role permits it.

Example:
  claimflow claim transitions ACME-42 --role steward`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimTransitions,
}

func runClaimTransitions(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	actor, err := cliActor()
	if err != nil {
		return err
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewClaimService(database.DB)
	claim, err := svc.Get(orgKey, number)
	if err != nil {
		return err
	}

	options, err := svc.AllowedTransitions(orgKey, number, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"claim":       claim.ClaimKey,
			"status":      claim.Status,
			"transitions": options,
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Claim: %s (%s)", claim.ClaimKey, claim.Status)
	if len(options) == 0 {
		OutputLine("No transitions available; status is terminal.")
		return nil
	}

	fmt.Printf("%-18s %-6s %-10s %s\n", "TO", "LEVEL", "DWELL", "PERMITTED")
	fmt.Println(strings.Repeat("-", 50))
	for _, opt := range options {
		dwell := common.FormatDwell(opt.Requirements.MinimumDwell)
		permitted := "yes"
		if !opt.Permitted {
			permitted = colorize(colorRed, "no")
		}
		fmt.Printf("%-18s %-6d %-10s %s\n",
			opt.To,
			opt.Requirements.RequiredLevel,
			dwell,
			permitted,
		)
	}

	return nil
}

// claim activity
var claimActivityCmd = &cobra.Command{
	Use:   "activity <CLAIM>",
	Short: "Show a claim's activity log",
	Long: `Show the claim's activity log, newest first. Denied transition
attempts appear alongside accepted ones.

Example:
  claimflow claim activity ACME-42 --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimActivity,
}

func runClaimActivity(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	svc := service.NewClaimService(database.DB)
	entries, err := svc.Activity(orgKey, number, activityLimit)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		OutputLine("No activity found.")
		return nil
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%s  %-16s", entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.Action)
		if entry.ToStatus != "" {
			line += fmt.Sprintf(" %s -> %s", entry.FromStatus, entry.ToStatus)
		}
		if entry.ActorID != "" {
			line += fmt.Sprintf(" (%s)", entry.ActorID)
		}
		if entry.ReasonCode != "" && entry.Action == models.ActionStatusDenied {
			line += " [" + entry.ReasonCode + "]"
		}
		if entry.Summary != "" {
			line += "  " + entry.Summary
		}
		fmt.Println(line)
	}

	return nil
}

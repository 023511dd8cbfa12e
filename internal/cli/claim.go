package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/common"
	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/service"
)

// Claim command flags
var (
	claimActorID  string
	claimRole     string
	claimTitle    string
	claimClaimant string
	claimPriority string
	claimOrg      string
	claimStatus   string
	claimListPri  string
	claimOpen     bool
	claimLimit    int
)

// Edit command flags (separate from file to allow empty values)
var (
	claimEditTitle    string
	claimEditClaimant string
	claimEditPriority string
)

func init() {
	// Acting identity, shared by every claim subcommand
	claimCmd.PersistentFlags().StringVar(&claimActorID, "actor", "", "Acting identity (default from config)")
	claimCmd.PersistentFlags().StringVar(&claimRole, "role", "", "Actor role: member, steward, officer, admin, or a numeric level")

	// claim file
	claimFileCmd.Flags().StringVarP(&claimTitle, "title", "t", "", "Claim title (required)")
	claimFileCmd.Flags().StringVarP(&claimClaimant, "claimant", "c", "", "Member the claim is filed for")
	claimFileCmd.Flags().StringVarP(&claimPriority, "priority", "p", "medium", "Priority (urgent, high, medium, low)")
	claimFileCmd.MarkFlagRequired("title")

	// claim list
	claimListCmd.Flags().StringVarP(&claimOrg, "org", "o", "", "Filter by organization")
	claimListCmd.Flags().StringVarP(&claimStatus, "status", "s", "", "Filter by status")
	claimListCmd.Flags().StringVar(&claimListPri, "priority", "", "Filter by priority")
	claimListCmd.Flags().BoolVar(&claimOpen, "open", false, "Show only open claims")
	claimListCmd.Flags().IntVarP(&claimLimit, "limit", "l", 50, "Max claims to show")

	// claim edit
	claimEditCmd.Flags().StringVar(&claimEditTitle, "title", "", "New title")
	claimEditCmd.Flags().StringVar(&claimEditClaimant, "claimant", "", "New claimant")
	claimEditCmd.Flags().StringVar(&claimEditPriority, "priority", "", "New priority")

	// Add subcommands
	claimCmd.AddCommand(claimFileCmd)
	claimCmd.AddCommand(claimListCmd)
	claimCmd.AddCommand(claimShowCmd)
	claimCmd.AddCommand(claimEditCmd)

	rootCmd.AddCommand(claimCmd)
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim management commands",
	Long:  `Manage claims in claimflow. Claims move through a fixed lifecycle from filing to closure.`,
}

// roleLevels maps role names to their numeric levels for the --role flag.
var roleLevels = map[string]int{
	"member":  10,
	"steward": 40,
	"officer": 60,
	"admin":   90,
	"system":  100,
}

// parseRole resolves a --role flag value to a numeric level. Accepts
// role names or bare numbers; empty returns 0 (use the config default).
func parseRole(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if level, ok := roleLevels[strings.ToLower(s)]; ok {
		return level, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n, nil
	}
	return 0, fmt.Errorf("invalid role: %s (use member, steward, officer, admin, or a numeric level)", s)
}

// cliActor builds the acting identity from flags and config.
func cliActor() (service.Actor, error) {
	level, err := parseRole(claimRole)
	if err != nil {
		return service.Actor{}, ErrInvalidArgs("%s", err)
	}
	if level == 0 {
		level = GetRoleLevel()
	}

	id := claimActorID
	if id == "" {
		id = GetActorID()
	}
	if id == "" {
		id = "cli"
	}

	return service.Actor{ID: id, RoleLevel: level, Type: models.ActorTypeUser}, nil
}

// resolveClaimKey parses a claim key like "ACME-42", falling back to the
// default organization for bare numbers.
func resolveClaimKey(key string) (orgKey string, number int, err error) {
	orgKey, number, err = common.ParseClaimKey(key)
	if err != nil {
		return "", 0, ErrInvalidArgsWithSuggestion(SuggestCheckKey, "%s", err)
	}
	if orgKey == "" {
		orgKey = GetDefaultOrg()
	}
	if orgKey == "" {
		return "", 0, ErrInvalidArgs("organization key required (use ORG-NUMBER format or set default_org in config)")
	}
	return orgKey, number, nil
}

// claim file
var claimFileCmd = &cobra.Command{
	Use:   "file <ORG>",
	Short: "File a new claim",
	Long: `File a new claim in the specified organization.

The claim starts in submitted status and is assigned the next number
in the organization's sequence.

Examples:
  claimflow claim file ACME --title "Unpaid overtime, week of 3/2"
  claimflow claim file ACME -t "Denied dental coverage" -c "R. Alvarez" -p high`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimFile,
}

func runClaimFile(cmd *cobra.Command, args []string) error {
	orgKey := models.NormalizeOrgKey(args[0])

	priority := models.Priority(strings.ToLower(claimPriority))
	if !priority.IsValid() {
		return ErrInvalidArgs("invalid priority: %s (must be urgent, high, medium, or low)", claimPriority)
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
	claim, err := svc.File(orgKey, claimTitle, claimClaimant, priority, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(claim, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Filed: %s", claim.ClaimKey)
	OutputLine("Title: %s", claim.Title)
	OutputLine("Status: %s", claim.Status)
	OutputLine("Priority: %s", claim.Priority)

	return nil
}

// claim list
var claimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claims with filtering",
	Long: `List claims with optional filtering by organization, status, or priority.

Examples:
  claimflow claim list --org ACME
  claimflow claim list --status under_review
  claimflow claim list --open --priority urgent`,
	Args: cobra.NoArgs,
	RunE: runClaimList,
}

func runClaimList(cmd *cobra.Command, args []string) error {
	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	filter := db.ClaimFilter{
		Open:  claimOpen,
		Limit: claimLimit,
	}

	orgKey := GetOrgWithDefault(claimOrg)
	if orgKey != "" {
		orgRepo := db.NewOrgRepo(database.DB)
		org, err := orgRepo.GetByKey(models.NormalizeOrgKey(orgKey))
		if err != nil {
			return ErrDatabase(err, "failed to get organization")
		}
		if org == nil {
			return ErrNotFoundWithSuggestion(SuggestListOrgs, "organization %s not found", models.NormalizeOrgKey(orgKey))
		}
		filter.OrganizationID = &org.ID
	}

	if claimStatus != "" {
		status := models.ClaimState(strings.ToLower(claimStatus))
		if !status.IsValid() {
			return ErrInvalidArgs("invalid status: %s", claimStatus)
		}
		filter.Status = &status
	}

	if claimListPri != "" {
		priority := models.Priority(strings.ToLower(claimListPri))
		if !priority.IsValid() {
			return ErrInvalidArgs("invalid priority: %s", claimListPri)
		}
		filter.Priority = &priority
	}

	claimRepo := db.NewClaimRepo(database.DB)
	claims, err := claimRepo.List(filter)
	if err != nil {
		return ErrDatabase(err, "failed to list claims")
	}

	if len(claims) == 0 {
		if IsJSON() {
			fmt.Println("[]")
			return nil
		}
		OutputLine("No claims found.")
		return nil
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	// Table format
	fmt.Printf("%-12s %-16s %-8s %s\n", "KEY", "STATUS", "PRI", "TITLE")
	fmt.Println(strings.Repeat("-", 80))
	for _, c := range claims {
		fmt.Printf("%-12s %-16s %-8s %s\n",
			c.ClaimKey,
			statusColored(c.Status),
			c.Priority,
			truncate(c.Title, 40),
		)
	}

	return nil
}

// statusColored renders a claim status with color when enabled.
func statusColored(s models.ClaimState) string {
	switch s {
	case models.StateResolved, models.StateClosed:
		return colorize(colorGreen, string(s))
	case models.StateRejected, models.StateWithdrawn:
		return colorize(colorRed, string(s))
	default:
		return colorize(colorYellow, string(s))
	}
}

// claim show
var claimShowCmd = &cobra.Command{
	Use:   "show <CLAIM>",
	Short: "Show claim details",
	Long: `Display detailed information about a claim including active signals
and recent history.

Examples:
  claimflow claim show ACME-42`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimShow,
}

type claimShowResult struct {
	*models.Claim
	Signals []*models.Signal      `json:"signals,omitempty"`
	History []*models.ActivityLog `json:"history,omitempty"`
}

func runClaimShow(cmd *cobra.Command, args []string) error {
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
	claim, err := svc.Get(orgKey, number)
	if err != nil {
		return err
	}

	signals, err := svc.Signals(orgKey, number)
	if err != nil {
		return err
	}

	history, err := svc.Activity(orgKey, number, 10)
	if err != nil {
		return err
	}

	result := claimShowResult{
		Claim:   claim,
		Signals: signals,
		History: history,
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Claim: %s\n", claim.ClaimKey)
	fmt.Printf("Title: %s\n", claim.Title)
	if claim.Claimant != "" {
		fmt.Printf("Claimant: %s\n", claim.Claimant)
	}
	fmt.Printf("Status: %s (since %s)\n", statusColored(claim.Status), claim.StatusEnteredAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Priority: %s\n", claim.Priority)
	if claim.ResolvedAt != nil {
		fmt.Printf("Resolved: %s\n", claim.ResolvedAt.Local().Format("2006-01-02 15:04"))
	}
	if claim.ClosedAt != nil {
		fmt.Printf("Closed: %s\n", claim.ClosedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("Filed: %s\n", claim.CreatedAt.Local().Format("2006-01-02 15:04"))

	active := make([]*models.Signal, 0, len(signals))
	for _, sig := range signals {
		if sig.ResolvedAt == nil {
			active = append(active, sig)
		}
	}
	if len(active) > 0 {
		fmt.Println()
		fmt.Println("Active Signals:")
		for _, sig := range active {
			line := fmt.Sprintf("  [%d] %s (%s)", sig.ID, sig.Kind, sig.Severity)
			if sig.Note != "" {
				line += " - " + sig.Note
			}
			fmt.Println(line)
		}
	}

	if len(history) > 0 {
		fmt.Println()
		fmt.Println("Recent History:")
		for _, entry := range history {
			line := fmt.Sprintf("  %s  %s", entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.Action)
			if entry.ToStatus != "" {
				line += fmt.Sprintf(" (%s -> %s)", entry.FromStatus, entry.ToStatus)
			}
			if entry.Summary != "" {
				line += "  " + entry.Summary
			}
			fmt.Println(line)
		}
	}

	return nil
}

// claim edit
var claimEditCmd = &cobra.Command{
	Use:   "edit <CLAIM>",
	Short: "Edit claim fields",
	Long: `Edit a claim's title, claimant, or priority. Status changes go
through 'claimflow claim move' instead.

Examples:
  claimflow claim edit ACME-42 --priority urgent
  claimflow claim edit ACME-42 --title "Unpaid overtime, weeks of 3/2 and 3/9"`,
	Args: cobra.ExactArgs(1),
	RunE: runClaimEdit,
}

func runClaimEdit(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	if claimEditTitle == "" && claimEditClaimant == "" && claimEditPriority == "" {
		return ErrInvalidArgs("at least one of --title, --claimant, or --priority must be provided")
	}

	var title, claimant *string
	var priority *models.Priority
	if claimEditTitle != "" {
		title = &claimEditTitle
	}
	if claimEditClaimant != "" {
		claimant = &claimEditClaimant
	}
	if claimEditPriority != "" {
		p := models.Priority(strings.ToLower(claimEditPriority))
		if !p.IsValid() {
			return ErrInvalidArgs("invalid priority: %s (must be urgent, high, medium, or low)", claimEditPriority)
		}
		priority = &p
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
	claim, err := svc.UpdateFields(orgKey, number, title, claimant, priority, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(claim, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Updated: %s", claim.ClaimKey)
	OutputLine("Title: %s", claim.Title)
	OutputLine("Priority: %s", claim.Priority)

	return nil
}

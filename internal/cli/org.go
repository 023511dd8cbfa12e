package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
)

// Org command flags
var (
	orgName     string
	orgEditName string
)

func init() {
	// org create
	orgCreateCmd.Flags().StringVarP(&orgName, "name", "n", "", "Human-readable organization name (required)")
	orgCreateCmd.MarkFlagRequired("name")

	// org edit
	orgEditCmd.Flags().StringVarP(&orgEditName, "name", "n", "", "Update organization name")

	// Add subcommands
	orgCmd.AddCommand(orgCreateCmd)
	orgCmd.AddCommand(orgListCmd)
	orgCmd.AddCommand(orgShowCmd)
	orgCmd.AddCommand(orgEditCmd)

	rootCmd.AddCommand(orgCmd)
}

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Organization management commands",
	Long:  `Manage organizations in claimflow. Organizations are containers for claims.`,
}

// org create
var orgCreateCmd = &cobra.Command{
	Use:   "create <KEY>",
	Short: "Create a new organization",
	Long: `Create a new organization with the specified key.

The key must be 2-10 uppercase alphanumeric characters starting with a letter.

Examples:
  claimflow org create LOCAL12 --name "Local 12 Machinists"
  claimflow org create ACME -n "ACME Plant Floor"`,
	Args: cobra.ExactArgs(1),
	RunE: runOrgCreate,
}

func runOrgCreate(cmd *cobra.Command, args []string) error {
	key := models.NormalizeOrgKey(args[0])

	if err := models.ValidateOrgKey(key); err != nil {
		return ErrInvalidArgsWithSuggestion(
			"Organization keys must be 2-10 uppercase alphanumeric characters starting with a letter (e.g., LOCAL12, ACME).",
			"invalid organization key: %s", err,
		)
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	repo := db.NewOrgRepo(database.DB)

	// Check if organization already exists
	existing, err := repo.GetByKey(key)
	if err != nil {
		return ErrDatabase(err, "failed to check organization")
	}
	if existing != nil {
		return ErrInvalidArgsWithSuggestion(
			fmt.Sprintf("Use a different key, or run 'claimflow org show %s' to see the existing organization.", key),
			"organization %s already exists", key,
		)
	}

	org := &models.Organization{
		Key:  key,
		Name: orgName,
	}

	if err := repo.Create(org); err != nil {
		return ErrDatabase(err, "failed to create organization")
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(org, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Created organization: %s", org.Key)
	OutputLine("Name: %s", org.Name)

	return nil
}

// org list
var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all organizations",
	Args:  cobra.NoArgs,
	RunE:  runOrgList,
}

func runOrgList(cmd *cobra.Command, args []string) error {
	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	repo := db.NewOrgRepo(database.DB)
	orgs, err := repo.List()
	if err != nil {
		return ErrDatabase(err, "failed to list organizations")
	}

	if len(orgs) == 0 {
		if IsJSON() {
			fmt.Println("[]")
			return nil
		}
		OutputLine("No organizations found. Create one with: claimflow org create <KEY> --name <NAME>")
		return nil
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(orgs, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	// Table format
	fmt.Printf("%-10s %-30s %s\n", "KEY", "NAME", "CREATED")
	fmt.Println(strings.Repeat("-", 60))
	for _, o := range orgs {
		fmt.Printf("%-10s %-30s %s\n",
			o.Key,
			truncate(o.Name, 30),
			o.CreatedAt.Local().Format("2006-01-02"),
		)
	}

	return nil
}

// org show
var orgShowCmd = &cobra.Command{
	Use:   "show <KEY>",
	Short: "Show organization details",
	Long:  `Display detailed information about an organization including claim counts by status.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgShow,
}

type orgShowResult struct {
	*models.Organization
	Counts map[models.ClaimState]int `json:"counts"`
}

func runOrgShow(cmd *cobra.Command, args []string) error {
	key := models.NormalizeOrgKey(args[0])

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	repo := db.NewOrgRepo(database.DB)
	org, err := repo.GetByKey(key)
	if err != nil {
		return ErrDatabase(err, "failed to get organization")
	}
	if org == nil {
		return ErrNotFoundWithSuggestion(SuggestListOrgs, "organization %s not found", key)
	}

	claimRepo := db.NewClaimRepo(database.DB)
	counts, err := claimRepo.StatusCounts(org.ID)
	if err != nil {
		return ErrDatabase(err, "failed to get claim counts")
	}

	result := orgShowResult{
		Organization: org,
		Counts:       counts,
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Organization: %s\n", org.Key)
	fmt.Printf("Name: %s\n", org.Name)
	fmt.Printf("Created: %s\n", org.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()
	fmt.Println("Claim Summary:")
	total := 0
	for _, state := range models.AllClaimStates {
		if counts[state] == 0 {
			continue
		}
		fmt.Printf("  %-17s %d\n", string(state)+":", counts[state])
		total += counts[state]
	}
	fmt.Println("  " + strings.Repeat("-", 18))
	fmt.Printf("  %-17s %d\n", "total:", total)

	return nil
}

// org edit
var orgEditCmd = &cobra.Command{
	Use:   "edit <KEY>",
	Short: "Edit organization properties",
	Long: `Edit an organization's name.

Example:
  claimflow org edit ACME --name "ACME Plant Floor Local"`,
	Args: cobra.ExactArgs(1),
	RunE: runOrgEdit,
}

func runOrgEdit(cmd *cobra.Command, args []string) error {
	key := models.NormalizeOrgKey(args[0])

	if orgEditName == "" {
		return ErrInvalidArgs("--name must be provided")
	}

	database, err := db.Open(GetDBPath())
	if err != nil {
		return ErrDatabaseWithSuggestion(err, SuggestRunInit, "failed to open database")
	}
	defer database.Close()

	repo := db.NewOrgRepo(database.DB)
	org, err := repo.GetByKey(key)
	if err != nil {
		return ErrDatabase(err, "failed to get organization")
	}
	if org == nil {
		return ErrNotFoundWithSuggestion(SuggestListOrgs, "organization %s not found", key)
	}

	org.Name = orgEditName
	if err := repo.Update(org); err != nil {
		return ErrDatabase(err, "failed to update organization")
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(org, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Updated organization: %s", org.Key)
	OutputLine("Name: %s", org.Name)

	return nil
}

// truncate shortens a string to maxLen, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

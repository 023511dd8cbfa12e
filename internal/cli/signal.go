package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/db"
	"github.com/unionhall/claimflow/internal/models"
	"github.com/unionhall/claimflow/internal/service"
)

// Signal command flags
var (
	signalSeverity string
	signalNote     string
	signalAll      bool
)

func init() {
	// Acting identity, shared by every signal subcommand
	signalCmd.PersistentFlags().StringVar(&claimActorID, "actor", "", "Acting identity (default from config)")
	signalCmd.PersistentFlags().StringVar(&claimRole, "role", "", "Actor role: member, steward, officer, admin, or a numeric level")

	// signal raise
	signalRaiseCmd.Flags().StringVarP(&signalSeverity, "severity", "s", "critical", "Severity (critical, warning)")
	signalRaiseCmd.Flags().StringVarP(&signalNote, "note", "n", "", "Free-text note")

	// signal list
	signalListCmd.Flags().BoolVarP(&signalAll, "all", "a", false, "Include resolved signals")

	signalCmd.AddCommand(signalRaiseCmd)
	signalCmd.AddCommand(signalResolveCmd)
	signalCmd.AddCommand(signalListCmd)

	rootCmd.AddCommand(signalCmd)
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Signal management commands",
	Long: `Manage signals on claims. An active critical signal blocks the
transitions its kind gates: SLA_BREACH blocks resolution and closure,
LEGAL_HOLD blocks closure and withdrawal.`,
}

// signal raise
var signalRaiseCmd = &cobra.Command{
	Use:   "raise <CLAIM> <KIND>",
	Short: "Raise a signal on a claim",
	Long: `Raise a signal on a claim.

Kinds: SLA_BREACH, LEGAL_HOLD.

Examples:
  claimflow signal raise ACME-42 LEGAL_HOLD --note "Pending arbitration"
  claimflow signal raise ACME-42 SLA_BREACH -s warning`,
	Args: cobra.ExactArgs(2),
	RunE: runSignalRaise,
}

func runSignalRaise(cmd *cobra.Command, args []string) error {
	orgKey, number, err := resolveClaimKey(args[0])
	if err != nil {
		return err
	}

	kind := models.SignalKind(strings.ToUpper(args[1]))
	if !kind.IsValid() {
		return ErrInvalidArgs("invalid signal kind: %s (must be SLA_BREACH or LEGAL_HOLD)", args[1])
	}

	severity := models.Severity(strings.ToLower(signalSeverity))
	if !severity.IsValid() {
		return ErrInvalidArgs("invalid severity: %s (must be critical or warning)", signalSeverity)
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
	signal, err := svc.RaiseSignal(orgKey, number, kind, severity, signalNote, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(signal, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Raised: %s on %s (id %d, %s)", signal.Kind, signal.ClaimKey, signal.ID, signal.Severity)
	return nil
}

// signal resolve
var signalResolveCmd = &cobra.Command{
	Use:   "resolve <SIGNAL-ID>",
	Short: "Resolve a signal",
	Long: `Resolve a signal by its numeric ID. Resolving is idempotent;
resolving an already-resolved signal is a no-op.

Example:
  claimflow signal resolve 7`,
	Args: cobra.ExactArgs(1),
	RunE: runSignalResolve,
}

func runSignalResolve(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return ErrInvalidArgs("invalid signal id: %s", args[0])
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
	signal, err := svc.ResolveSignal(id, actor)
	if err != nil {
		return err
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(signal, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Resolved: %s on %s (id %d)", signal.Kind, signal.ClaimKey, signal.ID)
	return nil
}

// signal list
var signalListCmd = &cobra.Command{
	Use:   "list <CLAIM>",
	Short: "List signals on a claim",
	Long: `List signals on a claim, newest first. Only active signals are
shown unless --all is given.

Example:
  claimflow signal list ACME-42 --all`,
	Args: cobra.ExactArgs(1),
	RunE: runSignalList,
}

func runSignalList(cmd *cobra.Command, args []string) error {
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
	signals, err := svc.Signals(orgKey, number)
	if err != nil {
		return err
	}

	if !signalAll {
		active := make([]*models.Signal, 0, len(signals))
		for _, sig := range signals {
			if sig.ResolvedAt == nil {
				active = append(active, sig)
			}
		}
		signals = active
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(signals, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(signals) == 0 {
		OutputLine("No signals found.")
		return nil
	}

	fmt.Printf("%-5s %-12s %-9s %-10s %s\n", "ID", "KIND", "SEVERITY", "STATE", "NOTE")
	fmt.Println(strings.Repeat("-", 60))
	for _, sig := range signals {
		state := colorize(colorRed, "active")
		if sig.ResolvedAt != nil {
			state = "resolved"
		}
		fmt.Printf("%-5d %-12s %-9s %-10s %s\n",
			sig.ID,
			sig.Kind,
			sig.Severity,
			state,
			truncate(sig.Note, 30),
		)
	}

	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/unionhall/claimflow/internal/backup"
	"github.com/unionhall/claimflow/internal/config"
	"github.com/unionhall/claimflow/internal/db"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global flags
var (
	dbPath  string
	jsonOut bool
	quiet   bool
	verbose bool
	noColor bool
)

// Global configuration (loaded once at startup)
var globalConfig *config.Config

// Exit codes
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitInvalidArgs        = 2
	ExitNotFound           = 3
	ExitWorkflowRejected   = 4
	ExitDBError            = 5
	ExitConcurrentConflict = 6
)

// skipBackupCommands lists commands that should not trigger automatic backup.
// These are either commands that don't need a database, or that initialize it.
var skipBackupCommands = map[string]bool{
	"help":    true,
	"version": true,
	"init":    true,
}

var rootCmd = &cobra.Command{
	Use:   "claimflow",
	Short: "Claim lifecycle tracking for union locals",
	Long: `Claimflow tracks grievance and benefit claims through a fixed
lifecycle, from filing to closure.

Every status change is checked against the transition table, the actor's
role level, cooling-off periods, and any critical signals on the claim,
and every attempt is recorded in the activity log.

Use "claimflow init" to initialize a new claimflow database.
Use "claimflow --help" to see all available commands.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return runAutoBackup(cmd)
	},
}

func init() {
	// Load global configuration at startup
	var err error
	globalConfig, err = config.Load()
	if err != nil {
		// If config file is invalid, print warning but continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v\n", err)
		globalConfig = config.DefaultConfig()
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default ~/.claimflow/claimflow.db)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Set version template for --version flag
	rootCmd.SetVersionTemplate(fmt.Sprintf("claimflow %s (%s, %s)\n", Version, shortCommit(), shortDate()))

	// Add commands
	rootCmd.AddCommand(versionCmd)
}

// shortCommit returns the first 7 characters of the git commit hash
func shortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// shortDate returns just the date portion of BuildDate (YYYY-MM-DD)
func shortDate() string {
	if len(BuildDate) >= 10 {
		return BuildDate[:10]
	}
	return BuildDate
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// runAutoBackup performs automatic backup if needed before command execution.
// It skips backup for commands that don't need it (help, version, init).
func runAutoBackup(cmd *cobra.Command) error {
	cmdName := cmd.Name()
	if skipBackupCommands[cmdName] {
		return nil
	}

	if globalConfig == nil {
		return nil
	}

	if !globalConfig.Backup.Enabled {
		return nil
	}

	// Get the database path
	path := GetDBPath()
	if path == "" {
		path = db.DefaultDBPath
	}
	path = expandPath(path)

	// No point backing up a database that doesn't exist yet
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	mgr := backup.NewManager(path, globalConfig.Backup)
	backupPath, err := mgr.BackupIfNeeded()
	if err != nil {
		// Log warning but don't fail the command
		VerboseOutput("Warning: automatic backup failed: %v\n", err)
		return nil
	}

	if backupPath != "" && verbose {
		VerboseOutput("Created backup: %s\n", backupPath)
	}

	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home + path[1:]
	}

	return path
}

// GetDBPath returns the database path from flags, config, or default.
// Priority: flag > env > config file > default
func GetDBPath() string {
	// Command-line flag has highest priority
	if dbPath != "" {
		return dbPath
	}
	// Config already handles env > file > default
	if globalConfig != nil {
		return globalConfig.GetDB()
	}
	return "" // Will use default in db.Open
}

// IsJSON returns whether JSON output is requested
func IsJSON() bool {
	return jsonOut
}

// IsNoColor returns whether colored output should be disabled.
// Priority: flag > env > config file > default
func IsNoColor() bool {
	if noColor {
		return true
	}
	if globalConfig != nil {
		return globalConfig.NoColor
	}
	return false
}

// useColor reports whether output should be colorized. Color is used
// only when writing to a terminal and not disabled by flag or config.
func useColor() bool {
	if IsNoColor() || IsJSON() {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ANSI color codes for status output.
const (
	colorRed    = "31"
	colorGreen  = "32"
	colorYellow = "33"
	colorReset  = "\033[0m"
)

// colorize wraps s in the given ANSI color when color output is enabled.
func colorize(code, s string) string {
	if !useColor() {
		return s
	}
	return "\033[" + code + "m" + s + colorReset
}

// GetDefaultOrg returns the default organization key from config.
func GetDefaultOrg() string {
	if globalConfig != nil {
		return globalConfig.DefaultOrg
	}
	return ""
}

// GetOrgWithDefault returns the provided org key or the default from config.
func GetOrgWithDefault(flagOrg string) string {
	if flagOrg != "" {
		return flagOrg
	}
	return GetDefaultOrg()
}

// GetActorID returns the default actor identity from config.
func GetActorID() string {
	if globalConfig != nil {
		return globalConfig.ActorID
	}
	return ""
}

// GetRoleLevel returns the default actor role level from config.
func GetRoleLevel() int {
	if globalConfig != nil && globalConfig.RoleLevel > 0 {
		return globalConfig.RoleLevel
	}
	return 10
}

// GetConfig returns the global configuration.
// This should only be used when direct access to all config values is needed.
func GetConfig() *config.Config {
	if globalConfig != nil {
		return globalConfig
	}
	return config.DefaultConfig()
}

// IsQuiet returns whether quiet mode is enabled
func IsQuiet() bool {
	return quiet
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// Output prints to stdout unless quiet mode is enabled
func Output(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// OutputLine prints a line to stdout unless quiet mode is enabled
func OutputLine(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// VerboseOutput prints to stdout only in verbose mode
func VerboseOutput(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Printf(format, args...)
	}
}

// ErrorOutput prints to stderr
func ErrorOutput(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// ExitWithError prints an error and exits with the given code
func ExitWithError(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(code)
}

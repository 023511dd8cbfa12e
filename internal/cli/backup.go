package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unionhall/claimflow/internal/backup"
	"github.com/unionhall/claimflow/internal/db"
)

func init() {
	backupCmd.AddCommand(backupNowCmd)
	backupCmd.AddCommand(backupListCmd)

	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Database backup commands",
	Long: `Manage rotating database backups.

Backups also run automatically before most commands when enabled in
the config file (they are, by default, at most once per day).`,
}

// backupManager builds a backup manager for the active database.
func backupManager() (*backup.Manager, string, error) {
	path := GetDBPath()
	if path == "" {
		path = db.DefaultDBPath
	}
	path = expandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, "", ErrNotFoundWithSuggestion(SuggestRunInit, "database not found at %s", path)
	}

	return backup.NewManager(path, GetConfig().Backup), path, nil
}

// backup now
var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Create a backup immediately",
	Long:  `Create a database backup now, regardless of the backup interval, and rotate old backups out.`,
	Args:  cobra.NoArgs,
	RunE:  runBackupNow,
}

func runBackupNow(cmd *cobra.Command, args []string) error {
	mgr, _, err := backupManager()
	if err != nil {
		return err
	}

	backupPath, err := mgr.Backup()
	if err != nil {
		return ErrDatabase(err, "backup failed")
	}

	if IsJSON() {
		data, _ := json.MarshalIndent(map[string]string{"backup": backupPath}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	OutputLine("Created backup: %s", backupPath)
	return nil
}

// backup list
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

func runBackupList(cmd *cobra.Command, args []string) error {
	mgr, _, err := backupManager()
	if err != nil {
		return err
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		return ErrDatabase(err, "failed to list backups")
	}

	if IsJSON() {
		if backups == nil {
			backups = []string{}
		}
		data, _ := json.MarshalIndent(backups, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(backups) == 0 {
		OutputLine("No backups found in %s", mgr.GetBackupDir())
		return nil
	}

	OutputLine("Backups in %s:", mgr.GetBackupDir())
	for _, b := range backups {
		info, err := os.Stat(b)
		if err != nil {
			OutputLine("  %s", filepath.Base(b))
			continue
		}
		OutputLine("  %s  %s  %d bytes", filepath.Base(b), info.ModTime().Local().Format("2006-01-02 15:04"), info.Size())
	}

	return nil
}

// Package backup keeps rotating snapshots of the claimflow database.
//
// Claims are never deleted, so the database is the full audit trail of
// every filing and transition. A snapshot is taken before commands run
// when the newest one is older than the configured interval. Snapshots
// are named claimflow.db.bak.1 through claimflow.db.bak.N, 1 newest.
// They are taken while no connection is open, so the WAL sidecar is
// already checkpointed into the main file.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/unionhall/claimflow/internal/config"
)

// BackupPrefix is the prefix for snapshot files.
const BackupPrefix = "claimflow.db.bak."

// Manager takes and rotates database snapshots.
type Manager struct {
	dbPath    string
	backupDir string
	cfg       config.BackupConfig
}

// NewManager creates a manager for the database at dbPath. Snapshots go
// to cfg.Path, or next to the database when unset.
func NewManager(dbPath string, cfg config.BackupConfig) *Manager {
	dir := cfg.Path
	if dir == "" {
		dir = filepath.Dir(dbPath)
	}
	return &Manager{dbPath: dbPath, backupDir: dir, cfg: cfg}
}

// BackupIfNeeded takes a snapshot when backups are enabled, the database
// exists, and the newest snapshot is older than the interval. It returns
// the new snapshot's path, or "" when nothing was done.
func (m *Manager) BackupIfNeeded() (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", nil
	}

	due, err := m.due()
	if err != nil {
		return "", fmt.Errorf("checking if backup needed: %w", err)
	}
	if !due {
		return "", nil
	}

	path, err := m.snapshot()
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	return path, nil
}

// Backup takes a snapshot unconditionally, ignoring the interval check.
func (m *Manager) Backup() (string, error) {
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database not found at %s", m.dbPath)
	}

	path, err := m.snapshot()
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	return path, nil
}

// ListBackups returns the paths of all snapshots, newest first.
func (m *Manager) ListBackups() ([]string, error) {
	return m.list()
}

// GetBackupDir returns the directory snapshots are written to.
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// due reports whether the newest snapshot is older than the interval.
// A missing snapshot is always due.
func (m *Manager) due() (bool, error) {
	backups, err := m.list()
	if err != nil {
		return false, err
	}
	if len(backups) == 0 {
		return true, nil
	}

	info, err := os.Stat(backups[0])
	if err != nil {
		return false, fmt.Errorf("stat backup file: %w", err)
	}
	interval := time.Duration(m.cfg.IntervalHours) * time.Hour
	return time.Since(info.ModTime()) > interval, nil
}

// list returns snapshot paths ordered newest first. Files under the
// prefix whose suffix is not a number are ignored.
func (m *Manager) list() ([]string, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	numbered := make(map[int]string)
	var order []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, ok := snapshotNumber(entry.Name())
		if !ok {
			continue
		}
		numbered[n] = filepath.Join(m.backupDir, entry.Name())
		order = append(order, n)
	}
	sort.Ints(order)

	paths := make([]string, 0, len(order))
	for _, n := range order {
		paths = append(paths, numbered[n])
	}
	return paths, nil
}

// snapshotNumber extracts the rotation number from a snapshot file name.
func snapshotNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, BackupPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, BackupPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// snapshot rotates the existing snapshots and copies the database to
// slot 1.
func (m *Manager) snapshot() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	if err := m.rotate(); err != nil {
		return "", fmt.Errorf("rotating backups: %w", err)
	}

	path := filepath.Join(m.backupDir, BackupPrefix+"1")
	if err := copySnapshot(m.dbPath, path); err != nil {
		return "", fmt.Errorf("copying database: %w", err)
	}
	return path, nil
}

// rotate shifts every snapshot up one slot, oldest first so nothing is
// overwritten. Snapshots pushed past MaxCount are removed.
func (m *Manager) rotate() error {
	backups, err := m.list()
	if err != nil {
		return err
	}

	for i := len(backups) - 1; i >= 0; i-- {
		path := backups[i]
		n, _ := snapshotNumber(filepath.Base(path))

		if n+1 > m.cfg.MaxCount {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting old backup %s: %w", path, err)
			}
			continue
		}
		next := filepath.Join(m.backupDir, fmt.Sprintf("%s%d", BackupPrefix, n+1))
		if err := os.Rename(path, next); err != nil {
			return fmt.Errorf("renaming backup %s to %s: %w", path, next, err)
		}
	}
	return nil
}

// copySnapshot copies src to dst, preserving the source's mode, and
// syncs before returning.
func copySnapshot(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("syncing destination: %w", err)
	}
	return nil
}

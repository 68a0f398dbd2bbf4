package data

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"homologador/internal/config"
	"homologador/internal/logger"
)

const backupPrefix = "homologador_backup_"

// BackupManager snapshots the database file before mutating operations and
// prunes snapshots older than the retention window. Backups are best-effort
// safety: failures are logged, never propagated to the triggering write.
type BackupManager struct {
	cfg *config.Settings
	now func() time.Time
}

func NewBackupManager(cfg *config.Settings) *BackupManager {
	return &BackupManager{cfg: cfg, now: time.Now}
}

// Create copies the live database file into the backups directory under
// homologador_backup_<YYYYMMDD_HHMMSS>[_<suffix>].db, then prunes old
// snapshots. Returns the created path, or "" when the database file does
// not exist yet (not an error: there is nothing to protect).
func (b *BackupManager) Create(suffix string) (string, error) {
	if _, err := os.Stat(b.cfg.DBPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warn.Printf("Skipping backup: database does not exist at %s", b.cfg.DBPath)
			return "", nil
		}
		return "", fmt.Errorf("stat database: %w", err)
	}

	if err := os.MkdirAll(b.cfg.BackupsDir, 0755); err != nil {
		return "", fmt.Errorf("create backups dir: %w", err)
	}

	name := backupPrefix + b.now().Format("20060102_150405")
	if suffix != "" {
		name += "_" + suffix
	}
	name += ".db"
	backupPath := filepath.Join(b.cfg.BackupsDir, name)

	if err := copyFile(b.cfg.DBPath, backupPath); err != nil {
		return "", fmt.Errorf("copy database: %w", err)
	}
	logger.Info.Printf("Backup created: %s", backupPath)

	b.Prune()

	return backupPath, nil
}

// CreateAuto is the pre-write hook: best effort, warnings only.
func (b *BackupManager) CreateAuto() {
	if _, err := b.Create("auto"); err != nil {
		logger.Warn.Printf("Automatic backup failed: %v", err)
	}
}

// Prune deletes every snapshot whose modification time is older than
// now - retention window. Failures are warnings.
func (b *BackupManager) Prune() {
	cutoff := b.now().AddDate(0, 0, -b.cfg.BackupRetentionDays)

	entries, err := os.ReadDir(b.cfg.BackupsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn.Printf("Cannot read backups dir: %v", err)
		}
		return
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(b.cfg.BackupsDir, name)
			if err := os.Remove(path); err != nil {
				logger.Warn.Printf("Cannot delete old backup %s: %v", path, err)
				continue
			}
			deleted++
		}
	}
	if deleted > 0 {
		logger.Info.Printf("Deleted %d old backups", deleted)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

package data

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"homologador/internal/logger"
)

// Base schema. Everything is IF NOT EXISTS so re-initialization is safe.
const baseSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('admin', 'editor', 'viewer')),
	full_name TEXT,
	email TEXT,
	must_change_password INTEGER NOT NULL DEFAULT 0,
	last_login DATETIME,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS homologations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	real_name TEXT NOT NULL,
	logical_name TEXT,
	kb_url TEXT,
	kb_sync INTEGER NOT NULL DEFAULT 0,
	homologation_date TEXT,
	has_previous_versions INTEGER NOT NULL DEFAULT 0,
	repository_location TEXT,
	status TEXT NOT NULL DEFAULT 'Pendiente',
	details TEXT,
	created_by INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER,
	action TEXT NOT NULL,
	table_name TEXT,
	record_id INTEGER,
	old_values TEXT,
	new_values TEXT,
	ip_address TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_homologations_real_name ON homologations(real_name);
CREATE INDEX IF NOT EXISTS idx_homologations_created_at ON homologations(created_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);

CREATE TRIGGER IF NOT EXISTS trg_homologations_updated_at
AFTER UPDATE ON homologations
FOR EACH ROW
BEGIN
	UPDATE homologations SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
END;

CREATE VIEW IF NOT EXISTS v_homologations_with_user AS
SELECT h.id, h.real_name, h.logical_name, h.kb_url, h.kb_sync,
	h.homologation_date, h.has_previous_versions, h.repository_location,
	h.status, h.details, h.created_by, h.created_at, h.updated_at,
	u.username AS creator_username, u.full_name AS creator_full_name
FROM homologations h
LEFT JOIN users u ON u.id = h.created_by;

CREATE VIEW IF NOT EXISTS v_audit_with_user AS
SELECT a.id, a.user_id, a.action, a.table_name, a.record_id,
	a.old_values, a.new_values, a.ip_address, a.timestamp,
	u.username
FROM audit_logs a
LEFT JOIN users u ON u.id = a.user_id;
`

// InitializeDatabase applies the base schema, then every *.sql script found
// in migrationsDir in filename order. A backup is taken first when a
// database file already exists. Migration scripts have no applied-state
// ledger: every run re-executes every script, so scripts must be written to
// be idempotent. An individual script failure is logged and skipped.
func (m *Manager) InitializeDatabase(migrationsDir string) error {
	if _, err := os.Stat(m.cfg.DBPath); err == nil {
		if _, err := m.backups.Create("pre_init"); err != nil {
			logger.Warn.Printf("Pre-init backup failed: %v", err)
		}
	}

	err := m.WithConnection(func(tx *sql.Tx) error {
		_, err := tx.Exec(baseSchema)
		return err
	})
	if err != nil {
		return err
	}
	logger.Info.Println("Database schema initialized")

	m.applyMigrations(migrationsDir)
	return nil
}

func (m *Manager) applyMigrations(dir string) {
	if dir == "" {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Warn.Printf("Cannot create migrations dir %s: %v", dir, err)
			}
			return
		}
		logger.Warn.Printf("Cannot read migrations dir %s: %v", dir, err)
		return
	}

	// ReadDir returns entries sorted by filename; zero-padded prefixes are
	// the caller's job.
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		path := filepath.Join(dir, name)
		script, err := os.ReadFile(path)
		if err != nil {
			logger.Warn.Printf("Cannot read migration %s: %v", name, err)
			continue
		}

		err = m.WithConnection(func(tx *sql.Tx) error {
			_, err := tx.Exec(string(script))
			return err
		})
		if err != nil {
			// Failed migrations are skipped, not fatal: the rest of the
			// batch still runs.
			logger.Warn.Printf("Migration %s failed, skipping: %v", name, err)
			continue
		}
		logger.Info.Printf("Migration applied: %s", name)
	}
}

package data

import (
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"homologador/internal/config"
	"homologador/internal/core"
)

const (
	pragmaForeignKeysOn  = `PRAGMA foreign_keys = ON`
	pragmaJournalModeWAL = `PRAGMA journal_mode = WAL`
	pragmaBusyTimeout    = `PRAGMA busy_timeout = 30000`
)

// Manager owns connection lifetime. Every operation acquires the exclusive
// file lock, opens its own configured connection, runs inside a transaction
// and releases everything on every exit path. There is no connection pool:
// operations from different threads or processes are strictly serialized by
// the lock.
type Manager struct {
	cfg     *config.Settings
	lock    *FileLock
	backups *BackupManager
}

func NewManager(cfg *config.Settings) *Manager {
	return &Manager{
		cfg:     cfg,
		lock:    NewFileLock(cfg.DBPath),
		backups: NewBackupManager(cfg),
	}
}

// Backups exposes the backup manager for on-demand snapshots.
func (m *Manager) Backups() *BackupManager { return m.backups }

// Lock exposes the lock coordinator (tests, diagnostics).
func (m *Manager) Lock() *FileLock { return m.lock }

// Settings returns the resolved configuration this manager was built with.
func (m *Manager) Settings() *config.Settings { return m.cfg }

// WithConnection runs fn inside a guarded unit of work: exclusive lock,
// configured connection (foreign keys, WAL, 30s busy timeout), transaction
// committed on success and rolled back on error. LockError propagates
// unchanged; anything from the driver wraps into DatabaseError.
func (m *Manager) WithConnection(fn func(tx *sql.Tx) error) error {
	if err := m.lock.Acquire(); err != nil {
		return err
	}
	defer m.lock.Release()

	db, err := sql.Open("sqlite", m.cfg.DBPath)
	if err != nil {
		return &core.DatabaseError{Op: "open", Err: err}
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{pragmaForeignKeysOn, pragmaJournalModeWAL, pragmaBusyTimeout} {
		if _, err := db.Exec(pragma); err != nil {
			return &core.DatabaseError{Op: "configure", Err: err}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return &core.DatabaseError{Op: "begin", Err: err}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return wrapDatabaseError("exec", err)
	}

	if err := tx.Commit(); err != nil {
		return &core.DatabaseError{Op: "commit", Err: err}
	}
	return nil
}

// Query runs a read-only statement and hands the rows to scan.
func (m *Manager) Query(query string, args []any, scan func(rows *sql.Rows) error) error {
	return m.WithConnection(func(tx *sql.Tx) error {
		rows, err := tx.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		if err := scan(rows); err != nil {
			return err
		}
		return rows.Err()
	})
}

// Mutate runs a write statement and returns the affected-row count. When
// auto-backup is enabled and the statement mutates data, a snapshot is
// taken first (best effort).
func (m *Manager) Mutate(query string, args ...any) (int64, error) {
	if m.cfg.AutoBackup && isMutation(query) {
		m.backups.CreateAuto()
	}

	var affected int64
	err := m.WithConnection(func(tx *sql.Tx) error {
		res, err := tx.Exec(query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// Insert runs an INSERT and returns the generated identifier. Always takes
// a pre-write snapshot when auto-backup is enabled.
func (m *Manager) Insert(query string, args ...any) (int64, error) {
	if m.cfg.AutoBackup {
		m.backups.CreateAuto()
	}

	var id int64
	err := m.WithConnection(func(tx *sql.Tx) error {
		res, err := tx.Exec(query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func isMutation(query string) bool {
	up := strings.ToUpper(query)
	for _, keyword := range []string{"INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(up, keyword) {
			return true
		}
	}
	return false
}

func wrapDatabaseError(op string, err error) error {
	var dbErr *core.DatabaseError
	var lockErr *core.LockError
	if errors.As(err, &dbErr) || errors.As(err, &lockErr) || errors.Is(err, core.ErrValidation) {
		return err
	}
	return &core.DatabaseError{Op: op, Err: err}
}

package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homologador/internal/core"
)

func TestBackupNoopWhenDatabaseMissing(t *testing.T) {
	cfg := newTestSettings(t)
	b := NewBackupManager(cfg)

	path, err := b.Create("")
	require.NoError(t, err)
	require.Empty(t, path)
}

func TestBackupCreatesTimestampedCopy(t *testing.T) {
	m := newTestManager(t)
	createTestUser(t, m, "alice")

	path, err := m.Backups().Create("manual")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	name := filepath.Base(path)
	require.True(t, strings.HasPrefix(name, "homologador_backup_"))
	require.True(t, strings.HasSuffix(name, "_manual.db"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestBackupDoesNotDisturbLiveData(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")

	repo := NewHomologationRepo(m)
	_, err := repo.Create(&core.Homologation{RealName: "App One", CreatedBy: userID})
	require.NoError(t, err)
	_, err = repo.Create(&core.Homologation{RealName: "App Two", CreatedBy: userID})
	require.NoError(t, err)

	before, err := repo.GetAll()
	require.NoError(t, err)

	_, err = m.Backups().Create("")
	require.NoError(t, err)

	after, err := repo.GetAll()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPruneDeletesOnlyExpiredSnapshots(t *testing.T) {
	m := newTestManager(t)
	createTestUser(t, m, "alice")

	oldPath, err := m.Backups().Create("old")
	require.NoError(t, err)
	keptPath, err := m.Backups().Create("kept")
	require.NoError(t, err)

	// retention_days=30: 31 days old goes, 29 days old stays.
	now := time.Now()
	require.NoError(t, os.Chtimes(oldPath, now, now.AddDate(0, 0, -31)))
	require.NoError(t, os.Chtimes(keptPath, now, now.AddDate(0, 0, -29)))

	m.Backups().Prune()

	_, err = os.Stat(oldPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(keptPath)
	require.NoError(t, err)
}

func TestPruneIgnoresForeignFiles(t *testing.T) {
	m := newTestManager(t)
	createTestUser(t, m, "alice")

	foreign := filepath.Join(m.Settings().BackupsDir, "unrelated.txt")
	require.NoError(t, os.MkdirAll(m.Settings().BackupsDir, 0755))
	require.NoError(t, os.WriteFile(foreign, []byte("keep me"), 0644))
	now := time.Now()
	require.NoError(t, os.Chtimes(foreign, now, now.AddDate(0, 0, -90)))

	m.Backups().Prune()

	_, err := os.Stat(foreign)
	require.NoError(t, err)
}

func TestBackupIsOpenableAsStandaloneDatabase(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")

	repo := NewHomologationRepo(m)
	_, err := repo.Create(&core.Homologation{RealName: "Snapshot Me", CreatedBy: userID})
	require.NoError(t, err)

	path, err := m.Backups().Create("restore")
	require.NoError(t, err)

	// Disaster recovery contract: the snapshot is itself a database.
	restoredCfg := *m.Settings()
	restoredCfg.DBPath = path
	restored := NewManager(&restoredCfg)

	rows, err := NewHomologationRepo(restored).GetAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Snapshot Me", rows[0].RealName)
}

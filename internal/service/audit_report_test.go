package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homologador/internal/core"
)

func TestLoginReport(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "secret123", core.RoleEditor)
	env.createUser(t, "bob", "secret123", core.RoleViewer)

	_, err := env.auth.Authenticate("alice", "secret123", nil)
	require.NoError(t, err)
	_, err = env.auth.Authenticate("alice", "secret123", nil)
	require.NoError(t, err)
	_, err = env.auth.Authenticate("alice", "wrong", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Authenticate("bob", "secret123", nil)
	require.NoError(t, err)
	// Unknown users count toward the failure total but not per-user stats.
	_, err = env.auth.Authenticate("ghost", "x", nil)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	reporter := NewAuditReporter(env.audits, env.users)
	report, err := reporter.LoginReport(7)
	require.NoError(t, err)

	require.Equal(t, 7, report.PeriodDays)
	require.Equal(t, 3, report.TotalSuccessful)
	require.Equal(t, 2, report.TotalFailed)
	require.Equal(t, 2, report.UniqueUsers)

	byName := make(map[string]UserLoginStats)
	for _, st := range report.Users {
		byName[st.Username] = st
	}
	require.Equal(t, 2, byName["alice"].SuccessfulLogins)
	require.Equal(t, 1, byName["alice"].FailedLogins)
	require.NotEmpty(t, byName["alice"].LastLogin)
	require.Equal(t, 1, byName["bob"].SuccessfulLogins)
	require.Equal(t, 0, byName["bob"].FailedLogins)
}

func TestActivityReport(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "alice", "secret123", core.RoleEditor)

	table := "homologations"
	for i := 0; i < 12; i++ {
		recordID := int64(i + 1)
		env.logger.Log(core.AuditLogEntry{
			UserID:    &id,
			Action:    ActionCreate,
			TableName: &table,
			RecordID:  &recordID,
		})
	}
	env.logger.LogLogout(id, nil)

	reporter := NewAuditReporter(env.audits, env.users)
	report, err := reporter.ActivityReport(id, 30)
	require.NoError(t, err)

	require.Equal(t, "alice", report.Username)
	require.Equal(t, 13, report.TotalActivities)
	require.Equal(t, 12, report.ActionBreakdown[ActionCreate])
	require.Equal(t, 1, report.ActionBreakdown[ActionLogout])
	require.Len(t, report.Recent, 10)
}

func TestActivityReportEmpty(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "idle", "secret123", core.RoleViewer)

	reporter := NewAuditReporter(env.audits, env.users)
	report, err := reporter.ActivityReport(id, 30)
	require.NoError(t, err)
	require.Zero(t, report.TotalActivities)
	require.Empty(t, report.Recent)
}

func TestDataChangesReport(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "secret123", core.RoleEditor)
	bob := env.createUser(t, "bob", "secret123", core.RoleEditor)

	table := "homologations"
	log := func(userID int64, action string, recordID int64) {
		env.logger.Log(core.AuditLogEntry{
			UserID:    &userID,
			Action:    action,
			TableName: &table,
			RecordID:  &recordID,
		})
	}
	log(alice, ActionCreate, 1)
	log(alice, ActionUpdate, 1)
	log(bob, ActionUpdate, 2)
	log(bob, ActionDelete, 2)

	// Different table, must not be counted.
	other := "users"
	env.logger.Log(core.AuditLogEntry{UserID: &alice, Action: ActionUpdate, TableName: &other})

	reporter := NewAuditReporter(env.audits, env.users)
	report, err := reporter.DataChangesReport(table, 7)
	require.NoError(t, err)

	require.Equal(t, 4, report.TotalChanges)
	require.Equal(t, 1, report.ActionBreakdown[ActionCreate])
	require.Equal(t, 2, report.ActionBreakdown[ActionUpdate])
	require.Equal(t, 1, report.ActionBreakdown[ActionDelete])
	require.Equal(t, 2, report.RecordsAffected)
	require.Equal(t, 2, report.UsersInvolved)

	total := 0
	for _, n := range report.ChangesByDay {
		total += n
	}
	require.Equal(t, 4, total)
}

func TestReportPeriodExcludesOldEntries(t *testing.T) {
	env := newTestEnv(t)
	id := env.createUser(t, "alice", "secret123", core.RoleEditor)

	env.logger.LogLogout(id, nil)

	reporter := NewAuditReporter(env.audits, env.users)
	report, err := reporter.ActivityReport(id, 30)
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalActivities)

	// Shift the clock far forward so the entry falls outside the window.
	reporter.now = func() time.Time { return time.Now().AddDate(0, 0, 60) }
	report, err = reporter.ActivityReport(id, 30)
	require.NoError(t, err)
	require.Zero(t, report.TotalActivities)
}

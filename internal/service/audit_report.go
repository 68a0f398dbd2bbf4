package service

import (
	"time"

	"homologador/internal/core"
)

// AuditReporter aggregates the audit trail into plain report structs for
// downstream reporting collaborators. No formatting happens here.
type AuditReporter struct {
	audits core.AuditRepository
	users  core.UserRepository
	now    func() time.Time
}

func NewAuditReporter(audits core.AuditRepository, users core.UserRepository) *AuditReporter {
	return &AuditReporter{audits: audits, users: users, now: time.Now}
}

type UserLoginStats struct {
	UserID           int64  `json:"user_id"`
	Username         string `json:"username"`
	SuccessfulLogins int    `json:"successful_logins"`
	FailedLogins     int    `json:"failed_logins"`
	LastLogin        string `json:"last_login,omitempty"`
}

type LoginReport struct {
	PeriodDays      int              `json:"period_days"`
	TotalSuccessful int              `json:"total_successful_logins"`
	TotalFailed     int              `json:"total_failed_logins"`
	UniqueUsers     int              `json:"unique_users"`
	Users           []UserLoginStats `json:"user_statistics"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type ActivityReport struct {
	UserID          int64                 `json:"user_id"`
	Username        string                `json:"username"`
	PeriodDays      int                   `json:"period_days"`
	TotalActivities int                   `json:"total_activities"`
	ActionBreakdown map[string]int        `json:"activity_breakdown"`
	Recent          []core.AuditLogEntry  `json:"recent_activities"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

type DataChangesReport struct {
	TableName       string         `json:"table_name"`
	PeriodDays      int            `json:"period_days"`
	TotalChanges    int            `json:"total_changes"`
	ActionBreakdown map[string]int `json:"action_breakdown"`
	RecordsAffected int            `json:"unique_records_affected"`
	UsersInvolved   int            `json:"users_involved"`
	ChangesByDay    map[string]int `json:"changes_by_day"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// LoginReport summarizes successful and failed logins over the last N days,
// broken down per user.
func (r *AuditReporter) LoginReport(days int) (*LoginReport, error) {
	since := r.sinceFilter(days)

	successes, err := r.audits.Trail(core.Equals("action", ActionLoginSuccess), since)
	if err != nil {
		return nil, err
	}
	failures, err := r.audits.Trail(core.Equals("action", ActionLoginFailed), since)
	if err != nil {
		return nil, err
	}

	stats := make(map[int64]*UserLoginStats)
	for _, entry := range successes {
		if entry.UserID == nil {
			continue
		}
		st := r.statsFor(stats, entry)
		st.SuccessfulLogins++
		ts := entry.Timestamp.Format("2006-01-02 15:04:05")
		if st.LastLogin == "" || ts > st.LastLogin {
			st.LastLogin = ts
		}
	}
	for _, entry := range failures {
		if entry.UserID == nil {
			continue
		}
		r.statsFor(stats, entry).FailedLogins++
	}

	report := &LoginReport{
		PeriodDays:      days,
		TotalSuccessful: len(successes),
		TotalFailed:     len(failures),
		UniqueUsers:     len(stats),
		GeneratedAt:     r.now(),
	}
	for _, st := range stats {
		report.Users = append(report.Users, *st)
	}
	return report, nil
}

// ActivityReport summarizes one user's actions over the last N days, with
// the ten most recent entries.
func (r *AuditReporter) ActivityReport(userID int64, days int) (*ActivityReport, error) {
	entries, err := r.audits.Trail(core.Equals("user_id", userID), r.sinceFilter(days))
	if err != nil {
		return nil, err
	}

	report := &ActivityReport{
		UserID:          userID,
		PeriodDays:      days,
		TotalActivities: len(entries),
		ActionBreakdown: make(map[string]int),
		GeneratedAt:     r.now(),
	}

	if user, err := r.users.GetByID(userID); err == nil && user != nil {
		report.Username = user.Username
	}

	for i, entry := range entries {
		report.ActionBreakdown[entry.Action]++
		if i < 10 {
			report.Recent = append(report.Recent, entry)
		}
	}
	return report, nil
}

// DataChangesReport summarizes mutations against one table over the last N
// days: per-action counts, distinct records and users touched, and a
// per-day histogram.
func (r *AuditReporter) DataChangesReport(tableName string, days int) (*DataChangesReport, error) {
	entries, err := r.audits.Trail(core.Equals("table_name", tableName), r.sinceFilter(days))
	if err != nil {
		return nil, err
	}

	records := make(map[int64]bool)
	users := make(map[int64]bool)
	report := &DataChangesReport{
		TableName:       tableName,
		PeriodDays:      days,
		TotalChanges:    len(entries),
		ActionBreakdown: make(map[string]int),
		ChangesByDay:    make(map[string]int),
		GeneratedAt:     r.now(),
	}

	for _, entry := range entries {
		report.ActionBreakdown[entry.Action]++
		report.ChangesByDay[entry.Timestamp.Format("2006-01-02")]++
		if entry.RecordID != nil {
			records[*entry.RecordID] = true
		}
		if entry.UserID != nil {
			users[*entry.UserID] = true
		}
	}
	report.RecordsAffected = len(records)
	report.UsersInvolved = len(users)
	return report, nil
}

func (r *AuditReporter) sinceFilter(days int) core.Filter {
	// CURRENT_TIMESTAMP stores UTC "YYYY-MM-DD HH:MM:SS".
	since := r.now().UTC().AddDate(0, 0, -days).Format("2006-01-02 15:04:05")
	return core.DateFrom("timestamp", since)
}

func (r *AuditReporter) statsFor(stats map[int64]*UserLoginStats, entry core.AuditLogEntry) *UserLoginStats {
	st, ok := stats[*entry.UserID]
	if !ok {
		st = &UserLoginStats{UserID: *entry.UserID}
		if entry.Username != nil {
			st.Username = *entry.Username
		}
		stats[*entry.UserID] = st
	}
	return st
}

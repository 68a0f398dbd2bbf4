package service

import (
	"homologador/internal/core"
	"homologador/internal/logger"
)

// Audit action codes.
const (
	ActionCreate           = "CREATE"
	ActionUpdate           = "UPDATE"
	ActionDelete           = "DELETE"
	ActionLoginSuccess     = "LOGIN_SUCCESS"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionLogout           = "LOGOUT"
	ActionPasswordChanged  = "PASSWORD_CHANGED"
	ActionDataExport       = "DATA_EXPORT"
	ActionPermissionDenied = "PERMISSION_DENIED"
	ActionUserCreated      = "USER_CREATED"
	ActionUserDeactivated  = "USER_DEACTIVATED"
	ActionSeedDataCreated  = "SEED_DATA_CREATED"
	ActionSystemStartup    = "SYSTEM_STARTUP"
	ActionSystemShutdown   = "SYSTEM_SHUTDOWN"
)

// AuditLogger appends audit entries for every significant action. Audit
// failures are logged and swallowed: observability is best-effort, it never
// blocks the action that triggered it.
type AuditLogger struct {
	audits core.AuditRepository
	users  core.UserRepository
}

func NewAuditLogger(audits core.AuditRepository, users core.UserRepository) *AuditLogger {
	return &AuditLogger{audits: audits, users: users}
}

// Log appends one entry. Never returns an error.
func (a *AuditLogger) Log(e core.AuditLogEntry) {
	if _, err := a.audits.Append(&e); err != nil {
		logger.Warn.Printf("Audit entry %s not recorded: %v", e.Action, err)
	}
}

// LogLoginAttempt records a login success or failure. The user id is
// resolved from the username when possible; unknown usernames log with a
// nil user id (pre-authentication event).
func (a *AuditLogger) LogLoginAttempt(username string, success bool, ipAddress *string, failureReason string) {
	var userID *int64
	if user, err := a.users.GetByUsername(username); err == nil && user != nil {
		userID = &user.ID
	}

	action := ActionLoginFailed
	details := core.FieldMap{"username": username}
	if success {
		action = ActionLoginSuccess
	} else if failureReason != "" {
		details["failure_reason"] = failureReason
	}

	a.Log(core.AuditLogEntry{
		UserID:    userID,
		Action:    action,
		NewValues: details,
		IPAddress: ipAddress,
	})
}

func (a *AuditLogger) LogLogout(userID int64, ipAddress *string) {
	a.Log(core.AuditLogEntry{
		UserID:    &userID,
		Action:    ActionLogout,
		IPAddress: ipAddress,
	})
}

func (a *AuditLogger) LogPasswordChange(userID int64, forced bool, ipAddress *string) {
	a.Log(core.AuditLogEntry{
		UserID:    &userID,
		Action:    ActionPasswordChanged,
		NewValues: core.FieldMap{"forced": forced},
		IPAddress: ipAddress,
	})
}

func (a *AuditLogger) LogDataExport(userID int64, exportType string, recordCount int, filters core.FieldMap, ipAddress *string) {
	details := core.FieldMap{
		"export_type":  exportType,
		"record_count": recordCount,
	}
	if filters != nil {
		details["filters"] = filters
	}
	a.Log(core.AuditLogEntry{
		UserID:    &userID,
		Action:    ActionDataExport,
		NewValues: details,
		IPAddress: ipAddress,
	})
}

// LogSystemEvent records lifecycle events (startup, shutdown). userID may
// be nil before anyone authenticated.
func (a *AuditLogger) LogSystemEvent(action string, details core.FieldMap, userID *int64) {
	a.Log(core.AuditLogEntry{
		UserID:    userID,
		Action:    action,
		NewValues: details,
	})
}

func (a *AuditLogger) LogPermissionDenied(userID int64, attemptedAction, resource string, ipAddress *string) {
	a.Log(core.AuditLogEntry{
		UserID: &userID,
		Action: ActionPermissionDenied,
		NewValues: core.FieldMap{
			"attempted_action": attemptedAction,
			"resource":         resource,
		},
		IPAddress: ipAddress,
	})
}

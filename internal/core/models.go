package core

import (
	"time"
)

// User roles. Permissions derive solely from the role.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Homologation statuses (kept in Spanish, they are stored values).
const (
	StatusPending    = "Pendiente"
	StatusApproved   = "Aprobada"
	StatusRejected   = "Rechazada"
	StatusInProgress = "En Proceso"
)

// Repository locations.
const (
	LocationAESA = "AESA"
	LocationApps = "APPS$"
)

// MaxRealNameLen is the longest accepted real_name.
const MaxRealNameLen = 200

type User struct {
	ID                 int64      `json:"id"`
	Username           string     `json:"username"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	FullName           *string    `json:"full_name"`
	Email              *string    `json:"email"`
	MustChangePassword bool       `json:"must_change_password"`
	LastLogin          *time.Time `json:"last_login"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Homologation struct {
	ID                  int64     `json:"id"`
	RealName            string    `json:"real_name"`
	LogicalName         *string   `json:"logical_name"`
	KBURL               *string   `json:"kb_url"`
	KBSync              bool      `json:"kb_sync"`
	HomologationDate    *string   `json:"homologation_date"` // ISO date, optional
	HasPreviousVersions bool      `json:"has_previous_versions"`
	RepositoryLocation  *string   `json:"repository_location"`
	Status              string    `json:"status"`
	Details             *string   `json:"details"`
	CreatedBy           int64     `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	// Filled when reading through v_homologations_with_user.
	CreatorUsername string  `json:"creator_username,omitempty"`
	CreatorFullName *string `json:"creator_full_name,omitempty"`
}

// FieldMap is a structured before/after snapshot attached to audit entries.
// Serialized as JSON in the old_values/new_values columns.
type FieldMap map[string]any

type AuditLogEntry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"` // nil for pre-authentication events
	Action    string    `json:"action"`
	TableName *string   `json:"table_name"`
	RecordID  *int64    `json:"record_id"`
	OldValues FieldMap  `json:"old_values,omitempty"`
	NewValues FieldMap  `json:"new_values,omitempty"`
	IPAddress *string   `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`

	// Filled when reading through v_audit_with_user.
	Username *string `json:"username,omitempty"`
}

// ValidStatus reports whether s is a recognized homologation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress:
		return true
	}
	return false
}

// ValidRole reports whether r is a recognized user role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

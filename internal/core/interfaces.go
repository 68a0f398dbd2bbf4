package core

// HomologationRepository defines storage operations for homologation records.
type HomologationRepository interface {
	Create(h *Homologation) (int64, error)
	GetByID(id int64) (*Homologation, error)
	GetAll(filters ...Filter) ([]Homologation, error)
	Update(id int64, fields FieldMap) (bool, error)
	Delete(id int64) (bool, error)
	Search(term string) ([]Homologation, error)
}

// UserRepository defines storage operations for users. Users are
// soft-deactivated, never hard-deleted.
type UserRepository interface {
	Create(u *User) (int64, error)
	GetByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	GetAllActive() ([]User, error)
	UpdatePassword(id int64, newHash string) (bool, error)
	UpdateLastLogin(id int64) (bool, error)
	Deactivate(id int64) (bool, error)
}

// AuditRepository defines storage operations for the append-only audit trail.
type AuditRepository interface {
	Append(e *AuditLogEntry) (int64, error)
	Trail(filters ...Filter) ([]AuditLogEntry, error)
}

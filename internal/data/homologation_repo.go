package data

import (
	"database/sql"
	"fmt"
	"strings"

	"homologador/internal/core"
)

// HomologationRepo implements core.HomologationRepository.
type HomologationRepo struct {
	db *Manager
}

func NewHomologationRepo(db *Manager) *HomologationRepo {
	return &HomologationRepo{db: db}
}

const homologationColumns = `id, real_name, logical_name, kb_url, kb_sync,
	homologation_date, has_previous_versions, repository_location,
	status, details, created_by, created_at, updated_at,
	creator_username, creator_full_name`

var homologationFilterFields = map[string]bool{
	"real_name":           true,
	"logical_name":        true,
	"homologation_date":   true,
	"repository_location": true,
	"status":              true,
	"created_by":          true,
}

// Fields accepted by Update, in stable order.
var homologationUpdatableFields = []string{
	"real_name", "logical_name", "kb_url", "kb_sync", "homologation_date",
	"has_previous_versions", "repository_location", "status", "details",
}

// Create validates the record and inserts it. Validation failures are
// rejected before any statement reaches storage.
func (r *HomologationRepo) Create(h *core.Homologation) (int64, error) {
	if err := validateHomologation(h); err != nil {
		return 0, err
	}

	// created_by must reference an existing active user at creation time.
	var active bool
	err := r.db.Query(`SELECT is_active FROM users WHERE id = ?`, []any{h.CreatedBy}, func(rows *sql.Rows) error {
		if !rows.Next() {
			return core.NewValidationError("created_by", fmt.Sprintf("references unknown user %d", h.CreatedBy))
		}
		return rows.Scan(&active)
	})
	if err != nil {
		return 0, err
	}
	if !active {
		return 0, core.NewValidationError("created_by", fmt.Sprintf("references inactive user %d", h.CreatedBy))
	}

	status := h.Status
	if status == "" {
		status = core.StatusPending
	}

	return r.db.Insert(`INSERT INTO homologations
		(real_name, logical_name, kb_url, kb_sync, homologation_date,
		 has_previous_versions, repository_location, status, details, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.RealName, h.LogicalName, h.KBURL, h.KBSync, h.HomologationDate,
		h.HasPreviousVersions, h.RepositoryLocation, status, h.Details, h.CreatedBy)
}

func (r *HomologationRepo) GetByID(id int64) (*core.Homologation, error) {
	var result *core.Homologation
	err := r.db.Query(
		`SELECT `+homologationColumns+` FROM v_homologations_with_user WHERE id = ?`,
		[]any{id},
		func(rows *sql.Rows) error {
			if !rows.Next() {
				return nil
			}
			h, err := scanHomologation(rows)
			if err != nil {
				return err
			}
			result = h
			return nil
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAll returns homologations matching every given filter, newest first.
func (r *HomologationRepo) GetAll(filters ...core.Filter) ([]core.Homologation, error) {
	where, args, err := core.BuildWhere(filters, homologationFilterFields)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + homologationColumns + ` FROM v_homologations_with_user` +
		where + ` ORDER BY created_at DESC, id DESC`

	var out []core.Homologation
	err = r.db.Query(query, args, func(rows *sql.Rows) error {
		for rows.Next() {
			h, err := scanHomologation(rows)
			if err != nil {
				return err
			}
			out = append(out, *h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial field map. Unknown fields are ignored; when no
// recognized field is present, nothing touches storage and ok is false.
func (r *HomologationRepo) Update(id int64, fields core.FieldMap) (bool, error) {
	var setClauses []string
	var args []any

	for _, field := range homologationUpdatableFields {
		value, present := fields[field]
		if !present {
			continue
		}
		if field == "real_name" {
			name, _ := value.(string)
			if err := validateRealName(name); err != nil {
				return false, err
			}
		}
		if field == "status" {
			status, _ := value.(string)
			if !core.ValidStatus(status) {
				return false, core.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
			}
		}
		setClauses = append(setClauses, field+" = ?")
		args = append(args, value)
	}

	if len(setClauses) == 0 {
		return false, nil
	}

	args = append(args, id)
	affected, err := r.db.Mutate(
		`UPDATE homologations SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *HomologationRepo) Delete(id int64) (bool, error) {
	affected, err := r.db.Mutate(`DELETE FROM homologations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Search matches term against real_name, logical_name, details and kb_url.
// real_name matches rank first, then logical_name, then the rest; ties
// break newest-first.
func (r *HomologationRepo) Search(term string) ([]core.Homologation, error) {
	pattern := "%" + term + "%"

	query := `SELECT ` + homologationColumns + ` FROM v_homologations_with_user
	WHERE real_name LIKE ?
	   OR logical_name LIKE ?
	   OR details LIKE ?
	   OR kb_url LIKE ?
	ORDER BY
		CASE
			WHEN real_name LIKE ? THEN 1
			WHEN logical_name LIKE ? THEN 2
			ELSE 3
		END,
		created_at DESC, id DESC`

	args := []any{pattern, pattern, pattern, pattern, pattern, pattern}

	var out []core.Homologation
	err := r.db.Query(query, args, func(rows *sql.Rows) error {
		for rows.Next() {
			h, err := scanHomologation(rows)
			if err != nil {
				return err
			}
			out = append(out, *h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanHomologation(rows *sql.Rows) (*core.Homologation, error) {
	var h core.Homologation
	var logicalName, kbURL, homologationDate, repoLocation, details sql.NullString
	var creatorUsername, creatorFullName sql.NullString
	var kbSync, hasPrev int

	err := rows.Scan(&h.ID, &h.RealName, &logicalName, &kbURL, &kbSync,
		&homologationDate, &hasPrev, &repoLocation,
		&h.Status, &details, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt,
		&creatorUsername, &creatorFullName)
	if err != nil {
		return nil, err
	}

	h.KBSync = kbSync == 1
	h.HasPreviousVersions = hasPrev == 1
	h.LogicalName = nullableString(logicalName)
	h.KBURL = nullableString(kbURL)
	h.HomologationDate = nullableString(homologationDate)
	h.RepositoryLocation = nullableString(repoLocation)
	h.Details = nullableString(details)
	if creatorUsername.Valid {
		h.CreatorUsername = creatorUsername.String
	}
	h.CreatorFullName = nullableString(creatorFullName)
	return &h, nil
}

func validateHomologation(h *core.Homologation) error {
	if err := validateRealName(h.RealName); err != nil {
		return err
	}
	if h.Status != "" && !core.ValidStatus(h.Status) {
		return core.NewValidationError("status", fmt.Sprintf("unknown status %q", h.Status))
	}
	return nil
}

func validateRealName(name string) error {
	if strings.TrimSpace(name) == "" {
		return core.NewValidationError("real_name", "must not be empty")
	}
	if len(name) > core.MaxRealNameLen {
		return core.NewValidationError("real_name", fmt.Sprintf("longer than %d characters", core.MaxRealNameLen))
	}
	return nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

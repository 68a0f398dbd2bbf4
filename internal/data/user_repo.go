package data

import (
	"database/sql"
	"fmt"
	"strings"

	"homologador/internal/core"
)

// UserRepo implements core.UserRepository. Users are soft-deactivated via
// is_active, never hard-deleted.
type UserRepo struct {
	db *Manager
}

func NewUserRepo(db *Manager) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, password_hash, role, full_name, email,
	must_change_password, last_login, is_active, created_at`

func (r *UserRepo) Create(u *core.User) (int64, error) {
	if strings.TrimSpace(u.Username) == "" {
		return 0, core.NewValidationError("username", "must not be empty")
	}
	if u.PasswordHash == "" {
		return 0, core.NewValidationError("password_hash", "must not be empty")
	}
	if !core.ValidRole(u.Role) {
		return 0, core.NewValidationError("role", fmt.Sprintf("unknown role %q", u.Role))
	}

	return r.db.Insert(`INSERT INTO users
		(username, password_hash, role, full_name, email, must_change_password)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, u.Role, u.FullName, u.Email, u.MustChangePassword)
}

// GetByUsername returns the active user with the given name, or nil.
// Deactivated users are invisible here.
func (r *UserRepo) GetByUsername(username string) (*core.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE username = ? AND is_active = 1`, username)
}

func (r *UserRepo) GetByID(id int64) (*core.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetAllActive() ([]core.User, error) {
	var out []core.User
	err := r.db.Query(`SELECT `+userColumns+` FROM users WHERE is_active = 1 ORDER BY username`, nil,
		func(rows *sql.Rows) error {
			for rows.Next() {
				u, err := scanUser(rows)
				if err != nil {
					return err
				}
				out = append(out, *u)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePassword stores a new hash and clears the forced-change flag.
func (r *UserRepo) UpdatePassword(id int64, newHash string) (bool, error) {
	if newHash == "" {
		return false, core.NewValidationError("password_hash", "must not be empty")
	}
	affected, err := r.db.Mutate(
		`UPDATE users SET password_hash = ?, must_change_password = 0 WHERE id = ?`, newHash, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepo) UpdateLastLogin(id int64) (bool, error) {
	affected, err := r.db.Mutate(
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Deactivate soft-deletes a user.
func (r *UserRepo) Deactivate(id int64) (bool, error) {
	affected, err := r.db.Mutate(`UPDATE users SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepo) getOne(query string, arg any) (*core.User, error) {
	var result *core.User
	err := r.db.Query(query, []any{arg}, func(rows *sql.Rows) error {
		if !rows.Next() {
			return nil
		}
		u, err := scanUser(rows)
		if err != nil {
			return err
		}
		result = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanUser(rows *sql.Rows) (*core.User, error) {
	var u core.User
	var fullName, email sql.NullString
	var lastLogin sql.NullTime
	var mustChange, isActive int

	err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &fullName, &email,
		&mustChange, &lastLogin, &isActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	u.FullName = nullableString(fullName)
	u.Email = nullableString(email)
	u.MustChangePassword = mustChange == 1
	u.IsActive = isActive == 1
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

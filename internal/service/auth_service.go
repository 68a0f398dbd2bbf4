package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"homologador/internal/core"
	"homologador/internal/logger"
)

// ErrInvalidCredentials is returned for both unknown users and wrong
// passwords, so callers cannot tell whether a username exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLen = 6

// Session is what a successful authentication hands to the caller.
type Session struct {
	UserID             int64
	Username           string
	Role               string
	FullName           *string
	MustChangePassword bool
	LastLogin          *string
}

// AuthService is the credential-verification collaborator. Hashing is
// bcrypt; every authentication event lands in the audit trail.
type AuthService struct {
	users core.UserRepository
	audit *AuditLogger
}

func NewAuthService(users core.UserRepository, audit *AuditLogger) *AuthService {
	return &AuthService{users: users, audit: audit}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate checks credentials, updates last_login and audits the
// attempt. Failures audit LOGIN_FAILED with a reason and return
// ErrInvalidCredentials.
func (s *AuthService) Authenticate(username, password string, ipAddress *string) (*Session, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.audit.LogLoginAttempt(username, false, ipAddress, "user_not_found")
		return nil, ErrInvalidCredentials
	}

	if !s.VerifyPassword(password, user.PasswordHash) {
		s.audit.LogLoginAttempt(username, false, ipAddress, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	if _, err := s.users.UpdateLastLogin(user.ID); err != nil {
		logger.Warn.Printf("Cannot update last_login for %s: %v", username, err)
	}
	s.audit.LogLoginAttempt(username, true, ipAddress, "")

	session := &Session{
		UserID:             user.ID,
		Username:           user.Username,
		Role:               user.Role,
		FullName:           user.FullName,
		MustChangePassword: user.MustChangePassword,
	}
	if user.LastLogin != nil {
		v := user.LastLogin.Format("2006-01-02 15:04:05")
		session.LastLogin = &v
	}
	return session, nil
}

func (s *AuthService) Logout(userID int64, ipAddress *string) {
	s.audit.LogLogout(userID, ipAddress)
}

// ChangePassword verifies the old password (skipped when the account is
// flagged must_change_password), validates the new one and stores its hash.
func (s *AuthService) ChangePassword(userID int64, oldPassword, newPassword string, ipAddress *string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d not found", userID)
	}

	if !user.MustChangePassword && !s.VerifyPassword(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	ok, err := s.users.UpdatePassword(userID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("password for user %d not updated", userID)
	}

	s.audit.LogPasswordChange(userID, user.MustChangePassword, ipAddress)
	return nil
}

// CreateUser validates the role and password, hashes the password and
// creates the account. When creatorID is non-nil the creation is audited
// against the creator.
func (s *AuthService) CreateUser(username, password, role string, fullName, email *string, mustChangePassword bool, creatorID *int64) (int64, error) {
	if !core.ValidRole(role) {
		return 0, core.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := validatePasswordStrength(password); err != nil {
		return 0, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.users.Create(&core.User{
		Username:           username,
		PasswordHash:       hash,
		Role:               role,
		FullName:           fullName,
		Email:              email,
		MustChangePassword: mustChangePassword,
	})
	if err != nil {
		return 0, err
	}

	if creatorID != nil {
		table := "users"
		s.audit.Log(core.AuditLogEntry{
			UserID:    creatorID,
			Action:    ActionUserCreated,
			TableName: &table,
			RecordID:  &id,
			NewValues: core.FieldMap{"username": username, "role": role},
		})
	}

	logger.Info.Printf("User created: %s (ID %d)", username, id)
	return id, nil
}

// DeactivateUser soft-deletes an account and audits the action.
func (s *AuthService) DeactivateUser(userID int64, actorID int64, ipAddress *string) (bool, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	ok, err := s.users.Deactivate(userID)
	if err != nil || !ok {
		return ok, err
	}

	table := "users"
	s.audit.Log(core.AuditLogEntry{
		UserID:    &actorID,
		Action:    ActionUserDeactivated,
		TableName: &table,
		RecordID:  &userID,
		OldValues: core.FieldMap{"username": user.Username, "is_active": true},
		NewValues: core.FieldMap{"is_active": false},
		IPAddress: ipAddress,
	})
	return true, nil
}

// ResetPassword sets a new password for the named user without checking the
// old one. Admin/CLI recovery path.
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", username)
	}

	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdatePassword(user.ID, hash); err != nil {
		return err
	}
	s.audit.LogPasswordChange(user.ID, true, nil)
	return nil
}

// HasPermission reports whether a role allows an action. Permissions derive
// solely from the role: admin has full CRUD, editor cannot delete, viewer
// only reads.
func HasPermission(role, action string) bool {
	permissions := map[string][]string{
		core.RoleAdmin:  {"create", "read", "update", "delete"},
		core.RoleEditor: {"create", "read", "update"},
		core.RoleViewer: {"read"},
	}
	for _, allowed := range permissions[role] {
		if allowed == action {
			return true
		}
	}
	return false
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLen {
		return core.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	return nil
}

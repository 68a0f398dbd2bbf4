package service

import (
	"homologador/internal/core"
	"homologador/internal/logger"
)

const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
)

// EnsureSeedData creates the default admin account on a fresh database.
// The account is flagged must_change_password so the default credential
// cannot survive the first login. No-op when the admin already exists.
func EnsureSeedData(users core.UserRepository, auth *AuthService, audit *AuditLogger) error {
	existing, err := users.GetByUsername(seedAdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info.Println("Admin user already exists, skipping seed")
		return nil
	}

	fullName := "Administrador del Sistema"
	id, err := auth.CreateUser(seedAdminUsername, seedAdminPassword, core.RoleAdmin,
		&fullName, nil, true, nil)
	if err != nil {
		return err
	}

	audit.Log(core.AuditLogEntry{
		UserID: &id,
		Action: ActionSeedDataCreated,
		NewValues: core.FieldMap{
			"description":        "initial data created",
			"admin_user_created": true,
		},
	})

	logger.Info.Printf("Seed data created, admin user ID %d", id)
	return nil
}

package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// PermissionSeed is one permission row written by the initial seed.
type PermissionSeed struct {
	Name        string
	Description string
}

// DefaultPermissions covers every permission the HTTP routes require.
var DefaultPermissions = []PermissionSeed{
	{"create:user", "Create users"},
	{"update:user", "Update users"},
	{"delete:user", "Delete users"},
	{"list:user", "List users"},
	{"addRole:user", "Add a role to a user"},
	{"deleteRole:user", "Remove a role from a user"},
	{"list:permission", "List permissions"},
	{"create:permission", "Create permissions"},
	{"update:permission", "Update permissions"},
	{"delete:permission", "Delete permissions"},
	{"list:role", "List roles"},
	{"create:role", "Create roles"},
	{"update:role", "Update roles"},
	{"delete:role", "Delete roles"},
}

const (
	AdminRole        = "Admin"
	adminDescription = "System administrator"
	AdminName        = "John Doe"
)

// Hasher is satisfied by helpers.BcryptHasher.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Result reports the ids written by Run.
type Result struct {
	PermissionIDs []int64
	RoleID        int64
	UserID        int64
}

// Seeder writes the initial permissions, the Admin role and the admin
// account. Every statement is an upsert, so running it twice is safe.
type Seeder struct {
	DB          *sql.DB
	Hasher      Hasher
	Logger      *logrus.Logger
	Permissions []PermissionSeed
}

func New(db *sql.DB, hasher Hasher, logger *logrus.Logger) *Seeder {
	return &Seeder{DB: db, Hasher: hasher, Logger: logger, Permissions: DefaultPermissions}
}

// Run seeds everything in one transaction. An existing admin keeps its
// password; only missing links are added.
func (s *Seeder) Run(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, errors.New("seed: admin email and password are required")
	}
	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("seed: hash password: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res := &Result{}
	for _, p := range s.Permissions {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO permissions (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = now()
			RETURNING id
		`, p.Name, p.Description).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", p.Name, err)
		}
		res.PermissionIDs = append(res.PermissionIDs, id)
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO roles (name, description, is_active) VALUES ($1, $2, TRUE)
		ON CONFLICT (name) DO UPDATE SET updated_at = now()
		RETURNING id
	`, AdminRole, adminDescription).Scan(&res.RoleID); err != nil {
		return nil, fmt.Errorf("seed role: %w", err)
	}

	for _, pid := range res.PermissionIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, res.RoleID, pid); err != nil {
			return nil, fmt.Errorf("seed role permission: %w", err)
		}
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, is_active) VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id
	`, email, digest, AdminName).Scan(&res.UserID); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, res.UserID, res.RoleID); err != nil {
		return nil, fmt.Errorf("seed user role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"permissions": len(res.PermissionIDs),
			"role_id":     res.RoleID,
			"user_id":     res.UserID,
			"email":       email,
		}).Info("seed completed")
	}
	return res, nil
}

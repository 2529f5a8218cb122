package repository

import (
	"context"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
)

// RoleRepository persists roles and the role_permissions link table.
// Every read loads the role's permissions.
type RoleRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Role, error)
	// FindByIDs returns only the roles that exist; callers compare counts.
	FindByIDs(ctx context.Context, ids []int64) ([]entity.Role, error)
	FindAll(ctx context.Context) ([]entity.Role, error)
	FindActive(ctx context.Context) ([]entity.Role, error)

	// Create inserts the role and links permissionIDs atomically.
	Create(ctx context.Context, r *entity.Role, permissionIDs []int64) error
	// Update overwrites the scalar fields; a non-nil permissionIDs also
	// replaces the links in the same transaction.
	Update(ctx context.Context, r *entity.Role, permissionIDs []int64) error
	Delete(ctx context.Context, id int64) error

	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AddPermission(ctx context.Context, roleID, permissionID int64) error
	RemovePermission(ctx context.Context, roleID, permissionID int64) error
}

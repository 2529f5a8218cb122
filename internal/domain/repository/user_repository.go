package repository

import (
	"context"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// withRoles loads roles and each role's permissions.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string, withRoles bool) (*entity.User, error)
	FindByID(ctx context.Context, id int64, withRoles bool) (*entity.User, error)
	FindAll(ctx context.Context) ([]entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error

	// ReplaceRoles sets the user's roles to exactly roleIDs in one transaction.
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	AddRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

package repository

import (
	"context"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
)

type PermissionRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Permission, error)
	// FindByIDs returns only the permissions that exist; callers compare counts.
	FindByIDs(ctx context.Context, ids []int64) ([]entity.Permission, error)
	FindAll(ctx context.Context) ([]entity.Permission, error)
	Create(ctx context.Context, p *entity.Permission) error
	Update(ctx context.Context, p *entity.Permission) error
	Delete(ctx context.Context, id int64) error
}

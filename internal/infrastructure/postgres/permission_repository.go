package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

const permissionColumns = `p.id, p.name, p.description, p.created_at, p.updated_at`

type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

func scanPermission(row pgx.Row, p *entity.Permission) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
}

func collectPermissions(rows pgx.Rows) ([]entity.Permission, error) {
	defer rows.Close()
	out := make([]entity.Permission, 0)
	for rows.Next() {
		var p entity.Permission
		if err := scanPermission(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PermissionRepository) FindByID(ctx context.Context, id int64) (*entity.Permission, error) {
	p := &entity.Permission{}
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.id = $1`, id)
	if err := scanPermission(row, p); err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []int64) ([]entity.Permission, error) {
	if len(ids) == 0 {
		return []entity.Permission{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions p WHERE p.id = ANY($1) ORDER BY p.id`, ids)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (r *PermissionRepository) FindAll(ctx context.Context) ([]entity.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions p ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (r *PermissionRepository) Create(ctx context.Context, p *entity.Permission) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Description)
	return mapError(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *PermissionRepository) Update(ctx context.Context, p *entity.Permission) error {
	p.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE permissions SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, p.Name, p.Description, p.UpdatedAt, p.ID)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.PermissionRepository = (*PermissionRepository)(nil)

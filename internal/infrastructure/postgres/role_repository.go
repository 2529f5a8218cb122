package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

const roleColumns = `r.id, r.name, r.description, r.is_active, r.created_at, r.updated_at`

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func scanRole(row pgx.Row, r *entity.Role) error {
	return row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
}

// attachPermissions loads the permissions of every role in one query.
func attachPermissions(ctx context.Context, q querier, roles []entity.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
		roles[i].Permissions = []entity.Permission{}
	}
	rows, err := q.Query(ctx, `
		SELECT rp.role_id, `+permissionColumns+`
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY rp.role_id, p.id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byRole := make(map[int64][]entity.Permission, len(roles))
	for rows.Next() {
		var roleID int64
		var p entity.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		byRole[roleID] = append(byRole[roleID], p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range roles {
		if ps, ok := byRole[roles[i].ID]; ok {
			roles[i].Permissions = ps
		}
	}
	return nil
}

func (r *RoleRepository) queryRoles(ctx context.Context, sql string, args ...any) ([]entity.Role, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	roles := make([]entity.Role, 0)
	for rows.Next() {
		var role entity.Role
		if err := scanRole(rows, &role); err != nil {
			rows.Close()
			return nil, err
		}
		roles = append(roles, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachPermissions(ctx, r.pool, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*entity.Role, error) {
	role := entity.Role{}
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, id)
	if err := scanRole(row, &role); err != nil {
		return nil, mapError(err)
	}
	roles := []entity.Role{role}
	if err := attachPermissions(ctx, r.pool, roles); err != nil {
		return nil, err
	}
	return &roles[0], nil
}

func (r *RoleRepository) FindByIDs(ctx context.Context, ids []int64) ([]entity.Role, error) {
	if len(ids) == 0 {
		return []entity.Role{}, nil
	}
	return r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = ANY($1) ORDER BY r.id`, ids)
}

func (r *RoleRepository) FindAll(ctx context.Context) ([]entity.Role, error) {
	return r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.id`)
}

func (r *RoleRepository) FindActive(ctx context.Context) ([]entity.Role, error) {
	return r.queryRoles(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.is_active ORDER BY r.id`)
}

func (r *RoleRepository) Create(ctx context.Context, role *entity.Role, permissionIDs []int64) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO roles (name, description, is_active)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, role.Name, role.Description, role.IsActive)
		if err := row.Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return mapError(err)
		}
		return insertRolePermissions(ctx, tx, role.ID, permissionIDs)
	})
}

func (r *RoleRepository) Update(ctx context.Context, role *entity.Role, permissionIDs []int64) error {
	role.UpdatedAt = time.Now()
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			UPDATE roles SET name = $1, description = $2, is_active = $3, updated_at = $4
			WHERE id = $5
		`, role.Name, role.Description, role.IsActive, role.UpdatedAt, role.ID)
		if err != nil {
			return mapError(err)
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		if permissionIDs == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role.ID, permissionIDs)
	})
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRow(ctx, tx, "roles", roleID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if err := insertRolePermissions(ctx, tx, roleID, permissionIDs); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE roles SET updated_at = now() WHERE id = $1`, roleID)
		return err
	})
}

func (r *RoleRepository) AddPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
	`, roleID, permissionID)
	return mapError(err)
}

func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func insertRolePermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, roleID, permissionIDs)
	return mapError(err)
}

var _ repository.RoleRepository = (*RoleRepository)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

const userColumns = `u.id, u.email, u.password_hash, u.name, u.is_active, u.created_at, u.updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row, u *entity.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// attachRoles loads roles, and their permissions, for every user.
func attachRoles(ctx context.Context, q querier, users []entity.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]int64, len(users))
	for i := range users {
		ids[i] = users[i].ID
		users[i].Roles = []entity.Role{}
	}
	rows, err := q.Query(ctx, `
		SELECT ur.user_id, `+roleColumns+`
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ur.user_id, r.id
	`, ids)
	if err != nil {
		return err
	}

	type link struct {
		userID int64
		idx    int
	}
	var (
		roles []entity.Role
		links []link
	)
	for rows.Next() {
		var userID int64
		var role entity.Role
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		links = append(links, link{userID: userID, idx: len(roles)})
		roles = append(roles, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if err := attachPermissions(ctx, q, roles); err != nil {
		return err
	}

	pos := make(map[int64]int, len(users))
	for i := range users {
		pos[users[i].ID] = i
	}
	for _, l := range links {
		i := pos[l.userID]
		users[i].Roles = append(users[i].Roles, roles[l.idx])
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any, withRoles bool) (*entity.User, error) {
	u := entity.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg)
	if err := scanUser(row, &u); err != nil {
		return nil, mapError(err)
	}
	if !withRoles {
		return &u, nil
	}
	users := []entity.User{u}
	if err := attachRoles(ctx, r.pool, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string, withRoles bool) (*entity.User, error) {
	return r.findOne(ctx, `u.email = $1`, email, withRoles)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64, withRoles bool) (*entity.User, error) {
	return r.findOne(ctx, `u.id = $1`, id, withRoles)
}

func (r *UserRepository) FindAll(ctx context.Context) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	users := make([]entity.User, 0)
	for rows.Next() {
		var u entity.User
		if err := scanUser(rows, &u); err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachRoles(ctx, r.pool, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.IsActive)
	return mapError(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, name = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`, u.Email, u.Password, u.Name, u.IsActive, u.UpdatedAt, u.ID)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRow(ctx, tx, "users", userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if len(roleIDs) > 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, unnest($2::bigint[])
				ON CONFLICT DO NOTHING
			`, userID, roleIDs)
			if err != nil {
				return mapError(err)
			}
		}
		_, err := tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID)
		return err
	})
}

func (r *UserRepository) AddRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	return mapError(err)
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

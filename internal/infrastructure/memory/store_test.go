package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

func TestStoreConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	users, roles, perms := s.Users(), s.Roles(), s.Permissions()

	p := &entity.Permission{Name: "list:user"}
	require.NoError(t, perms.Create(ctx, p))
	assert.ErrorIs(t, perms.Create(ctx, &entity.Permission{Name: "list:user"}), repository.ErrDuplicate)

	r := &entity.Role{Name: "Admin", IsActive: true}
	assert.ErrorIs(t, roles.Create(ctx, r, []int64{p.ID, 99}), repository.ErrReference)
	require.NoError(t, roles.Create(ctx, r, []int64{p.ID}))

	u := &entity.User{Email: "a@example.com", Name: "A"}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, &entity.User{Email: "a@example.com"}), repository.ErrDuplicate)

	require.NoError(t, users.ReplaceRoles(ctx, u.ID, []int64{r.ID}))
	assert.ErrorIs(t, users.ReplaceRoles(ctx, u.ID, []int64{99}), repository.ErrReference)

	got, err := users.FindByEmail(ctx, "a@example.com", true)
	require.NoError(t, err)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "list:user", got.Roles[0].Permissions[0].Name)

	require.NoError(t, perms.Delete(ctx, p.ID))
	role, err := roles.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, role.Permissions)
}

func TestStoreFailWith(t *testing.T) {
	s := NewStore()
	boom := assert.AnError
	s.FailWith(boom)
	_, err := s.Users().FindAll(context.Background())
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	_, err = s.Users().FindAll(context.Background())
	assert.NoError(t, err)
}

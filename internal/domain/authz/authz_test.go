package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
)

func userWith(perms ...[]string) *entity.User {
	u := &entity.User{ID: 1, Email: "john@example.com"}
	for i, names := range perms {
		role := entity.Role{ID: int64(i + 1), Name: "role"}
		for j, n := range names {
			role.Permissions = append(role.Permissions, entity.Permission{ID: int64(j + 1), Name: n})
		}
		u.Roles = append(u.Roles, role)
	}
	return u
}

func TestRequireNormalizes(t *testing.T) {
	req := Require(" list:user", "create:user", "list:user", "")
	assert.Equal(t, []string{"create:user", "list:user"}, req.Names())
	assert.False(t, req.IsEmpty())
	assert.True(t, Require().IsEmpty())
	assert.True(t, Require("  ").IsEmpty())
}

func TestAuthorizeEmptyRequirementAlwaysAllows(t *testing.T) {
	assert.True(t, Authorize(nil, Requirement{}))
	assert.True(t, Authorize(&entity.User{}, Require()))
}

func TestAuthorizeRequiresEveryPermission(t *testing.T) {
	u := userWith([]string{"list:user"}, []string{"create:user"})

	assert.True(t, Authorize(u, Require("list:user")))
	assert.True(t, Authorize(u, Require("list:user", "create:user")))
	assert.False(t, Authorize(u, Require("list:user", "delete:user")))
	assert.Equal(t, []string{"delete:user"}, Missing(u, Require("list:user", "delete:user")))
}

func TestAuthorizeIsCaseSensitive(t *testing.T) {
	u := userWith([]string{"addRole:user"})
	assert.True(t, Authorize(u, Require("addRole:user")))
	assert.False(t, Authorize(u, Require("addrole:user")))
}

func TestAuthorizeNoRolesOrEmptyRoles(t *testing.T) {
	assert.False(t, Authorize(nil, Require("list:user")))
	assert.False(t, Authorize(&entity.User{ID: 1}, Require("list:user")))
	assert.False(t, Authorize(userWith([]string{}), Require("list:user")))
}

func TestAuthorizeMonotonic(t *testing.T) {
	u := userWith([]string{"list:user"})
	req := Require("list:user", "update:user")
	assert.False(t, Authorize(u, req))

	u.Roles[0].Permissions = append(u.Roles[0].Permissions, entity.Permission{ID: 9, Name: "update:user"})
	assert.True(t, Authorize(u, req))

	// unrelated additions never revoke
	u.Roles[0].Permissions = append(u.Roles[0].Permissions, entity.Permission{ID: 10, Name: "delete:role"})
	assert.True(t, Authorize(u, req))
}

func TestEffectivePermissionsUnion(t *testing.T) {
	u := userWith([]string{"a", "b"}, []string{"b", "c"})
	got := EffectivePermissions(u)
	assert.Len(t, got, 3)
	for _, n := range []string{"a", "b", "c"} {
		assert.Contains(t, got, n)
	}
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/domain/authz"
	"github.com/oksasatya/go-rbac-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/pkg/apperror"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
)

type authFixture struct {
	store *memory.Store
	auth  *AuthService
	roles *RoleService
	users *UserService
	jwt   *helpers.JWTManager
	audit *captureAudit
}

func newAuthFixture(t *testing.T, hasher PasswordHasher) *authFixture {
	t.Helper()
	store := memory.NewStore()
	rec := &captureAudit{}
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	return &authFixture{
		store: store,
		auth:  NewAuthService(store.Users(), hasher, jwt, helpers.NewDiscardLogger(), rec, observability.NewMetrics()),
		roles: NewRoleService(store.Roles(), store.Permissions(), helpers.NewDiscardLogger(), rec),
		users: NewUserService(store.Users(), store.Roles(), hasher, helpers.NewDiscardLogger(), rec),
		jwt:   jwt,
		audit: rec,
	}
}

// seedJohn creates list:user and create:user, an Admin role holding both,
// and John Doe with that role.
func (f *authFixture) seedJohn(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	list, err := f.roles.CreatePermission(ctx, CreatePermissionInput{Name: "list:user"})
	require.NoError(t, err)
	create, err := f.roles.CreatePermission(ctx, CreatePermissionInput{Name: "create:user"})
	require.NoError(t, err)
	admin, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "Admin", PermissionIDs: []int64{list.ID, create.ID}})
	require.NoError(t, err)
	john, err := f.users.CreateUser(ctx, CreateUserInput{Name: "John Doe", Email: "user@example.com", Password: "Password123!"})
	require.NoError(t, err)
	_, err = f.users.AssignRoles(ctx, john.ID, []int64{admin.ID})
	require.NoError(t, err)
	return john.ID
}

func TestLoginScenarioEndToEnd(t *testing.T) {
	f := newAuthFixture(t, helpers.NewBcryptHasher())
	johnID := f.seedJohn(t)
	ctx := context.Background()

	res, err := f.auth.Login(ctx, "user@example.com", "Password123!")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, johnID, res.User.ID)

	claims, err := f.jwt.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, johnID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)

	principal, err := f.auth.LoadPrincipal(ctx, claims.UserID)
	require.NoError(t, err)
	assert.True(t, authz.Authorize(principal, authz.Require("list:user")))
	assert.True(t, authz.Authorize(principal, authz.Require("list:user", "create:user")))
	assert.False(t, authz.Authorize(principal, authz.Require("delete:user")))
	assert.Contains(t, f.audit.actions(), audit.LoginSucceeded)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, plainHasher{})
	f.seedJohn(t)
	ctx := context.Background()

	_, errUnknown := f.auth.Login(ctx, "nobody@example.com", "Password123!")
	_, errWrong := f.auth.Login(ctx, "user@example.com", "wrong")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Same(t, ErrInvalidCredentials, errUnknown)
	assert.Same(t, ErrInvalidCredentials, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, apperror.InvalidCredentials, apperror.KindOf(errWrong))
}

func TestLoginStoreFailureIsNotInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, plainHasher{})
	f.store.FailWith(errors.New("connection refused"))

	_, err := f.auth.Login(context.Background(), "user@example.com", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, apperror.Internal, apperror.KindOf(err))
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t, plainHasher{})
	ctx := context.Background()

	res, err := f.auth.Register(ctx, RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Empty(t, res.User.Roles)
	stored, err := f.store.Users().FindByID(ctx, res.User.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "hashed:secret", stored.Password)

	claims, err := f.jwt.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "Jane 2", Email: "jane@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, apperror.Conflict, apperror.KindOf(err))

	_, err = f.auth.Register(ctx, RegisterInput{Name: " ", Email: "x@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestLoadPrincipalMissingUser(t *testing.T) {
	f := newAuthFixture(t, plainHasher{})
	_, err := f.auth.LoadPrincipal(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(err))
}

func TestLoginReflectsCurrentRoles(t *testing.T) {
	f := newAuthFixture(t, plainHasher{})
	johnID := f.seedJohn(t)
	ctx := context.Background()

	_, err := f.users.AssignRoles(ctx, johnID, nil)
	require.NoError(t, err)

	principal, err := f.auth.LoadPrincipal(ctx, johnID)
	require.NoError(t, err)
	assert.False(t, authz.Authorize(principal, authz.Require("list:user")))
}

func TestLoginUnknownEmailRetriesDummyDigest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	hasher := &flakyHasher{failures: 1}
	store := memory.NewStore()
	svc := NewAuthService(store.Users(), hasher, helpers.NewJWTManager("test-secret", time.Hour), logger, nil, nil)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	_, err = svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 2, hasher.calls)
	assert.Equal(t, "hashed:not-a-real-password", svc.dummy())
	assert.Equal(t, 2, hasher.calls)
	assert.Len(t, hook.Entries, 1)
}

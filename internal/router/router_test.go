package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-rbac-auth/config"
	"github.com/oksasatya/go-rbac-auth/internal/container"
	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
	"github.com/oksasatya/go-rbac-auth/pkg/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	os.Exit(m.Run())
}

type fixture struct {
	engine  *gin.Engine
	store   *memory.Store
	adminID int64
	roleID  int64
}

// newFixture seeds list:user and create:user into an Admin role held by
// John Doe, plus a role-less user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	var permIDs []int64
	for _, name := range []string{"list:user", "create:user"} {
		p := &entity.Permission{Name: name}
		require.NoError(t, store.Permissions().Create(ctx, p))
		permIDs = append(permIDs, p.ID)
	}
	role := &entity.Role{Name: "Admin", IsActive: true}
	require.NoError(t, store.Roles().Create(ctx, role, permIDs))

	hasher := helpers.NewBcryptHasher()
	digest, err := hasher.Hash("Password123!")
	require.NoError(t, err)

	admin := &entity.User{Name: "John Doe", Email: "user@example.com", Password: digest, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, admin))
	require.NoError(t, store.Users().ReplaceRoles(ctx, admin.ID, []int64{role.ID}))

	plain := &entity.User{Name: "Jane Roe", Email: "jane@example.com", Password: digest, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, plain))

	cfg := &config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour, MetricsEnabled: true}
	repos := container.Repositories{Users: store.Users(), Roles: store.Roles(), Permissions: store.Permissions()}
	c := container.New(cfg, helpers.NewDiscardLogger(), repos, nil, observability.NewMetrics())

	return &fixture{engine: NewEngine(c), store: store, adminID: admin.ID, roleID: role.ID}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "Password123!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLoginScenario(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "user@example.com")

	w := f.do(t, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", f.adminID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, string(decode(t, w).Error), "delete:user")
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	f := newFixture(t)

	wrongPwd := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "user@example.com", "password": "nope-nope"})
	unknown := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "nope-nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, wrongPwd.Code, unknown.Code)
	assert.Equal(t, decode(t, wrongPwd).Message, decode(t, unknown).Message)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Contains(t, string(env.Error), "email")
	assert.Contains(t, string(env.Error), "password")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/users", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieFallback(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "user@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: token})
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfileNeedsNoPermission(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "jane@example.com")

	w := f.do(t, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "jane@example.com")

	jane, err := f.store.Users().FindByEmail(context.Background(), "jane@example.com", false)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Delete(context.Background(), jane.ID))

	w := f.do(t, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPermissionChangesApplyOnNextRequest(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "user@example.com")
	ctx := context.Background()

	w := f.do(t, http.MethodGet, "/api/roles", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	p := &entity.Permission{Name: "list:role"}
	require.NoError(t, f.store.Permissions().Create(ctx, p))
	require.NoError(t, f.store.Roles().AddPermission(ctx, f.roleID, p.ID))

	w = f.do(t, http.MethodGet, "/api/roles", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "user@example.com")

	w := f.do(t, http.MethodGet, "/api/users/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/users", token, map[string]string{
		"name": "Dup", "email": "user@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/users", token, map[string]string{
		"name": "New Person", "email": "new@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegisterIssuesToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Sam", "email": "sam@example.com", "password": "weakpass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Sam", "email": "sam@example.com", "password": "Str0ngPass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))

	w = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Sam", "email": "sam@example.com", "password": "Str0ngPass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.login(t, "user@example.com")

	w := f.do(t, http.MethodGet, "/api/debug/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rbac_auth_login_attempts_total")
}

func (f *fixture) grant(t *testing.T, names ...string) {
	t.Helper()
	ctx := context.Background()
	for _, n := range names {
		p := &entity.Permission{Name: n}
		require.NoError(t, f.store.Permissions().Create(ctx, p))
		require.NoError(t, f.store.Roles().AddPermission(ctx, f.roleID, p.ID))
	}
}

func TestRoleAdministration(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "create:permission", "list:role", "create:role", "update:role", "delete:role")
	token := f.login(t, "user@example.com")

	w := f.do(t, http.MethodPost, "/api/roles/permissions", token, map[string]string{"name": "export"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/roles/permissions", token, map[string]string{"name": "export:report"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var perm entity.Permission
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &perm))

	w = f.do(t, http.MethodPost, "/api/roles", token, map[string]any{"name": "Auditor", "permission_ids": []int64{perm.ID, 9999}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/roles", token, map[string]any{"name": "Auditor", "permission_ids": []int64{perm.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var role entity.Role
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &role))

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/roles/%d/permissions/%d", role.ID, perm.ID), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/roles/%d/permissions", role.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var perms []entity.Permission
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &perms))
	require.Len(t, perms, 1)
	assert.Equal(t, "export:report", perms[0].Name)

	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/roles/%d/toggle", role.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &role))
	assert.False(t, role.IsActive)

	w = f.do(t, http.MethodDelete, fmt.Sprintf("/api/roles/%d", role.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/roles/%d", role.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCanSetActiveFlag(t *testing.T) {
	f := newFixture(t)
	f.grant(t, "update:user")
	token := f.login(t, "user@example.com")

	w := f.do(t, http.MethodPost, "/api/users", token, map[string]any{
		"name": "Idle Person", "email": "idle@example.com", "password": "secret1", "is_active": false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u entity.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
	assert.False(t, u.IsActive)

	w = f.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", u.ID), token, map[string]any{"is_active": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
	assert.True(t, u.IsActive)

	// the profile endpoint ignores is_active
	w = f.do(t, http.MethodPut, "/api/users/profile", token, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
	assert.True(t, u.IsActive)
}

package container

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/config"
	"github.com/oksasatya/go-rbac-auth/internal/application"
	"github.com/oksasatya/go-rbac-auth/internal/audit"
	repo "github.com/oksasatya/go-rbac-auth/internal/domain/repository"
	pginfra "github.com/oksasatya/go-rbac-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
)

// Repositories groups the store implementations the services depend on.
type Repositories struct {
	Users       repo.UserRepository
	Roles       repo.RoleRepository
	Permissions repo.PermissionRepository
}

func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       pginfra.NewUserRepository(pool),
		Roles:       pginfra.NewRoleRepository(pool),
		Permissions: pginfra.NewPermissionRepository(pool),
	}
}

// Container holds the constructed application components. It is built once
// in main and handed to the router; nothing reads it globally.
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *observability.Metrics
	Audit   audit.Recorder
	JWT     *helpers.JWTManager
	Cookies *helpers.Manager
	Repos   Repositories

	AuthService *application.AuthService
	UserService *application.UserService
	RoleService *application.RoleService
}

func New(cfg *config.Config, logger *logrus.Logger, repos Repositories, rec audit.Recorder, metrics *observability.Metrics) *Container {
	if rec == nil {
		rec = audit.LogRecorder{Logger: logger}
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	jwt := helpers.NewJWTManager(cfg.JWTSecret, ttl)
	hasher := helpers.NewBcryptHasher()

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Audit:   rec,
		JWT:     jwt,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Repos:   repos,

		AuthService: application.NewAuthService(repos.Users, hasher, jwt, logger, rec, metrics),
		UserService: application.NewUserService(repos.Users, repos.Roles, hasher, logger, rec),
		RoleService: application.NewRoleService(repos.Roles, repos.Permissions, logger, rec),
	}
}

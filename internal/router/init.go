package router

import (
	"github.com/oksasatya/go-rbac-auth/internal/container"
	handlers "github.com/oksasatya/go-rbac-auth/internal/interface/http"
	"github.com/oksasatya/go-rbac-auth/internal/interface/middleware"
	"github.com/oksasatya/go-rbac-auth/internal/router/modules"
)

// InitModules builds the handlers from c and adds every feature module to
// the registry. Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	guard := modules.Guard{
		Auth:    middleware.Authenticate(c.JWT, c.AuthService, c.Metrics),
		Metrics: c.Metrics,
	}

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(c.AuthService, c.Logger, c.Cookies), guard))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(c.UserService, c.Logger), guard))
	r.Add(modules.NewRoleModule(handlers.NewRoleHandler(c.RoleService, c.Logger), guard))
	if c.Config.MetricsEnabled && c.Metrics != nil {
		r.Add(modules.NewDebugModule(c.Metrics))
	}
}

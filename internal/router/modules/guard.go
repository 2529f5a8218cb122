package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-rbac-auth/internal/domain/authz"
	"github.com/oksasatya/go-rbac-auth/internal/interface/middleware"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
)

// Guard carries the authentication middleware and builds per-route
// permission checks.
type Guard struct {
	Auth    gin.HandlerFunc
	Metrics *observability.Metrics
}

// Can requires every named permission.
func (g Guard) Can(names ...string) gin.HandlerFunc {
	return middleware.RequirePermissions(authz.Require(names...), g.Metrics)
}

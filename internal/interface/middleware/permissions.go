package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-rbac-auth/internal/domain/authz"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/pkg/response"
)

// RequirePermissions admits the request only when the principal holds every
// permission in req. An empty requirement admits any authenticated caller.
func RequirePermissions(req authz.Requirement, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if req.IsEmpty() {
			c.Next()
			return
		}
		user, ok := Principal(c)
		if !ok {
			response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		allowed := authz.Authorize(user, req)
		metrics.ObserveAuthz(allowed)
		if !allowed {
			response.Error[any](c, http.StatusForbidden, "insufficient permissions", map[string]any{
				"required": req.Names(),
			})
			return
		}
		c.Next()
	}
}

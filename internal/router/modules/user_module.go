package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-rbac-auth/internal/interface/http"
)

type UserModule struct {
	Handler *handlers.UserHandler
	Guard   Guard
}

func NewUserModule(h *handlers.UserHandler, g Guard) *UserModule {
	return &UserModule{Handler: h, Guard: g}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	users := rg.Group("/users", g.Auth)
	{
		// any authenticated user
		users.GET("/profile", m.Handler.GetProfile)
		users.PUT("/profile", m.Handler.UpdateProfile)

		users.POST("", g.Can("create:user"), m.Handler.Create)
		users.GET("", g.Can("list:user"), m.Handler.List)
		users.GET("/:id", g.Can("list:user"), m.Handler.Get)
		users.GET("/:id/roles", g.Can("list:user"), m.Handler.GetRoles)
		users.PUT("/:id", g.Can("update:user"), m.Handler.Update)
		users.PUT("/:id/roles", g.Can("update:user"), m.Handler.AssignRoles)
		users.POST("/:id/roles/:roleId", g.Can("update:user"), m.Handler.AddRole)
		users.DELETE("/:id/roles/:roleId", g.Can("update:user"), m.Handler.RemoveRole)
		users.DELETE("/:id", g.Can("delete:user"), m.Handler.Delete)
	}
}

package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-rbac-auth/internal/interface/http"
)

type RoleModule struct {
	Handler *handlers.RoleHandler
	Guard   Guard
}

func NewRoleModule(h *handlers.RoleHandler, g Guard) *RoleModule {
	return &RoleModule{Handler: h, Guard: g}
}

func (m *RoleModule) Register(rg *gin.RouterGroup) {
	g := m.Guard
	roles := rg.Group("/roles", g.Auth)

	perms := roles.Group("/permissions")
	{
		perms.GET("", g.Can("list:permission"), m.Handler.ListPermissions)
		perms.GET("/:id", g.Can("list:permission"), m.Handler.GetPermission)
		perms.POST("", g.Can("create:permission"), m.Handler.CreatePermission)
		perms.PUT("/:id", g.Can("update:permission"), m.Handler.UpdatePermission)
		perms.DELETE("/:id", g.Can("delete:permission"), m.Handler.DeletePermission)
	}

	roles.GET("", g.Can("list:role"), m.Handler.List)
	roles.GET("/active", g.Can("list:role"), m.Handler.ListActive)
	roles.GET("/:id", g.Can("list:role"), m.Handler.Get)
	roles.GET("/:id/permissions", g.Can("list:role"), m.Handler.GetPermissions)
	roles.POST("", g.Can("create:role"), m.Handler.Create)
	roles.PUT("/:id", g.Can("update:role"), m.Handler.Update)
	roles.PUT("/:id/toggle", g.Can("update:role"), m.Handler.Toggle)
	roles.PUT("/:id/permissions", g.Can("update:role"), m.Handler.AssignPermissions)
	roles.POST("/:id/permissions/:permissionId", g.Can("update:role"), m.Handler.AddPermission)
	roles.DELETE("/:id/permissions/:permissionId", g.Can("update:role"), m.Handler.RemovePermission)
	roles.DELETE("/:id", g.Can("delete:role"), m.Handler.Delete)
}

package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-rbac-auth/internal/interface/http"
)

// AuthModule routes:
// Public: POST /auth/login, POST /auth/register
// Protected: POST /auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   Guard
}

func NewAuthModule(h *handlers.AuthHandler, g Guard) *AuthModule {
	return &AuthModule{Handler: h, Guard: g}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/login", m.Handler.Login)
	auth.POST("/register", m.Handler.Register)
	auth.POST("/logout", m.Guard.Auth, m.Handler.Logout)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
	"github.com/oksasatya/go-rbac-auth/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxPrincipalKey = "principal"
)

// TokenVerifier is satisfied by helpers.JWTManager.
type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

// PrincipalLoader is satisfied by application.AuthService.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (*entity.User, error)
}

// Authenticate resolves the bearer token into a principal with roles and
// permissions loaded. The Authorization header wins over the access_token
// cookie.
func Authenticate(verifier TokenVerifier, loader PrincipalLoader, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			metrics.ObserveTokenRejection("missing")
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			metrics.ObserveTokenRejection(rejectionReason(err))
			response.FromError(c, err)
			return
		}
		user, err := loader.LoadPrincipal(c.Request.Context(), claims.UserID)
		if err != nil {
			metrics.ObserveTokenRejection("principal")
			response.FromError(c, err)
			return
		}

		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxPrincipalKey, user)
		c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), user.ID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if v, err := c.Cookie(helpers.AccessCookie); err == nil {
		return v
	}
	return ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, helpers.ErrTokenExpired):
		return "expired"
	case errors.Is(err, helpers.ErrInvalidPrincipal):
		return "invalid_subject"
	default:
		return "invalid"
	}
}

// Principal returns the user set by Authenticate.
func Principal(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok && u != nil
}

package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-rbac-auth/internal/observability"
)

type DebugModule struct {
	Metrics *observability.Metrics
}

func NewDebugModule(m *observability.Metrics) *DebugModule { return &DebugModule{Metrics: m} }

// Register exposes the Prometheus registry at /debug/metrics.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/metrics", gin.WrapH(m.Metrics.Handler()))
}

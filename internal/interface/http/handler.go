package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
	"github.com/oksasatya/go-rbac-auth/pkg/response"
	"github.com/oksasatya/go-rbac-auth/pkg/validation"
)

// fail writes err as an error envelope, logging anything that maps to 500.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	if response.StatusOf(err) == http.StatusInternalServerError {
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"request_id": c.GetString("request_id"),
		})
	}
	response.FromError(c, err)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

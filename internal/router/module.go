package router

import "github.com/gin-gonic/gin"

// Module registers one feature's routes. Route guards are attached by the
// module itself.
type Module interface {
	Register(rg *gin.RouterGroup)
}

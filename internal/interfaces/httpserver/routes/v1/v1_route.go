package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prompteval-server/internal/config"
	"prompteval-server/internal/interfaces/httpserver/handlers/evalhandler"
)

type V1Route struct {
	evalHandler *evalhandler.EvalHandler
}

func NewV1Route(evalHandler *evalhandler.EvalHandler) *V1Route {
	return &V1Route{evalHandler}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)

	v1Router.GET("/models", v1Route.evalHandler.ListModels)
	v1Router.POST("/evaluate", v1Route.evalHandler.Evaluate)
	v1Router.POST("/enhance", v1Route.evalHandler.Enhance)
}

// GetVersion godoc
// @Summary Get API build version
// @Tags Server API
// @Produce json
// @Router /v1/version [get]
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": config.Version,
	})
}

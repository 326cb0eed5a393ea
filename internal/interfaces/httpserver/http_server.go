package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"prompteval-server/internal/config"
	"prompteval-server/internal/infrastructure/auth"
	"prompteval-server/internal/infrastructure/logger"
	middleware "prompteval-server/internal/interfaces/httpserver/middlewares"
	v1 "prompteval-server/internal/interfaces/httpserver/routes/v1"
)

type HTTPServer struct {
	engine  *gin.Engine
	v1Route *v1.V1Route
	config  *config.Config
}

func NewHttpServer(
	v1Route *v1.V1Route,
	verifier auth.TokenVerifier,
	cfg *config.Config,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := HTTPServer{
		gin.New(),
		v1Route,
		cfg,
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.LoggingMiddleware(logger.GetLogger()))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())
	server.engine.Use(middleware.OwnerMiddleware(verifier))

	// Root health checks (no rate limit, orchestrators poll these)
	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	root := server.engine.Group("/")
	root.Use(middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	server.v1Route.RegisterRouter(root)

	return &server
}

func (httpServer *HTTPServer) Run() error {
	if err := httpServer.engine.Run(fmt.Sprintf(":%d", httpServer.config.HTTPPort)); err != nil {
		return err
	}
	return nil
}

// Engine exposes the router for tests.
func (httpServer *HTTPServer) Engine() *gin.Engine {
	return httpServer.engine
}

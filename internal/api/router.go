package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/narrator/internal/api/handler"
	"github.com/timmy/narrator/internal/api/middleware"
	"github.com/timmy/narrator/internal/config"
)

// SetupRouter configures the gin engine with the job routes.
func SetupRouter(jobs handler.JobService, health map[string]handler.Pinger, cfg config.ServerConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(health)
	jobHandler := handler.NewJobHandler(jobs)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", jobHandler.Create)
		v1.GET("/jobs", jobHandler.List)
		v1.GET("/jobs/:id", jobHandler.Get)
	}

	return r
}

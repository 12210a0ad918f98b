// Package httpapi mounts the imgbridge operations on a gin router for
// deployments that front the tool server with HTTP instead of stdio.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imgbridge/internal/common"
	"imgbridge/internal/config"
	"imgbridge/internal/httpapi/handlers"
	"imgbridge/internal/httpapi/middleware"
	"imgbridge/internal/storage"
	"imgbridge/internal/workflow"
)

func NewRouter(svc *workflow.Service, store storage.BlobStore, cfg *config.Config, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(svc, store, cfg, log)

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/v1")
	// API auth is opt-in: without a configured secret the surface is open,
	// which suits a localhost deployment.
	if cfg.HTTP.JWTSecret != "" {
		api.Use(middleware.AuthRequired(cfg.HTTP.JWTSecret))
	}
	api.POST("/generations", h.CreateGeneration)
	api.GET("/generations", h.ListGenerations)
	api.POST("/generations/:id/select", h.SelectImage)
	api.GET("/costs", h.GetCosts)
	api.POST("/previews/cleanup", h.CleanupPreviews)

	return r
}

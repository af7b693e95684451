package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the API endpoints onto the router.
// metricsHandler serves the Prometheus exposition endpoint.
func RegisterRoutes(router *gin.Engine, h *Handler, metricsHandler http.Handler) {
	router.GET("/health", h.Health)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/ingest", h.Ingest)
}

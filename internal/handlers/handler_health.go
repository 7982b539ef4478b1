package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// registerHealthRoutes adds liveness and readiness probes.
func registerHealthRoutes(r *gin.Engine, health portsrepo.HealthChecker) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", readinessHandler(health))
}

// readinessHandler godoc
// @Summary Readiness probe
// @Description Reports whether the transaction store is reachable
// @Tags health
// @Produce  json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string "Store unreachable"
// @Router /ready [get]
func readinessHandler(health portsrepo.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Readiness check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

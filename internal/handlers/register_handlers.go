package handlers

import (
	"fmt"

	"github.com/SscSPs/txn_processor/cmd/docs"
	portsrepo "github.com/SscSPs/txn_processor/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/txn_processor/internal/core/ports/services"
	"github.com/SscSPs/txn_processor/internal/middleware"
	"github.com/SscSPs/txn_processor/internal/platform/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	health portsrepo.HealthChecker,
) error {

	// Liveness and readiness stay outside auth and rate limiting
	registerHealthRoutes(r, health)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	if err := setupAPIV1Routes(r, cfg, services); err != nil {
		return err
	}

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
) error {
	ipLimiter, err := middleware.NewRateLimiter(cfg.OpsRateLimit)
	if err != nil {
		return fmt.Errorf("failed to configure ops rate limit: %w", err)
	}

	// API key first; requests it did not authenticate must carry a JWT
	v1 := r.Group("/api/v1",
		middleware.RateLimit(ipLimiter),
		middleware.APIKeyAuth(cfg.OpsAPIKeyHash),
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
	)

	RegisterTransactionRoutes(v1, service.Transactions)
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

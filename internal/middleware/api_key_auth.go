package middleware

import (
	"log/slog"

	"github.com/SscSPs/txn_processor/internal/utils"
	"github.com/gin-gonic/gin"
)

// apiKeyPrincipal is the principal recorded for requests authenticated by the shared ops key.
const apiKeyPrincipal = "ops-api-key"

// APIKeyAuth authenticates requests carrying an x-api-key header against a bcrypt hash.
// Requests without the header, or with a wrong key, fall through to the next auth middleware.
// An empty hash disables API key authentication.
func APIKeyAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.Next()
			return
		}

		apiKey := c.GetHeader("x-api-key")
		if apiKey == "" {
			c.Next()
			return
		}

		if !utils.CheckAPIKey(apiKey, keyHash) {
			GetLoggerFromCtx(c.Request.Context()).Warn("API key rejected", slog.String("principal", apiKeyPrincipal))
			c.Next()
			return
		}

		c.Set(string(userIDKey), apiKeyPrincipal)
		c.Set(string(authMethodKey), AuthMethodAPIKey)
		c.Next()
	}
}

package middleware

import "github.com/gin-gonic/gin"

// userIDKey is the key used to store the authenticated principal in the Gin and request contexts.
const userIDKey = contextKey("userID")

// authMethodKey records which mechanism authenticated the request.
const authMethodKey = contextKey("authMethod")

const (
	AuthMethodAPIKey = "api_key"
	AuthMethodJWT    = "jwt"
)

// GetUserIDFromContext retrieves the authenticated principal from the Gin context.
// It returns the principal and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get(string(userIDKey))
	if !exists {
		// check in the request context as well
		if v, ok := c.Request.Context().Value(userIDKey).(string); ok {
			return v, true
		}
		return "", false
	}

	userID, ok := userIDVal.(string)
	if !ok {
		return "", false
	}
	return userID, true
}

// GetAuthMethod reports how the request was authenticated, if at all.
func GetAuthMethod(c *gin.Context) (string, bool) {
	method := c.GetString(string(authMethodKey))
	return method, method != ""
}

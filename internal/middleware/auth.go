package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/tg-storefront/internal/auth"
)

// BotKey is the gin context key holding the authenticated bot name.
const BotKey = "bot"

// BotAuthMiddleware guards the transport routes of one bot. The bearer
// token's subject must match the :bot path parameter.
func BotAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		botName, err := auth.ValidateToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Token Must Belong To This Bot ---
		if botName != c.Param("bot") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token not valid for this bot"})
			return
		}

		// 4. --- Success ---
		c.Set(BotKey, botName)
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

// ContextUserID and ContextRole are the gin context keys set by JWTAuth.
const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// JWTAuth validates the bearer token and stores the caller's identity in
// the context. When roles are given, the caller's role must be one of them.
func JWTAuth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userID, role, err := utils.ExtractClaims(tokenString)
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
			})
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if r == role {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "This action is not available to your account type",
				})
				return
			}
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// CallerID returns the authenticated user ID set by JWTAuth.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

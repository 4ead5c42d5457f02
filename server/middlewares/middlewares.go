package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth guards the ingestion and trigger endpoints with a static shared
// secret. The caller must send "Authorization: Bearer <secret>"; any mismatch
// short-circuits with 401 before request processing starts.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		if secret == "" || token == header ||
			subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"msg": "invalid or missing bearer token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

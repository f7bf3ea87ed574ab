package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken protects the operational surface with a static token
// checked against its bcrypt hash. An empty hash disables the surface
// entirely rather than leaving it open.
func RequireAdminToken(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":      "not found",
				"request_id": GetRequestID(c),
			})
			return
		}

		token := c.GetHeader(HeaderAdminToken)
		if token == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "authentication required",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

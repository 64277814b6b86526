package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, msgNoToken)
			return
		}
		if !identity.IsAdmin {
			abort(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

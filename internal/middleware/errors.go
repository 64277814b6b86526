package middleware

import "github.com/gin-gonic/gin"

const msgServerError = "Server error."

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	middleware *Middleware
}

func NewHandler(m *Middleware) *Handler {
	return &Handler{middleware: m}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!", "enabled": h.middleware.Enabled()})
}

// Me returns the caller's token claims
func (h *Handler) Me(c *gin.Context) {
	claims, ok := c.Get(ContextClaims)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user_id": "", "authenticated": false})
		return
	}
	cl := claims.(*Claims)
	c.JSON(http.StatusOK, gin.H{
		"user_id":       cl.Subject,
		"email":         cl.Email,
		"role":          cl.Role,
		"authenticated": true,
	})
}

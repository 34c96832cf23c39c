package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes. The group is expected to already
// carry RequireAuth.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/ping", handler.Ping)
		authGroup.GET("/me", handler.Me)
	}
}

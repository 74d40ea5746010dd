// credinet/internal/routes/auth_routes.go
package routes

import (
	"net/http"

	"github.com/JairFC/credinet-v2-sub000/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registra las rutas públicas de autenticación.
func RegisterAuthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/v1/auth/login", handlers.LoginHandler)
	r.POST("/api/v1/auth/register", handlers.RegisterHandler)
	r.GET("/api/v1/auth/logout", handlers.LogoutHandler)
}

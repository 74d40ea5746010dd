// credinet/internal/routes/router.go
package routes

import (
	"github.com/JairFC/credinet-v2-sub000/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes inicializa todas las rutas de la aplicación.
func SetupRoutes(r *gin.Engine) {
	// Rutas públicas: login, registro y health check.
	RegisterAuthRoutes(r)

	// Grupo protegido: todo lo demás exige un JWT válido.
	authRequired := r.Group("/api/v1")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}

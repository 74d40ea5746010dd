// credinet/internal/handlers/respond.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JairFC/credinet-v2-sub000/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError traduce errores del núcleo a respuestas HTTP. Los errores de
// negocio viajan con su clase y detalle; cualquier otro error es un 500
// genérico y se registra completo del lado del servidor.
func respondError(c *gin.Context, err error) {
	if se, ok := services.AsServiceError(err); ok {
		c.JSON(se.HTTPStatus(), gin.H{
			"error":   se.Message,
			"kind":    se.Kind,
			"details": se.Details,
		})
		return
	}
	slog.Error("Error interno no clasificado", "error", err, "path", c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
}

// currentUserID lee la identidad que dejó el middleware de autenticación.
func currentUserID(c *gin.Context) uint {
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// paramID parsea un parámetro de ruta numérico; 0 indica parámetro inválido.
func paramID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

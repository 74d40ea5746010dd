// credinet/internal/handlers/auth_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler valida credenciales y emite un JWT de 12 horas. El token se
// devuelve en el cuerpo y además como cookie httpOnly.
func LoginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login y contraseña son obligatorios"})
		return
	}

	var user models.User
	if err := config.DB.Preload("Roles").Where("login = ?", req.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}

	expiresAt := time.Now().Add(12 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"login":   user.Login,
		"exp":     expiresAt.Unix(),
	})
	tokenStr, err := token.SignedString(config.JwtKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo firmar el token"})
		return
	}

	c.SetCookie("auth_token", tokenStr, int(time.Until(expiresAt).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token":     tokenStr,
		"expiresAt": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"login":    user.Login,
			"fullName": user.FullName,
			"roles":    user.Roles,
		},
	})
}

// LogoutHandler invalida la sesión: borra la cookie y el caché del usuario.
func LogoutHandler(c *gin.Context) {
	if userID := currentUserID(c); userID != 0 && config.RDB != nil {
		config.RDB.Del(config.Ctx, fmt.Sprintf("user:%d:data", userID))
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

type registerRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"required"`
}

// RegisterHandler da de alta un usuario con el rol cliente implícito (sin
// roles administrativos; esos se asignan desde administración).
func RegisterHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de registro inválidos"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo procesar la contraseña"})
		return
	}

	user := models.User{
		Login:        req.Login,
		PasswordHash: string(hash),
		FullName:     req.FullName,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "El login ya está registrado"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "login": user.Login})
}

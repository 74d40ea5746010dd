// credinet/main.go
package main

import (
	"log/slog"
	"os"

	"github.com/JairFC/credinet-v2-sub000/config"
	"github.com/JairFC/credinet-v2-sub000/internal/bootstrap"
	"github.com/JairFC/credinet-v2-sub000/internal/routes"
	"github.com/JairFC/credinet-v2-sub000/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// El .env es opcional; en despliegue las variables vienen del entorno.
	if err := godotenv.Load(); err != nil {
		slog.Warn("No se encontró archivo .env, se usan las variables del entorno")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.ConnectDB()
	config.ConnectRedis()
	config.LoadJWTKey()

	if err := bootstrap.Migrate(config.DB); err != nil {
		slog.Error("Falló la migración del esquema", "error", err)
		os.Exit(1)
	}
	if err := bootstrap.Seed(config.DB); err != nil {
		slog.Error("Falló la carga de catálogos iniciales", "error", err)
		os.Exit(1)
	}

	scheduler.Start(config.DB)

	r := gin.Default()
	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Servidor CrediCuenta escuchando", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("El servidor terminó con error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"log"
	"net/http"

	"github.com/sirupsen/logrus"

	"map_exhibits/internal/config"
	"map_exhibits/internal/logger"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/routes"
	"map_exhibits/internal/storage"
)

func main() {
	settings := config.Load()

	// Initialize structured logging to file
	logger.Setup(settings.LogFile, settings.LogLevel)

	middleware.SetSecret(settings.JWTSecret)
	storage.SetAdapter(storage.NewFilesystem(settings.StorageWebDir, settings.StorageWebURL))

	// Connect to the database
	if err := config.InitDB(settings); err != nil {
		logrus.WithError(err).Fatal("Database initialization failed.")
	}

	// Setup Gin router
	r := routes.SetupRouter(settings)

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Printf("Server running at %s", settings.HTTPAddr)
	logrus.WithField("addr", settings.HTTPAddr).Info("Server starting.")
	log.Fatal(http.ListenAndServe(settings.HTTPAddr, handler))
}

package routes

import (
	"net/http"
	"path/filepath"
	"strings"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"map_exhibits/internal/config"
	"map_exhibits/internal/storage"
)

// SetupRouter builds the engine with every route group mounted. The caller
// starts the server.
func SetupRouter(s config.Settings) *gin.Engine {
	r := gin.New()

	// Request logging middleware
	r.Use(ginlog.SetLogger(
		ginlog.WithSkipPath([]string{"/healthz"}),
		ginlog.WithWriter(logrus.StandardLogger().Writer()),
	))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// The storage directory can change at runtime, so resolve it per request.
	r.GET(strings.TrimRight(s.StorageWebURL, "/")+"/*filepath", func(c *gin.Context) {
		c.File(filepath.Join(storage.WebDir(), filepath.Clean("/"+c.Param("filepath"))))
	})

	AuthRoutes(r)
	ExhibitRoutes(r)
	RecordRoutes(r)
	AdminRoutes(r)
	WebSocketRoutes(r)

	return r
}

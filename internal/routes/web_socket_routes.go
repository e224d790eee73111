package routes

import (
	"github.com/gin-gonic/gin"

	"map_exhibits/internal/controllers"
)

// WebSocketRoutes mounts the viewer session socket. Authentication is an
// optional ?token= query parameter checked by the handler.
func WebSocketRoutes(r *gin.Engine) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/exhibits/:id/session", controllers.HandleExhibitSession)
	}
}

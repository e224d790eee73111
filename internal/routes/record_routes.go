package routes

import (
	"github.com/gin-gonic/gin"

	"map_exhibits/internal/controllers"
	"map_exhibits/internal/middleware"
)

func RecordRoutes(r *gin.Engine) {
	records := r.Group("/records")
	records.GET("/:id", middleware.OptionalAuth(), controllers.GetRecord)

	records.Use(middleware.RequireAuth())
	{
		records.PUT("/:id", controllers.UpdateRecord)
		records.DELETE("/:id", controllers.DeleteRecord)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"

	"map_exhibits/internal/controllers"
	"map_exhibits/internal/middleware"
)

// ExhibitRoutes mounts exhibit CRUD plus the per-exhibit record and image
// endpoints. Reads are open to anonymous callers; the ACL decides the rest.
func ExhibitRoutes(r *gin.Engine) {
	read := r.Group("/exhibits")
	read.Use(middleware.OptionalAuth())
	{
		read.GET("", controllers.ListExhibits)
		read.GET("/:id", controllers.GetExhibit)
		read.GET("/:id/records", controllers.ListRecords)
	}

	write := r.Group("/exhibits")
	write.Use(middleware.RequireAuth())
	{
		write.POST("", controllers.CreateExhibit)
		write.PUT("/:id", controllers.UpdateExhibit)
		write.DELETE("/:id", controllers.DeleteExhibit)
		write.POST("/:id/records", controllers.CreateRecord)
		write.POST("/:id/images", controllers.UploadPointImage)
	}
}

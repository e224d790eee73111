package routes

import (
	"github.com/gin-gonic/gin"

	"map_exhibits/internal/controllers"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole(models.RoleAdmin, models.RoleSuper))
	{
		admin.GET("/users", controllers.ListUsers)
		admin.GET("/storage", controllers.GetStorage)
		admin.PUT("/storage", controllers.SetStorage)
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/handlers"
)

func registerTaskRoutes(api *gin.RouterGroup, handler *handlers.TaskHandler) {
	group := api.Group("/tasks")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/available", handler.ListAvailable)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.POST("/:id/claim", handler.Claim)
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/handlers"
)

func registerListingRoutes(api *gin.RouterGroup, handler *handlers.ListingHandler) {
	group := api.Group("/listings")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.GET("/recommendations", handler.Recommendations)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/handlers"
)

func registerClaimRoutes(api *gin.RouterGroup, handler *handlers.ClaimHandler) {
	group := api.Group("/claims")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.PATCH("/:id", handler.Update)
	}
}

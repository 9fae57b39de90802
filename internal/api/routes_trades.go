package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/handlers"
)

func registerTradeRoutes(api *gin.RouterGroup, handler *handlers.TradeHandler) {
	group := api.Group("/trades")
	{
		group.GET("", handler.List)
		group.POST("", handler.Propose)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.GET("/:id/messages", handler.ListMessages)
		group.POST("/:id/messages", handler.PostMessage)
	}
}

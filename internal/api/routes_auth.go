package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/handlers"
	"github.com/foodbridge/foodbridge/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, jwt *iauth.JWTService) {
	public := r.Group("/api/auth")
	{
		public.POST("/register", handler.Register)
		public.POST("/login", handler.Login)
	}

	protected := r.Group("/api/auth")
	protected.Use(middleware.Auth(jwt))
	{
		protected.GET("/me", handler.Me)
		protected.PATCH("/me", handler.UpdateProfile)
	}
}

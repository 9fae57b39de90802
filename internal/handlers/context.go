package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/foodbridge/foodbridge/internal/middleware"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/errors"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUser resolves the authenticated account for the request. On failure
// an error response is written and false is returned.
func currentUser(c *gin.Context, users *services.UserService) (models.User, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return models.User{}, false
	}

	user, err := users.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return models.User{}, false
	}
	return *user, true
}

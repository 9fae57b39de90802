package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/realtime"
	"github.com/foodbridge/foodbridge/pkg/errors"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// RealtimeHandler upgrades authenticated requests to websocket channels.
type RealtimeHandler struct {
	hub *realtime.Hub
	jwt *iauth.JWTService
}

// NewRealtimeHandler constructs a realtime handler.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, jwt: jwt}
}

// GET /ws
// Browsers cannot attach Authorization headers to websocket upgrades, so the
// token is also accepted as a query parameter.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(claims.UserID, c.Writer, c.Request)
}

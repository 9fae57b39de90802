package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// ClaimHandler exposes HTTP endpoints for listing claims.
type ClaimHandler struct {
	claims *services.ClaimService
	users  *services.UserService
}

// NewClaimHandler constructs a claim handler.
func NewClaimHandler(db *gorm.DB, dispatcher *notify.Dispatcher) (*ClaimHandler, error) {
	claims, err := services.NewClaimService(db, dispatcher)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &ClaimHandler{claims: claims, users: users}, nil
}

type createClaimRequest struct {
	ListingID  string    `json:"listing_id" validate:"required"`
	PickupTime time.Time `json:"pickup_time" validate:"required"`
	Notes      string    `json:"notes"`
}

type updateClaimRequest struct {
	Notes      *string    `json:"notes"`
	PickupTime *time.Time `json:"pickup_time"`
	Status     *string    `json:"status"`
}

// POST /api/claims
func (h *ClaimHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req createClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claim, err := h.claims.Create(requestContext(c), actor, services.CreateClaimInput{
		ListingID:  req.ListingID,
		PickupTime: req.PickupTime,
		Notes:      req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, claim)
}

// GET /api/claims
func (h *ClaimHandler) List(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	claims, err := h.claims.List(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, claims)
}

// PATCH /api/claims/:id
func (h *ClaimHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req updateClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patch := services.UpdateClaimPatch{
		Notes:      req.Notes,
		PickupTime: req.PickupTime,
	}
	if req.Status != nil {
		status := models.ClaimStatus(*req.Status)
		patch.Status = &status
	}

	claim, err := h.claims.Update(requestContext(c), strings.TrimSpace(c.Param("id")), actor, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, claim)
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// ListingHandler exposes HTTP endpoints for food listings.
type ListingHandler struct {
	listings *services.ListingService
	users    *services.UserService
}

// NewListingHandler constructs a listing handler.
func NewListingHandler(db *gorm.DB, matcher matching.Optimizer) (*ListingHandler, error) {
	listings, err := services.NewListingService(db, matcher)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &ListingHandler{listings: listings, users: users}, nil
}

type createListingRequest struct {
	Title              string    `json:"title" validate:"required,max=160"`
	Description        string    `json:"description"`
	Category           string    `json:"category" validate:"required,oneof=produce dairy meat bakery pantry prepared"`
	Quantity           float64   `json:"quantity" validate:"required,gt=0"`
	QuantityUnit       string    `json:"quantity_unit"`
	ExpirationDate     time.Time `json:"expiration_date"`
	PickupLocation     string    `json:"pickup_location"`
	PickupInstructions string    `json:"pickup_instructions"`
	IsDonation         *bool     `json:"is_donation"`
}

type updateListingRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	Category           *string    `json:"category"`
	Quantity           *float64   `json:"quantity"`
	QuantityUnit       *string    `json:"quantity_unit"`
	ExpirationDate     *time.Time `json:"expiration_date"`
	PickupLocation     *string    `json:"pickup_location"`
	PickupInstructions *string    `json:"pickup_instructions"`
	IsDonation         *bool      `json:"is_donation"`
	Status             *string    `json:"status"`
}

// POST /api/listings
func (h *ListingHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req createListingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	listing, err := h.listings.Create(requestContext(c), actor, services.CreateListingInput{
		Title:              req.Title,
		Description:        req.Description,
		Category:           models.FoodCategory(req.Category),
		Quantity:           req.Quantity,
		QuantityUnit:       req.QuantityUnit,
		ExpirationDate:     req.ExpirationDate,
		PickupLocation:     req.PickupLocation,
		PickupInstructions: req.PickupInstructions,
		IsDonation:         req.IsDonation,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, listing)
}

// GET /api/listings
func (h *ListingHandler) List(c *gin.Context) {
	listings, err := h.listings.List(requestContext(c), services.ListListingsInput{
		Category:   models.FoodCategory(strings.TrimSpace(c.Query("category"))),
		Status:     models.ListingStatus(strings.TrimSpace(c.Query("status"))),
		IsDonation: parseBoolQuery(c, "is_donation"),
		Location:   c.Query("location"),
		Skip:       parseIntQuery(c, "skip", 0),
		Limit:      parseIntQuery(c, "limit", 25),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listings)
}

// GET /api/listings/recommendations
func (h *ListingHandler) Recommendations(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	listings, err := h.listings.Recommendations(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listings)
}

// GET /api/listings/:id
func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listings.Get(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

// PATCH /api/listings/:id
func (h *ListingHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req updateListingRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patch := services.UpdateListingPatch{
		Title:              req.Title,
		Description:        req.Description,
		Quantity:           req.Quantity,
		QuantityUnit:       req.QuantityUnit,
		ExpirationDate:     req.ExpirationDate,
		PickupLocation:     req.PickupLocation,
		PickupInstructions: req.PickupInstructions,
		IsDonation:         req.IsDonation,
	}
	if req.Category != nil {
		category := models.FoodCategory(*req.Category)
		patch.Category = &category
	}
	if req.Status != nil {
		status := models.ListingStatus(*req.Status)
		patch.Status = &status
	}

	listing, err := h.listings.Update(requestContext(c), strings.TrimSpace(c.Param("id")), actor, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

// DELETE /api/listings/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	if err := h.listings.Delete(requestContext(c), strings.TrimSpace(c.Param("id")), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

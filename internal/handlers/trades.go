package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/ledger"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// TradeHandler exposes HTTP endpoints for trades and their message threads.
type TradeHandler struct {
	trades *services.TradeService
	users  *services.UserService
}

// NewTradeHandler constructs a trade handler.
func NewTradeHandler(db *gorm.DB, dispatcher *notify.Dispatcher, auditLedger ledger.Ledger) (*TradeHandler, error) {
	trades, err := services.NewTradeService(db, dispatcher, auditLedger)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &TradeHandler{trades: trades, users: users}, nil
}

type proposeTradeRequest struct {
	ResponderID        string         `json:"responder_id" validate:"required"`
	InitiatorListingID string         `json:"initiator_listing_id" validate:"required"`
	ResponderListingID string         `json:"responder_listing_id" validate:"required"`
	InitiatorNotes     string         `json:"initiator_notes" validate:"max=2000"`
	Terms              map[string]any `json:"terms"`
}

type updateTradeRequest struct {
	Status         *string        `json:"status"`
	ResponderNotes *string        `json:"responder_notes" validate:"omitempty,max=2000"`
	Terms          map[string]any `json:"terms"`
}

type tradeMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// POST /api/trades
func (h *TradeHandler) Propose(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req proposeTradeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	trade, err := h.trades.Propose(requestContext(c), actor, services.ProposeTradeInput{
		ResponderID:        req.ResponderID,
		InitiatorListingID: req.InitiatorListingID,
		ResponderListingID: req.ResponderListingID,
		InitiatorNotes:     req.InitiatorNotes,
		Terms:              req.Terms,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, trade)
}

// GET /api/trades
func (h *TradeHandler) List(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	input := services.ListTradesInput{
		Skip:  parseIntQuery(c, "skip", 0),
		Limit: parseIntQuery(c, "limit", 25),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.TradeStatus(raw)
		input.Status = &status
	}

	trades, err := h.trades.List(requestContext(c), actor, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, trades)
}

// GET /api/trades/:id
func (h *TradeHandler) Get(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	trade, err := h.trades.Get(requestContext(c), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, trade)
}

// PATCH /api/trades/:id
func (h *TradeHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req updateTradeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	patch := services.UpdateTradePatch{ResponderNotes: req.ResponderNotes, Terms: req.Terms}
	if req.Status != nil {
		status := models.TradeStatus(*req.Status)
		patch.Status = &status
	}

	trade, err := h.trades.Update(requestContext(c), strings.TrimSpace(c.Param("id")), actor, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, trade)
}

// POST /api/trades/:id/messages
func (h *TradeHandler) PostMessage(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req tradeMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.trades.PostMessage(requestContext(c), strings.TrimSpace(c.Param("id")), actor, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// GET /api/trades/:id/messages
func (h *TradeHandler) ListMessages(c *gin.Context) {
	actor, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	messages, err := h.trades.ListMessages(requestContext(c), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

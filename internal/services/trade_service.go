package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/ledger"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

// ProposeTradeInput defines a trade proposal between two listings.
type ProposeTradeInput struct {
	ResponderID        string
	InitiatorListingID string
	ResponderListingID string
	InitiatorNotes     string
	Terms              map[string]any
}

// UpdateTradePatch carries the optional fields of a trade update.
type UpdateTradePatch struct {
	Status         *models.TradeStatus
	ResponderNotes *string
	Terms          map[string]any
}

// ListTradesInput filters the trade listing.
type ListTradesInput struct {
	Status *models.TradeStatus
	Skip   int
	Limit  int
}

// TradeService owns the trade workflow: proposals move both listings in
// transit together, terminal statuses release or complete them, and every
// settled trade is recorded on the audit ledger.
type TradeService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	ledger     ledger.Ledger
	now        func() time.Time
}

// NewTradeService constructs a TradeService. A nil ledger falls back to the
// local no-op recorder.
func NewTradeService(db *gorm.DB, dispatcher *notify.Dispatcher, auditLedger ledger.Ledger) (*TradeService, error) {
	if db == nil {
		return nil, errors.New("trade service: db is required")
	}
	if auditLedger == nil {
		auditLedger = ledger.NewNopLedger()
	}
	return &TradeService{db: db, dispatcher: dispatcher, ledger: auditLedger, now: time.Now}, nil
}

// Propose creates a pending trade between the initiator's listing and the
// responder's listing. Both listings are locked in a deterministic order and
// move in transit atomically with the trade insert; if either listing is not
// available the whole proposal fails and nothing changes.
func (s *TradeService) Propose(ctx context.Context, actor models.User, input ProposeTradeInput) (*models.Trade, error) {
	ctx = ensureContext(ctx)

	if input.InitiatorListingID == input.ResponderListingID {
		return nil, apperrors.NewBadRequest("a trade needs two distinct listings")
	}
	if input.ResponderID == actor.ID {
		return nil, apperrors.NewBadRequest("cannot trade with yourself")
	}

	var trade models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := input.InitiatorListingID, input.ResponderListingID
		if second < first {
			first, second = second, first
		}
		// Lock order is by listing ID so concurrent proposals touching the
		// same pair cannot deadlock.
		locked := map[string]*models.Listing{}
		for _, id := range []string{first, second} {
			listing, err := lockListing(tx, id)
			if err != nil {
				return err
			}
			locked[id] = listing
		}
		initiatorListing := locked[input.InitiatorListingID]
		responderListing := locked[input.ResponderListingID]

		if initiatorListing.OwnerID != actor.ID {
			return apperrors.ErrForbidden.WithMessage("You can only offer your own listing")
		}
		if responderListing.OwnerID != input.ResponderID {
			return apperrors.NewBadRequest("responder does not own the requested listing")
		}
		if initiatorListing.Status != models.ListingAvailable || responderListing.Status != models.ListingAvailable {
			return apperrors.NewConflict("both listings must be available to trade")
		}

		trade = models.Trade{
			Status:             models.TradeProposed,
			InitiatorNotes:     input.InitiatorNotes,
			Terms:              encodeJSON(input.Terms),
			InitiatorID:        actor.ID,
			ResponderID:        input.ResponderID,
			InitiatorListingID: input.InitiatorListingID,
			ResponderListingID: input.ResponderListingID,
		}
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("trade service: create trade: %w", err)
		}

		if err := applyListingTransition(tx, initiatorListing, models.ListingInTransit); err != nil {
			return err
		}
		return applyListingTransition(tx, responderListing, models.ListingInTransit)
	})
	if err != nil {
		return nil, err
	}

	s.notifyParty(input.ResponderID, trade, "New trade proposal",
		"You have received a new trade proposal")
	return &trade, nil
}

// Get loads a trade visible to the actor.
func (s *TradeService) Get(ctx context.Context, tradeID string, actor models.User) (*models.Trade, error) {
	ctx = ensureContext(ctx)

	var trade models.Trade
	if err := s.db.WithContext(ctx).First(&trade, "id = ?", tradeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Trade not found")
		}
		return nil, fmt.Errorf("trade service: load trade: %w", err)
	}
	if !trade.Participant(actor.ID) && !actor.UserType.IsAdmin() {
		return nil, apperrors.ErrForbidden.WithMessage("Not authorized to view this trade")
	}
	return &trade, nil
}

// Update applies a status or terms change on behalf of a participant.
// Completion stamps the completion time exactly once and records the trade on
// the ledger; rejection and cancellation release both listings.
func (s *TradeService) Update(ctx context.Context, tradeID string, actor models.User, patch UpdateTradePatch) (*models.Trade, error) {
	ctx = ensureContext(ctx)

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewBadRequest("unknown trade status")
	}

	var (
		trade     models.Trade
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trade, "id = ?", tradeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound.WithMessage("Trade not found")
			}
			return fmt.Errorf("trade service: load trade: %w", err)
		}
		if !trade.Participant(actor.ID) && !actor.UserType.IsAdmin() {
			return apperrors.ErrForbidden.WithMessage("Not authorized to update this trade")
		}

		updates := map[string]any{}
		if patch.Terms != nil {
			trade.Terms = encodeJSON(patch.Terms)
			updates["terms"] = trade.Terms
		}
		if patch.ResponderNotes != nil {
			trade.ResponderNotes = *patch.ResponderNotes
			updates["responder_notes"] = trade.ResponderNotes
		}
		if patch.Status != nil {
			trade.Status = *patch.Status
			updates["status"] = *patch.Status

			switch {
			case *patch.Status == models.TradeCompleted:
				if trade.CompletionTime == nil {
					completed = true
					stamp := s.now()
					trade.CompletionTime = &stamp
					updates["completion_time"] = stamp
				}
				for _, id := range []string{trade.InitiatorListingID, trade.ResponderListingID} {
					listing, err := lockListing(tx, id)
					if err != nil {
						return err
					}
					if err := applyListingTransition(tx, listing, models.ListingCompleted); err != nil {
						return err
					}
				}
			case patch.Status.Releases():
				for _, id := range []string{trade.InitiatorListingID, trade.ResponderListingID} {
					listing, err := lockListing(tx, id)
					if err != nil {
						return err
					}
					if err := applyListingTransition(tx, listing, models.ListingAvailable); err != nil {
						return err
					}
				}
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&trade).Updates(updates).Error; err != nil {
			return fmt.Errorf("trade service: update trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		// Ledger failures are logged inside the ledger and never surfaced.
		_ = s.ledger.LogTransaction(ctx, "trade.completed", map[string]any{
			"trade_id":     trade.ID,
			"initiator_id": trade.InitiatorID,
			"responder_id": trade.ResponderID,
			"completed_at": trade.CompletionTime,
		})
	}

	if patch.Status != nil {
		s.notifyParty(trade.Counterparty(actor.ID), trade, "Trade updated",
			fmt.Sprintf("Trade is now %s", trade.Status))
	}
	return &trade, nil
}

// List returns the actor's trades, newest first. Admins see every trade.
func (s *TradeService) List(ctx context.Context, actor models.User, input ListTradesInput) ([]models.Trade, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Trade{}).Order("created_at DESC")
	if !actor.UserType.IsAdmin() {
		query = query.Where("initiator_id = ? OR responder_id = ?", actor.ID, actor.ID)
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}
	if input.Skip > 0 {
		query = query.Offset(input.Skip)
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var trades []models.Trade
	if err := query.Limit(limit).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("trade service: list trades: %w", err)
	}
	return trades, nil
}

// PostMessage appends a message to a trade's conversation and notifies the
// counterparty with a short preview.
func (s *TradeService) PostMessage(ctx context.Context, tradeID string, actor models.User, content string) (*models.TradeMessage, error) {
	ctx = ensureContext(ctx)

	if content == "" {
		return nil, apperrors.NewBadRequest("message content is required")
	}

	trade, err := s.Get(ctx, tradeID, actor)
	if err != nil {
		return nil, err
	}
	if !trade.Participant(actor.ID) {
		return nil, apperrors.ErrForbidden.WithMessage("Only trade participants can send messages")
	}

	message := models.TradeMessage{
		TradeID:  trade.ID,
		SenderID: actor.ID,
		Message:  content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("trade service: create message: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Notify(notify.Request{
			RecipientID: trade.Counterparty(actor.ID),
			Type:        models.NotificationTradeMessage,
			Title:       "New trade message",
			Message:     preview(content),
			Data:        map[string]any{"trade_id": trade.ID, "message_id": message.ID},
		})
	}
	return &message, nil
}

// ListMessages returns a trade's conversation in send order.
func (s *TradeService) ListMessages(ctx context.Context, tradeID string, actor models.User) ([]models.TradeMessage, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, tradeID, actor); err != nil {
		return nil, err
	}

	var messages []models.TradeMessage
	if err := s.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("trade service: list messages: %w", err)
	}
	return messages, nil
}

func (s *TradeService) notifyParty(recipientID string, trade models.Trade, title, message string) {
	if s.dispatcher == nil || recipientID == "" {
		return
	}
	s.dispatcher.Notify(notify.Request{
		RecipientID: recipientID,
		Type:        models.NotificationTradeUpdate,
		Title:       title,
		Message:     message,
		Data:        map[string]any{"trade_id": trade.ID, "status": string(trade.Status)},
	})
}

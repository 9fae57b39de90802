package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodbridge/foodbridge/internal/matching"
	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
	"github.com/foodbridge/foodbridge/pkg/metrics"
)

// applyListingTransition moves a listing along the lifecycle state machine
// inside the caller's transaction. Same-status transitions are a no-op so that
// release paths stay idempotent; every other edge must be present in the
// transition table or the whole transaction fails with a conflict.
func applyListingTransition(tx *gorm.DB, listing *models.Listing, target models.ListingStatus) error {
	if listing.Status == target {
		return nil
	}

	if !listing.Status.CanTransitionTo(target) {
		metrics.ListingTransitions.WithLabelValues(string(target), "conflict").Inc()
		return apperrors.NewConflict(fmt.Sprintf(
			"listing cannot move from %s to %s", listing.Status, target))
	}

	if err := tx.Model(listing).Update("status", target).Error; err != nil {
		metrics.ListingTransitions.WithLabelValues(string(target), "error").Inc()
		return fmt.Errorf("listing service: transition listing: %w", err)
	}

	listing.Status = target
	metrics.ListingTransitions.WithLabelValues(string(target), "ok").Inc()
	return nil
}

// lockListing loads a listing row under a row-level write lock so concurrent
// claim and trade attempts serialise on it.
func lockListing(tx *gorm.DB, id string) (*models.Listing, error) {
	var listing models.Listing
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Listing not found")
		}
		return nil, fmt.Errorf("listing service: load listing: %w", err)
	}
	return &listing, nil
}

// CreateListingInput defines the attributes required to publish a listing.
type CreateListingInput struct {
	Title              string
	Description        string
	Category           models.FoodCategory
	Quantity           float64
	QuantityUnit       string
	ExpirationDate     time.Time
	PickupLocation     string
	PickupInstructions string
	IsDonation         *bool
}

// UpdateListingPatch carries the optional fields of a listing update. Only
// non-nil fields are applied.
type UpdateListingPatch struct {
	Title              *string
	Description        *string
	Category           *models.FoodCategory
	Quantity           *float64
	QuantityUnit       *string
	ExpirationDate     *time.Time
	PickupLocation     *string
	PickupInstructions *string
	IsDonation         *bool
	Status             *models.ListingStatus
}

// ListListingsInput defines browse filters.
type ListListingsInput struct {
	Category   models.FoodCategory
	Status     models.ListingStatus
	IsDonation *bool
	Location   string
	Skip       int
	Limit      int
}

// ListingService owns listing CRUD and the listing lifecycle state machine.
type ListingService struct {
	db      *gorm.DB
	matcher matching.Optimizer
	now     func() time.Time
}

// NewListingService constructs a ListingService.
func NewListingService(db *gorm.DB, matcher matching.Optimizer) (*ListingService, error) {
	if db == nil {
		return nil, errors.New("listing service: db is required")
	}
	if matcher == nil {
		matcher = matching.NewStaticOptimizer()
	}
	return &ListingService{db: db, matcher: matcher, now: time.Now}, nil
}

// Create publishes a new listing owned by the actor. Only donors, traders and
// admins may publish.
func (s *ListingService) Create(ctx context.Context, actor models.User, input CreateListingInput) (*models.Listing, error) {
	ctx = ensureContext(ctx)

	if !actor.UserType.CanOwnListings() {
		return nil, apperrors.ErrForbidden.WithMessage("Only donors and traders can create listings")
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewBadRequest("unknown food category")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.NewBadRequest("quantity must be positive")
	}

	isDonation := true
	if input.IsDonation != nil {
		isDonation = *input.IsDonation
	}

	listing := models.Listing{
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		Category:           input.Category,
		Quantity:           input.Quantity,
		QuantityUnit:       input.QuantityUnit,
		ExpirationDate:     input.ExpirationDate,
		PickupLocation:     input.PickupLocation,
		PickupInstructions: input.PickupInstructions,
		IsDonation:         isDonation,
		Status:             models.ListingAvailable,
		OwnerID:            actor.ID,
	}

	if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("listing service: create listing: %w", err)
	}
	return &listing, nil
}

// Get loads a listing by id.
func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	ctx = ensureContext(ctx)

	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Listing not found")
		}
		return nil, fmt.Errorf("listing service: load listing: %w", err)
	}
	return &listing, nil
}

// List returns listings matching the supplied filters.
func (s *ListingService) List(ctx context.Context, input ListListingsInput) ([]models.Listing, error) {
	ctx = ensureContext(ctx)

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := s.db.WithContext(ctx).Model(&models.Listing{})
	if input.Category != "" {
		query = query.Where("category = ?", input.Category)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.IsDonation != nil {
		query = query.Where("is_donation = ?", *input.IsDonation)
	}
	if location := strings.TrimSpace(input.Location); location != "" {
		query = query.Where("pickup_location LIKE ?", "%"+location+"%")
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").
		Offset(max(0, input.Skip)).
		Limit(limit).
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("listing service: list listings: %w", err)
	}
	return listings, nil
}

// Recommendations ranks available listings for the actor via the matching
// collaborator.
func (s *ListingService) Recommendations(ctx context.Context, actor models.User) ([]models.Listing, error) {
	ctx = ensureContext(ctx)

	var available []models.Listing
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.ListingAvailable).
		Order("created_at DESC").
		Find(&available).Error; err != nil {
		return nil, fmt.Errorf("listing service: load available listings: %w", err)
	}
	if len(available) == 0 {
		return nil, nil
	}

	return s.matcher.MatchRecipients(matching.RecipientProfile{
		UserID:   actor.ID,
		Location: actor.Location,
		UserType: actor.UserType,
	}, available), nil
}

// Update applies a partial patch. Only the owner or an admin may update, and a
// status change must follow the lifecycle state machine.
func (s *ListingService) Update(ctx context.Context, id string, actor models.User, patch UpdateListingPatch) (*models.Listing, error) {
	ctx = ensureContext(ctx)

	var updated *models.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, id)
		if err != nil {
			return err
		}
		if listing.OwnerID != actor.ID && !actor.UserType.IsAdmin() {
			return apperrors.ErrForbidden.WithMessage("Not authorized to update this listing")
		}

		updates := map[string]any{}
		if patch.Title != nil {
			updates["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Category != nil {
			if !patch.Category.Valid() {
				return apperrors.NewBadRequest("unknown food category")
			}
			updates["category"] = *patch.Category
		}
		if patch.Quantity != nil {
			if *patch.Quantity <= 0 {
				return apperrors.NewBadRequest("quantity must be positive")
			}
			updates["quantity"] = *patch.Quantity
		}
		if patch.QuantityUnit != nil {
			updates["quantity_unit"] = *patch.QuantityUnit
		}
		if patch.ExpirationDate != nil {
			updates["expiration_date"] = *patch.ExpirationDate
		}
		if patch.PickupLocation != nil {
			updates["pickup_location"] = *patch.PickupLocation
		}
		if patch.PickupInstructions != nil {
			updates["pickup_instructions"] = *patch.PickupInstructions
		}
		if patch.IsDonation != nil {
			updates["is_donation"] = *patch.IsDonation
		}

		if len(updates) > 0 {
			if err := tx.Model(listing).Updates(updates).Error; err != nil {
				return fmt.Errorf("listing service: update listing: %w", err)
			}
		}

		if patch.Status != nil {
			if !patch.Status.Valid() {
				return apperrors.NewBadRequest("unknown listing status")
			}
			if err := applyListingTransition(tx, listing, *patch.Status); err != nil {
				return err
			}
		}

		updated = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a listing. Deletion is rejected while claims, trades or tasks
// still reference the listing; references never cascade.
func (s *ListingService) Delete(ctx context.Context, id string, actor models.User) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, id)
		if err != nil {
			return err
		}
		if listing.OwnerID != actor.ID && !actor.UserType.IsAdmin() {
			return apperrors.ErrForbidden.WithMessage("Not authorized to delete this listing")
		}

		var dependents int64
		if err := tx.Model(&models.Claim{}).Where("listing_id = ?", id).Count(&dependents).Error; err != nil {
			return fmt.Errorf("listing service: count claims: %w", err)
		}
		if dependents == 0 {
			if err := tx.Model(&models.Trade{}).
				Where("initiator_listing_id = ? OR responder_listing_id = ?", id, id).
				Count(&dependents).Error; err != nil {
				return fmt.Errorf("listing service: count trades: %w", err)
			}
		}
		if dependents == 0 {
			if err := tx.Model(&models.VolunteerTask{}).Where("listing_id = ?", id).Count(&dependents).Error; err != nil {
				return fmt.Errorf("listing service: count tasks: %w", err)
			}
		}
		if dependents > 0 {
			return apperrors.NewConflict("listing has dependent claims, trades or tasks")
		}

		if err := tx.Delete(listing).Error; err != nil {
			return fmt.Errorf("listing service: delete listing: %w", err)
		}
		return nil
	})
}

// ExpireOverdue cancels available listings whose expiration date has passed.
// Invoked by the maintenance sweeper.
func (s *ListingService) ExpireOverdue(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ? AND expiration_date < ?", models.ListingAvailable, s.now().UTC()).
		Update("status", models.ListingCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("listing service: expire listings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

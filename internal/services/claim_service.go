package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

// CreateClaimInput defines the attributes required to claim a listing.
type CreateClaimInput struct {
	ListingID  string
	PickupTime time.Time
	Notes      string
}

// UpdateClaimPatch carries the optional fields of a claim update. Only non-nil
// fields are applied.
type UpdateClaimPatch struct {
	Notes      *string
	PickupTime *time.Time
	Status     *models.ClaimStatus
}

// ClaimService owns the claim workflow and its listing side effects.
type ClaimService struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	now        func() time.Time
}

// NewClaimService constructs a ClaimService.
func NewClaimService(db *gorm.DB, dispatcher *notify.Dispatcher) (*ClaimService, error) {
	if db == nil {
		return nil, errors.New("claim service: db is required")
	}
	return &ClaimService{db: db, dispatcher: dispatcher, now: time.Now}, nil
}

// Create claims an available listing for the actor. The claim insert and the
// listing transition to claimed commit as one transaction; a concurrent claim
// on the same listing loses with a conflict.
func (s *ClaimService) Create(ctx context.Context, actor models.User, input CreateClaimInput) (*models.Claim, error) {
	ctx = ensureContext(ctx)

	if !input.PickupTime.After(s.now()) {
		return nil, apperrors.NewBadRequest("pickup time must be in the future")
	}

	var claim models.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		listing, err := lockListing(tx, input.ListingID)
		if err != nil {
			return err
		}
		if listing.Status != models.ListingAvailable {
			return apperrors.NewConflict("listing is not available")
		}

		claim = models.Claim{
			Status:     models.ClaimPending,
			Notes:      input.Notes,
			PickupTime: input.PickupTime,
			ListingID:  listing.ID,
			ClaimerID:  actor.ID,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return fmt.Errorf("claim service: create claim: %w", err)
		}

		return applyListingTransition(tx, listing, models.ListingClaimed)
	})
	if err != nil {
		return nil, err
	}

	s.notifyOwner(ctx, claim, "New claim received",
		fmt.Sprintf("Your listing has a new pending claim for pickup at %s",
			claim.PickupTime.Format(time.RFC3339)))

	return &claim, nil
}

// Update applies a partial patch to a claim. The listing owner, the claimer
// and admins are authorized. Status values are freely settable by an
// authorized actor; only the listing side effects constrain the edges:
// approved moves the listing in transit, rejected and cancelled release it.
func (s *ClaimService) Update(ctx context.Context, claimID string, actor models.User, patch UpdateClaimPatch) (*models.Claim, error) {
	ctx = ensureContext(ctx)

	if patch.PickupTime != nil && !patch.PickupTime.After(s.now()) {
		return nil, apperrors.NewBadRequest("pickup time must be in the future")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.NewBadRequest("unknown claim status")
	}

	var claim models.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&claim, "id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound.WithMessage("Claim not found")
			}
			return fmt.Errorf("claim service: load claim: %w", err)
		}

		listing, err := lockListing(tx, claim.ListingID)
		if err != nil {
			return err
		}

		authorized := actor.ID == listing.OwnerID ||
			actor.ID == claim.ClaimerID ||
			actor.UserType.IsAdmin()
		if !authorized {
			return apperrors.ErrForbidden.WithMessage("Not authorized to update this claim")
		}

		updates := map[string]any{}
		if patch.Notes != nil {
			updates["notes"] = *patch.Notes
		}
		if patch.PickupTime != nil {
			updates["pickup_time"] = *patch.PickupTime
			claim.PickupTime = *patch.PickupTime
		}
		if patch.Status != nil {
			updates["status"] = *patch.Status
			claim.Status = *patch.Status
		}

		if len(updates) > 0 {
			if err := tx.Model(&claim).Updates(updates).Error; err != nil {
				return fmt.Errorf("claim service: update claim: %w", err)
			}
		}

		if patch.Status != nil {
			switch {
			case *patch.Status == models.ClaimApproved:
				if err := applyListingTransition(tx, listing, models.ListingInTransit); err != nil {
					return err
				}
			case patch.Status.Releases():
				if err := applyListingTransition(tx, listing, models.ListingAvailable); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		s.notifyStatusChange(ctx, claim, actor)
	}
	return &claim, nil
}

// List returns claims scoped to the actor's role: admins see everything,
// listing owners see claims against their listings, everyone else sees their
// own claims.
func (s *ClaimService) List(ctx context.Context, actor models.User) ([]models.Claim, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Claim{}).Order("created_at DESC")

	switch {
	case actor.UserType.IsAdmin():
		// Unscoped.
	case actor.UserType == models.UserTypeDonor || actor.UserType == models.UserTypeTrader:
		query = query.
			Joins("JOIN listings ON listings.id = claims.listing_id").
			Where("listings.owner_id = ?", actor.ID)
	default:
		query = query.Where("claimer_id = ?", actor.ID)
	}

	var claims []models.Claim
	if err := query.Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("claim service: list claims: %w", err)
	}
	return claims, nil
}

func (s *ClaimService) notifyOwner(ctx context.Context, claim models.Claim, title, message string) {
	if s.dispatcher == nil {
		return
	}

	var listing models.Listing
	if err := s.db.WithContext(ctx).Select("owner_id").First(&listing, "id = ?", claim.ListingID).Error; err != nil {
		return
	}

	s.dispatcher.Notify(notify.Request{
		RecipientID: listing.OwnerID,
		Type:        models.NotificationClaimUpdate,
		Title:       title,
		Message:     message,
		Data:        map[string]any{"claim_id": claim.ID, "listing_id": claim.ListingID},
	})
}

// notifyStatusChange informs whichever claim party did not perform the update.
func (s *ClaimService) notifyStatusChange(ctx context.Context, claim models.Claim, actor models.User) {
	if s.dispatcher == nil {
		return
	}

	if actor.ID != claim.ClaimerID {
		s.dispatcher.Notify(notify.Request{
			RecipientID: claim.ClaimerID,
			Type:        models.NotificationClaimUpdate,
			Title:       "Claim updated",
			Message:     fmt.Sprintf("Your claim is now %s", claim.Status),
			Data:        map[string]any{"claim_id": claim.ID, "status": string(claim.Status)},
		})
		return
	}
	s.notifyOwner(ctx, claim, "Claim updated",
		fmt.Sprintf("A claim on your listing is now %s", claim.Status))
}

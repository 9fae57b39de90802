package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foodbridge/foodbridge/internal/database"
	"github.com/foodbridge/foodbridge/internal/database/testutil"
	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

func TestClaimServiceCreate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	dispatcher := newTestDispatcher(t, db)
	svc, err := NewClaimService(db, dispatcher)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	claim, err := svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(2 * time.Hour),
		Notes:      "back entrance",
	})
	require.NoError(t, err)
	require.Equal(t, models.ClaimPending, claim.Status)
	require.Equal(t, claimer.ID, claim.ClaimerID)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingClaimed, stored.Status)

	inbox := notificationsFor(t, db, dispatcher, owner.ID)
	require.Len(t, inbox, 1)
	require.Equal(t, models.NotificationClaimUpdate, inbox[0].Type)
}

func TestClaimServiceCreateRejectsPastPickup(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	_, err = svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(-time.Minute),
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingAvailable, stored.Status)
}

func TestClaimServiceCreateConflictsOnClaimedListing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	first := seedUser(t, db, models.UserTypeRecipient)
	second := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	_, err = svc.Create(context.Background(), first, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), second, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)

	// The loser leaves no claim row behind.
	var count int64
	require.NoError(t, db.Model(&models.Claim{}).Where("claimer_id = ?", second.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestClaimServiceCreateConcurrentSingleWinner(t *testing.T) {
	// Row locking under real contention needs a server database; the sqlite
	// test fixture serialises writers and cannot exercise it.
	dsn := os.Getenv("FOODBRIDGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set FOODBRIDGE_TEST_POSTGRES_DSN to run the concurrent claim test")
	}

	db, err := database.Open(database.Config{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	first := seedUser(t, db, models.UserTypeRecipient)
	second := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	start := make(chan struct{})
	results := make(chan error, 2)
	for _, claimer := range []models.User{first, second} {
		go func() {
			<-start
			_, err := svc.Create(context.Background(), claimer, CreateClaimInput{
				ListingID:  listing.ID,
				PickupTime: time.Now().Add(time.Hour),
			})
			results <- err
		}()
	}
	close(start)

	var wins, conflicts int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			wins++
			continue
		}
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
		conflicts++
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	var count int64
	require.NoError(t, db.Model(&models.Claim{}).Where("listing_id = ?", listing.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingClaimed, stored.Status)
}

func TestClaimServiceApproveMovesListingInTransit(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	dispatcher := newTestDispatcher(t, db)
	svc, err := NewClaimService(db, dispatcher)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	claim, err := svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	approved := models.ClaimApproved
	updated, err := svc.Update(context.Background(), claim.ID, owner, UpdateClaimPatch{Status: &approved})
	require.NoError(t, err)
	require.Equal(t, models.ClaimApproved, updated.Status)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingInTransit, stored.Status)

	inbox := notificationsFor(t, db, dispatcher, claimer.ID)
	require.NotEmpty(t, inbox)
}

func TestClaimServiceRejectReleasesListing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	claim, err := svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	rejected := models.ClaimRejected
	_, err = svc.Update(context.Background(), claim.ID, owner, UpdateClaimPatch{Status: &rejected})
	require.NoError(t, err)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingAvailable, stored.Status)
}

func TestClaimServiceCancelAfterApprovalReleasesListing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	claim, err := svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	approved := models.ClaimApproved
	_, err = svc.Update(context.Background(), claim.ID, owner, UpdateClaimPatch{Status: &approved})
	require.NoError(t, err)

	cancelled := models.ClaimCancelled
	_, err = svc.Update(context.Background(), claim.ID, claimer, UpdateClaimPatch{Status: &cancelled})
	require.NoError(t, err)

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingAvailable, stored.Status)
}

func TestClaimServiceUpdateForbiddenForOutsiders(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	outsider := seedUser(t, db, models.UserTypeRecipient)
	listing := seedListing(t, db, owner, models.ListingAvailable)

	claim, err := svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  listing.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	approved := models.ClaimApproved
	_, err = svc.Update(context.Background(), claim.ID, outsider, UpdateClaimPatch{Status: &approved})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestClaimServiceListScoping(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewClaimService(db, nil)
	require.NoError(t, err)

	owner := seedUser(t, db, models.UserTypeDonor)
	otherOwner := seedUser(t, db, models.UserTypeDonor)
	claimer := seedUser(t, db, models.UserTypeRecipient)
	admin := seedUser(t, db, models.UserTypeAdmin)

	mine := seedListing(t, db, owner, models.ListingAvailable)
	theirs := seedListing(t, db, otherOwner, models.ListingAvailable)

	_, err = svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  mine.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), claimer, CreateClaimInput{
		ListingID:  theirs.ID,
		PickupTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 2)

	ownerView, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, ownerView, 1)
	require.Equal(t, mine.ID, ownerView[0].ListingID)

	claimerView, err := svc.List(context.Background(), claimer)
	require.NoError(t, err)
	require.Len(t, claimerView, 2)
	for _, c := range claimerView {
		require.Equal(t, claimer.ID, c.ClaimerID)
	}
}

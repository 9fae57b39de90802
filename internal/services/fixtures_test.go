package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/notify"
	"github.com/foodbridge/foodbridge/internal/realtime"
)

func seedUser(t *testing.T, db *gorm.DB, userType models.UserType) models.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := models.User{
		Username: fmt.Sprintf("%s-%s", userType, suffix),
		Email:    fmt.Sprintf("%s-%s@example.com", userType, suffix),
		Password: "hashed",
		FullName: "Test User",
		Location: "Springfield",
		UserType: userType,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedListing(t *testing.T, db *gorm.DB, owner models.User, status models.ListingStatus) models.Listing {
	t.Helper()

	listing := models.Listing{
		Title:          "Crate of apples",
		Category:       models.CategoryProduce,
		Quantity:       10,
		QuantityUnit:   "kg",
		ExpirationDate: time.Now().Add(72 * time.Hour),
		PickupLocation: "Springfield depot",
		IsDonation:     true,
		Status:         status,
		OwnerID:        owner.ID,
	}
	require.NoError(t, db.Create(&listing).Error)
	return listing
}

func seedTask(t *testing.T, db *gorm.DB, listing models.Listing, status models.TaskStatus) models.VolunteerTask {
	t.Helper()

	task := models.VolunteerTask{
		TaskType:          models.TaskPickup,
		Title:             "Pick up apples",
		Location:          "Springfield depot",
		ScheduledTime:     time.Now().Add(24 * time.Hour),
		EstimatedDuration: 45,
		Priority:          2,
		Status:            status,
		ListingID:         listing.ID,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

// newTestDispatcher wires a dispatcher against the test database so the
// services under test can fan out notifications for real.
func newTestDispatcher(t *testing.T, db *gorm.DB) *notify.Dispatcher {
	t.Helper()

	dispatcher := notify.NewDispatcher(db, realtime.NewHub())
	t.Cleanup(dispatcher.Close)
	return dispatcher
}

func notificationsFor(t *testing.T, db *gorm.DB, dispatcher *notify.Dispatcher, userID string) []models.Notification {
	t.Helper()

	dispatcher.Flush()
	var rows []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

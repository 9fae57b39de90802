package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/database/testutil"
	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

func seedNotification(t *testing.T, db *gorm.DB, recipientID string, read bool) models.Notification {
	t.Helper()

	n := models.Notification{
		RecipientID: recipientID,
		Type:        models.NotificationSystem,
		Title:       "Heads up",
		Message:     "Something happened",
		Read:        read,
	}
	if read {
		at := time.Now()
		n.ReadAt = &at
	}
	require.NoError(t, db.Create(&n).Error)
	return n
}

func TestNotificationServiceListForUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	other := seedUser(t, db, models.UserTypeRecipient)
	unread := seedNotification(t, db, user.ID, false)
	seedNotification(t, db, user.ID, true)
	seedNotification(t, db, other.ID, false)

	all, err := svc.ListForUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	unreadOnly, err := svc.ListForUser(context.Background(), user.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unreadOnly, 1)
	require.Equal(t, unread.ID, unreadOnly[0].ID)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	n := seedNotification(t, db, user.ID, false)

	marked, err := svc.MarkRead(context.Background(), n.ID, user.ID)
	require.NoError(t, err)
	require.True(t, marked.Read)
	require.NotNil(t, marked.ReadAt)

	// Marking again keeps the original timestamp.
	firstReadAt := *marked.ReadAt
	again, err := svc.MarkRead(context.Background(), n.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, firstReadAt.Unix(), again.ReadAt.Unix())
}

func TestNotificationServiceMarkReadOwnership(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	other := seedUser(t, db, models.UserTypeRecipient)
	n := seedNotification(t, db, user.ID, false)

	_, err = svc.MarkRead(context.Background(), n.ID, other.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.MarkRead(context.Background(), "no-such-id", user.ID)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	seedNotification(t, db, user.ID, false)
	seedNotification(t, db, user.ID, false)
	seedNotification(t, db, user.ID, true)

	affected, err := svc.MarkAllRead(context.Background(), user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, affected)

	remaining, err := svc.ListForUser(context.Background(), user.ID, true, 0)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestNotificationServiceDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	other := seedUser(t, db, models.UserTypeRecipient)
	n := seedNotification(t, db, user.ID, false)

	err = svc.Delete(context.Background(), n.ID, other.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.Delete(context.Background(), n.ID, user.ID))

	all, err := svc.ListForUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestNotificationServicePruneRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewNotificationService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeRecipient)
	old := seedNotification(t, db, user.ID, true)
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	seedNotification(t, db, user.ID, true)
	seedNotification(t, db, user.ID, false)

	affected, err := svc.PruneRead(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	all, err := svc.ListForUser(context.Background(), user.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

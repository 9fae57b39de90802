package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

// NotificationService reads and maintains the per-user notification inbox.
// Writes arrive through the dispatcher, not here.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, now: time.Now}, nil
}

// ListForUser returns the user's notifications, newest first. When unreadOnly
// is set, read notifications are filtered out.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := s.db.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("notification service: list: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. Marking an already-read notification
// is a no-op and keeps the original read timestamp.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	notification, err := s.getOwned(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	if notification.Read {
		return notification, nil
	}

	readAt := s.now()
	notification.Read = true
	notification.ReadAt = &readAt
	if err := s.db.WithContext(ctx).Model(notification).Updates(map[string]any{
		"read":    true,
		"read_at": readAt,
	}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}
	return notification, nil
}

// MarkAllRead flags every unread notification of the user as read and returns
// the number affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "read_at": s.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a notification from the user's inbox.
func (s *NotificationService) Delete(ctx context.Context, notificationID, userID string) error {
	ctx = ensureContext(ctx)

	notification, err := s.getOwned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(notification).Error; err != nil {
		return fmt.Errorf("notification service: delete: %w", err)
	}
	return nil
}

// PruneRead deletes read notifications older than the cutoff. Used by the
// maintenance sweeper.
func (s *NotificationService) PruneRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	cutoff := s.now().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) getOwned(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("Notification not found")
		}
		return nil, fmt.Errorf("notification service: load: %w", err)
	}
	if notification.RecipientID != userID {
		return nil, apperrors.ErrForbidden.WithMessage("Not authorized to access this notification")
	}
	return &notification, nil
}

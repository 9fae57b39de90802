package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType labels what triggered a notification.
type NotificationType string

const (
	NotificationClaimUpdate  NotificationType = "claim_update"
	NotificationTradeUpdate  NotificationType = "trade_update"
	NotificationTradeMessage NotificationType = "trade_message"
	NotificationTaskUpdate   NotificationType = "task_update"
	NotificationSystem       NotificationType = "system"
)

// Notification represents an in-app notification for a user. Rows are append-only
// apart from the read flag.
type Notification struct {
	BaseModel

	RecipientID string `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Recipient   *User  `gorm:"foreignKey:RecipientID" json:"-"`

	Type    NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title   string           `gorm:"not null" json:"title"`
	Message string           `gorm:"type:text" json:"message"`
	Data    datatypes.JSON   `json:"data,omitempty"`

	Read   bool       `gorm:"default:false;index" json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

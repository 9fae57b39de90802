package models

import "time"

// TaskType identifies the kind of volunteer work a task requires.
type TaskType string

const (
	TaskPickup     TaskType = "pickup"
	TaskDelivery   TaskType = "delivery"
	TaskSorting    TaskType = "sorting"
	TaskInspection TaskType = "inspection"
)

// Valid reports whether the task type is one of the known values.
func (t TaskType) Valid() bool {
	switch t {
	case TaskPickup, TaskDelivery, TaskSorting, TaskInspection:
		return true
	}
	return false
}

// TaskStatus tracks the lifecycle of a volunteer task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskAssigned, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// VolunteerTask is a volunteer-assignable unit of pickup, delivery, sorting
// or inspection work tied to a listing. Only a pending task may be self-claimed;
// the claim binds the volunteer and moves the task to assigned.
type VolunteerTask struct {
	BaseModel

	TaskType    TaskType `gorm:"type:varchar(16);not null;index" json:"task_type"`
	Title       string   `gorm:"not null" json:"title"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	Location    string   `json:"location"`

	ScheduledTime     time.Time `json:"scheduled_time"`
	EstimatedDuration int       `json:"estimated_duration"` // minutes
	Priority          int       `gorm:"default:1" json:"priority"`

	Status TaskStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	VolunteerID *string `gorm:"type:uuid;index" json:"volunteer_id,omitempty"`
	Volunteer   *User   `gorm:"foreignKey:VolunteerID" json:"volunteer,omitempty"`

	ListingID string   `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

package models

import "time"

// ClaimStatus tracks the lifecycle of a recipient's claim on a listing.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimApproved  ClaimStatus = "approved"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimCancelled ClaimStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimRejected, ClaimCancelled:
		return true
	}
	return false
}

// Releases reports whether the status returns the claimed listing to the pool.
func (s ClaimStatus) Releases() bool {
	return s == ClaimRejected || s == ClaimCancelled
}

// Claim represents a recipient's request to take possession of a listing.
type Claim struct {
	BaseModel

	Status     ClaimStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Notes      string      `gorm:"type:text" json:"notes,omitempty"`
	PickupTime time.Time   `json:"pickup_time"`

	ListingID string   `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`

	ClaimerID string `gorm:"type:uuid;not null;index" json:"claimer_id"`
	Claimer   *User  `gorm:"foreignKey:ClaimerID" json:"claimer,omitempty"`
}

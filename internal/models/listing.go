package models

import "time"

// FoodCategory classifies what kind of food a listing offers.
type FoodCategory string

const (
	CategoryProduce  FoodCategory = "produce"
	CategoryDairy    FoodCategory = "dairy"
	CategoryMeat     FoodCategory = "meat"
	CategoryBakery   FoodCategory = "bakery"
	CategoryPantry   FoodCategory = "pantry"
	CategoryPrepared FoodCategory = "prepared"
)

// Valid reports whether the category is one of the known values.
func (c FoodCategory) Valid() bool {
	switch c {
	case CategoryProduce, CategoryDairy, CategoryMeat, CategoryBakery, CategoryPantry, CategoryPrepared:
		return true
	}
	return false
}

// ListingStatus captures where a listing sits in its lifecycle.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingClaimed   ListingStatus = "claimed"
	ListingInTransit ListingStatus = "in_transit"
	ListingCompleted ListingStatus = "completed"
	ListingCancelled ListingStatus = "cancelled"
)

// listingEdges is the exhaustive transition table for the listing state machine.
// Cancellation is reachable from every state so owners and admins can always
// withdraw a listing.
var listingEdges = map[ListingStatus]map[ListingStatus]bool{
	ListingAvailable: {
		ListingClaimed:   true, // claim created
		ListingInTransit: true, // claim approved or trade created
		ListingCancelled: true,
	},
	ListingClaimed: {
		ListingAvailable: true, // claim rejected or cancelled
		ListingInTransit: true, // claim approved
		ListingCancelled: true,
	},
	ListingInTransit: {
		ListingAvailable: true, // claim or trade rejected/cancelled
		ListingCompleted: true, // claim or trade fulfilled
		ListingCancelled: true,
	},
	ListingCompleted: {
		ListingCancelled: true,
	},
	ListingCancelled: {
		ListingCancelled: true,
	},
}

// Valid reports whether the status is one of the five defined values.
func (s ListingStatus) Valid() bool {
	_, ok := listingEdges[s]
	return ok
}

// CanTransitionTo reports whether the listing state machine permits the edge.
func (s ListingStatus) CanTransitionTo(target ListingStatus) bool {
	return listingEdges[s][target]
}

// Active reports whether the listing is bound to a live claim or trade.
func (s ListingStatus) Active() bool {
	return s == ListingClaimed || s == ListingInTransit
}

// Listing represents a posted quantity of food available for donation or trade.
type Listing struct {
	BaseModel

	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Category    FoodCategory `gorm:"type:varchar(16);not null;index" json:"category"`

	Quantity     float64 `json:"quantity"`
	QuantityUnit string  `json:"quantity_unit"`

	ExpirationDate     time.Time `json:"expiration_date"`
	PickupLocation     string    `json:"pickup_location"`
	PickupInstructions string    `gorm:"type:text" json:"pickup_instructions,omitempty"`

	IsDonation bool          `gorm:"default:true" json:"is_donation"`
	Status     ListingStatus `gorm:"type:varchar(16);not null;default:'available';index" json:"status"`

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	Claims []Claim `gorm:"foreignKey:ListingID" json:"claims,omitempty"`
}

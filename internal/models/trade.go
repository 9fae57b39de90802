package models

import (
	"time"

	"gorm.io/datatypes"
)

// TradeStatus tracks a bilateral exchange negotiation.
type TradeStatus string

const (
	TradeProposed    TradeStatus = "proposed"
	TradeNegotiating TradeStatus = "negotiating"
	TradeAccepted    TradeStatus = "accepted"
	TradeCompleted   TradeStatus = "completed"
	TradeRejected    TradeStatus = "rejected"
	TradeCancelled   TradeStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeProposed, TradeNegotiating, TradeAccepted, TradeCompleted, TradeRejected, TradeCancelled:
		return true
	}
	return false
}

// Releases reports whether the status returns both listings to the pool.
func (s TradeStatus) Releases() bool {
	return s == TradeRejected || s == TradeCancelled
}

// Trade represents a two-party proposal to exchange a pair of listings.
type Trade struct {
	BaseModel

	Status TradeStatus `gorm:"type:varchar(16);not null;default:'proposed';index" json:"status"`

	InitiatorNotes string `gorm:"type:text" json:"initiator_notes,omitempty"`
	ResponderNotes string `gorm:"type:text" json:"responder_notes,omitempty"`

	// Terms carries the open key-value payload both parties negotiate over.
	Terms datatypes.JSON `json:"terms,omitempty"`

	// CompletionTime is stamped exactly once, on the transition into completed.
	CompletionTime *time.Time `json:"completion_time,omitempty"`

	InitiatorID string `gorm:"type:uuid;not null;index" json:"initiator_id"`
	Initiator   *User  `gorm:"foreignKey:InitiatorID" json:"initiator,omitempty"`

	ResponderID string `gorm:"type:uuid;not null;index" json:"responder_id"`
	Responder   *User  `gorm:"foreignKey:ResponderID" json:"responder,omitempty"`

	InitiatorListingID string   `gorm:"type:uuid;not null" json:"initiator_listing_id"`
	InitiatorListing   *Listing `gorm:"foreignKey:InitiatorListingID" json:"initiator_listing,omitempty"`

	ResponderListingID string   `gorm:"type:uuid;not null" json:"responder_listing_id"`
	ResponderListing   *Listing `gorm:"foreignKey:ResponderListingID" json:"responder_listing,omitempty"`
}

// Participant reports whether the supplied user is either side of the trade.
func (t *Trade) Participant(userID string) bool {
	return userID != "" && (userID == t.InitiatorID || userID == t.ResponderID)
}

// Counterparty returns the participant who is not the supplied user.
func (t *Trade) Counterparty(userID string) string {
	if userID == t.InitiatorID {
		return t.ResponderID
	}
	return t.InitiatorID
}

// TradeMessage is one entry in the append-only message thread scoped to a trade.
type TradeMessage struct {
	BaseModel

	Message string `gorm:"type:text;not null" json:"message"`

	TradeID string `gorm:"type:uuid;not null;index" json:"trade_id"`
	Trade   *Trade `gorm:"foreignKey:TradeID" json:"-"`

	SenderID string `gorm:"type:uuid;not null" json:"sender_id"`
	Sender   *User  `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

package models

// UserType identifies the role a user plays on the platform.
type UserType string

const (
	UserTypeDonor     UserType = "donor"
	UserTypeRecipient UserType = "recipient"
	UserTypeTrader    UserType = "trader"
	UserTypeVolunteer UserType = "volunteer"
	UserTypeAdmin     UserType = "admin"
)

// Valid reports whether the user type is one of the known roles.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeDonor, UserTypeRecipient, UserTypeTrader, UserTypeVolunteer, UserTypeAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether the user type carries administrative privileges.
func (t UserType) IsAdmin() bool { return t == UserTypeAdmin }

// CanOwnListings reports whether the user type may publish listings.
func (t UserType) CanOwnListings() bool {
	return t == UserTypeDonor || t == UserTypeTrader || t == UserTypeAdmin
}

// User describes platform accounts: donors, recipients, traders, volunteers and admins.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FullName      string   `json:"full_name"`
	Bio           string   `gorm:"type:text" json:"bio,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	Location      string   `json:"location"`
	ContactNumber string   `json:"contact_number"`
	UserType      UserType `gorm:"type:varchar(16);not null;index" json:"user_type"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Listings []Listing `gorm:"foreignKey:OwnerID" json:"listings,omitempty"`
	Tasks    []VolunteerTask `gorm:"foreignKey:VolunteerID" json:"-"`
}

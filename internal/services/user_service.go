package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/pkg/crypto"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
	"github.com/foodbridge/foodbridge/pkg/metrics"
)

// RegisterInput defines a new account.
type RegisterInput struct {
	Username      string
	Email         string
	Password      string
	FullName      string
	Bio           string
	Organization  string
	Location      string
	ContactNumber string
	UserType      models.UserType
}

// UpdateProfilePatch carries the optional fields of a profile update.
type UpdateProfilePatch struct {
	FullName      *string
	Bio           *string
	Organization  *string
	Location      *string
	ContactNumber *string
}

// UserService owns accounts and credentials.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register creates an account with a hashed password. Username and email are
// unique; collisions surface as conflicts.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" || input.Email == "" {
		return nil, apperrors.NewBadRequest("username and email are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}
	if !input.UserType.Valid() || input.UserType.IsAdmin() {
		return nil, apperrors.NewBadRequest("unknown user type")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Username:      input.Username,
		Email:         input.Email,
		Password:      hash,
		FullName:      input.FullName,
		Bio:           input.Bio,
		Organization:  input.Organization,
		Location:      input.Location,
		ContactNumber: input.ContactNumber,
		UserType:      input.UserType,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("username or email already registered")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	return &user, nil
}

// Authenticate verifies a username (or email) and password pair.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.IsActive || !crypto.VerifyPassword(password, user.Password) {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	return &user, nil
}

// Get loads a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("User not found")
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial patch to the actor's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, patch UpdateProfilePatch) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.FullName != nil {
		updates["full_name"] = *patch.FullName
	}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if patch.Organization != nil {
		updates["organization"] = *patch.Organization
	}
	if patch.Location != nil {
		updates["location"] = *patch.Location
	}
	if patch.ContactNumber != nil {
		updates["contact_number"] = *patch.ContactNumber
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}
	return user, nil
}

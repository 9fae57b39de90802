package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/foodbridge/foodbridge/internal/auth"
	"github.com/foodbridge/foodbridge/internal/models"
	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/errors"
	"github.com/foodbridge/foodbridge/pkg/response"
)

// AuthHandler manages registration, login and the current-user endpoint.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt}, nil
}

type registerRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=64"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"full_name" validate:"max=128"`
	Bio           string `json:"bio"`
	Organization  string `json:"organization"`
	Location      string `json:"location"`
	ContactNumber string `json:"contact_number"`
	UserType      string `json:"user_type" validate:"required,oneof=donor recipient trader volunteer"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		Bio:           req.Bio,
		Organization:  req.Organization,
		Location:      req.Location,
		ContactNumber: req.ContactNumber,
		UserType:      models.UserType(req.UserType),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(*user)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusCreated, tokenResponse{AccessToken: token, User: user})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.GenerateAccessToken(*user)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: token, User: user})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.users)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, user)
}

type updateProfileRequest struct {
	FullName      *string `json:"full_name"`
	Bio           *string `json:"bio"`
	Organization  *string `json:"organization"`
	Location      *string `json:"location"`
	ContactNumber *string `json:"contact_number"`
}

// PATCH /api/auth/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c, h.users)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.users.UpdateProfile(requestContext(c), user.ID, services.UpdateProfilePatch{
		FullName:      req.FullName,
		Bio:           req.Bio,
		Organization:  req.Organization,
		Location:      req.Location,
		ContactNumber: req.ContactNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, updated)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foodbridge/foodbridge/internal/database/testutil"
	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
		FullName: "Alice Example",
		UserType: models.UserTypeDonor,
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "correct horse", user.Password)
	require.True(t, user.IsActive)

	authed, err := svc.Authenticate(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)

	byEmail, err := svc.Authenticate(context.Background(), "Alice@Example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.com", Password: "long enough", UserType: models.UserTypeDonor}},
		{"short password", RegisterInput{Username: "bob", Email: "b@b.com", Password: "short", UserType: models.UserTypeDonor}},
		{"unknown type", RegisterInput{Username: "bob", Email: "b@b.com", Password: "long enough", UserType: "super"}},
		{"admin self-signup", RegisterInput{Username: "bob", Email: "b@b.com", Password: "long enough", UserType: models.UserTypeAdmin}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)
		})
	}
}

func TestUserServiceRegisterDuplicate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	input := RegisterInput{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "long enough",
		UserType: models.UserTypeRecipient,
	}
	_, err = svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceAuthenticateFailures(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "dave",
		Email:    "dave@example.com",
		Password: "long enough",
		UserType: models.UserTypeVolunteer,
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "dave", "wrong password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "long enough")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, err = svc.Authenticate(context.Background(), "dave", "long enough")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user := seedUser(t, db, models.UserTypeDonor)

	bio := "Runs the community fridge"
	location := "Shelbyville"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfilePatch{
		Bio:      &bio,
		Location: &location,
	})
	require.NoError(t, err)
	require.Equal(t, bio, updated.Bio)
	require.Equal(t, location, updated.Location)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.Equal(t, bio, stored.Bio)
	require.Equal(t, user.Username, stored.Username)
}

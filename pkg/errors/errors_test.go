package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorErrorIncludesInternal(t *testing.T) {
	base := errors.New("row locked")
	appErr := ErrConflict.WithInternal(base)

	require.Contains(t, appErr.Error(), "row locked")
	require.ErrorIs(t, appErr, base)
}

func TestWithInternalDoesNotMutateSentinel(t *testing.T) {
	wrapped := ErrNotFound.WithInternal(errors.New("missing listing"))

	require.Nil(t, ErrNotFound.Internal)
	require.NotNil(t, wrapped.Internal)
	require.Equal(t, ErrNotFound.Code, wrapped.Code)
}

func TestWithMessageKeepsCodeAndStatus(t *testing.T) {
	custom := ErrConflict.WithMessage("listing is not available")

	require.Equal(t, "CONFLICT", custom.Code)
	require.Equal(t, http.StatusConflict, custom.StatusCode)
	require.Equal(t, "listing is not available", custom.Message)
}

func TestFromErrorPassthrough(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrForbidden)
	require.Equal(t, ErrForbidden, appErr)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Internal, "boom")
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("task is not available for volunteers")
	require.Equal(t, http.StatusConflict, err.StatusCode)
	require.Equal(t, "task is not available for volunteers", err.Message)
}

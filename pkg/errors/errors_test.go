package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentityForErrorsIs(t *testing.T) {
	err := Clone(ErrCapacityExceeded, "course X is full")
	require.True(t, errors.Is(err, ErrCapacityExceeded))
	require.False(t, errors.Is(err, ErrDuplicateEnrollment))
	assert.Equal(t, "course X is full", err.Message)
	assert.Equal(t, "course has no seats left", ErrCapacityExceeded.Message)
}

func TestWithFieldAndFromError(t *testing.T) {
	err := WithField(ErrInvalidRUT, "rut_empresa")
	wrapped := fmt.Errorf("register: %w", err)

	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, "INVALID_RUT", appErr.Code)
	assert.Equal(t, "rut_empresa", appErr.Field)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, ErrInvalidRUT.Field)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

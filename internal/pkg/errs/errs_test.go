package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_KnownCode(t *testing.T) {
	err := NewError(ErrUserNotFound)

	require.NotNil(t, err)
	assert.Equal(t, ErrUserNotFound, err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "User not found.", err.Message)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	err := NewError(999999)

	assert.Equal(t, ErrUnknown, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewError_DefaultStatusIsOK(t *testing.T) {
	err := NewError(ErrMessageContentTooLong)

	assert.Equal(t, http.StatusOK, err.Status)
}

func TestNewError_FormatsMessage(t *testing.T) {
	err := NewError(ErrAvatarInvalid, 512)

	assert.Contains(t, err.Message, "512 KB")
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	base := NewError(ErrReactivationRequired)
	withDetail := base.WithDetail("needsReactivation", true)

	assert.Nil(t, base.Details)
	assert.Equal(t, true, withDetail.Details["needsReactivation"])
	assert.Equal(t, base.Code, withDetail.Code)
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("ban: %w", NewError(ErrCannotBanAdmin))

	assert.True(t, HasCode(wrapped, ErrCannotBanAdmin))
	assert.False(t, HasCode(wrapped, ErrUserNotFound))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrUnknown))
}

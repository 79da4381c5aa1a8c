package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_Unwrap(t *testing.T) {
	err := NewStorageError("save", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "STORAGE_ERROR")
	assert.Equal(t, "save", err.Details["operation"])
}

func TestHasCode_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("redeem: %w", NewDeliveryError(42, io.EOF))

	assert.True(t, HasCode(err, ErrCodeDeliveryFailed))
	assert.False(t, HasCode(err, ErrCodeStorage))

	appErr, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), appErr.UserID)
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, NewValidationError("prefix", "bad").IsUserFacing())
	assert.True(t, NewForbiddenError("owners only").IsUserFacing())
	assert.False(t, NewTelegramAPIError("sendMessage", io.EOF).IsUserFacing())
}

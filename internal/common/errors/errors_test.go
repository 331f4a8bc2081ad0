package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryBudgets(t *testing.T) {
	assert.Equal(t, 0, GetRetryCount(ErrCodeExtractionFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodeCandidateDataInvalid))
	assert.Equal(t, 2, GetRetryCount(ErrCodeDeliveryFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodePersistenceFailed))

	assert.False(t, IsRetryableErrorCode(ErrCodeExtractionFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeChannelTimeout))
}

func TestCodeOf(t *testing.T) {
	err := NewPersistenceFailedError(fmt.Errorf("db down"))
	assert.Equal(t, ErrCodePersistenceFailed, CodeOf(err))
	assert.True(t, IsCode(err, ErrCodePersistenceFailed))

	wrapped := fmt.Errorf("stage failed: %w", err)
	assert.Equal(t, ErrCodePersistenceFailed, CodeOf(wrapped))

	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}

func TestDeliveryErrorCarriesChannel(t *testing.T) {
	err := NewDeliveryFailedError("email", fmt.Errorf("throttled"))
	assert.Contains(t, err.Details, "email")
	assert.Contains(t, err.Details, "throttled")
	assert.True(t, err.Retryable)
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	var calls int
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesRetryableErrors(t *testing.T) {
	var calls int
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return NewExternalAPIError("upstream", errors.New("timeout"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	var calls int
	err := WithRetry(context.Background(), func() error {
		calls++
		return NewValidationError("email kosong")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestWithRetryDoesNotRetryPlainErrors(t *testing.T) {
	var calls int
	boom := errors.New("not an app error")
	err := WithRetry(context.Background(), func() error {
		calls++
		return boom
	})

	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhaustsAttemptBudget(t *testing.T) {
	var calls int
	err := WithRetry(context.Background(), func() error {
		calls++
		return NewReferralRewardError(errors.New("still failing"))
	})

	require.Error(t, err)
	assert.Equal(t, MaxRetries+1, calls)
	assert.Equal(t, CodeReferralReward, CodeOf(err))
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return NewExternalAPIError("upstream", errors.New("timeout"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"validation", NewValidationError("x"), false},
		{"external api", NewExternalAPIError("upstream", nil), true},
		{"referral reward", NewReferralRewardError(nil), true},
		{"wrapped retryable", fmt.Errorf("call failed: %w", NewExternalAPIError("upstream", nil)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, calculateBackoffDuration(1))
	assert.Equal(t, 400*time.Millisecond, calculateBackoffDuration(2))
	assert.Equal(t, MaxBackoff, calculateBackoffDuration(20))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeDuplicateUsername, CodeOf(NewDuplicateUsernameError("budi")))
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

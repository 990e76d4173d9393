package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-recommender/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), "dial", 5, time.Millisecond, logger.NewTestLogger(t),
			func(context.Context) error {
				calls++
				if calls < 3 {
					return errors.New("connection refused")
				}
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), "dial", 3, time.Millisecond, logger.NewTestLogger(t),
			func(context.Context) error {
				calls++
				return errors.New("connection refused")
			})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "dial failed after 3 attempts")
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := RetryWithBackoff(ctx, "dial", 10, time.Hour, logger.NewTestLogger(t),
			func(context.Context) error {
				calls++
				cancel()
				return errors.New("unavailable")
			})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

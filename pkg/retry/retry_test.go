package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func fast(extra ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}, extra...)
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBoom)
		}
		return nil
	}, fast(WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PlainErrorIsNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	}, fast()...)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsAndUnwraps(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBoom)
	}, fast(WithRetryIf(func(error) bool { return true }))...)

	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustedReturnsUnwrapped(t *testing.T) {
	var retries []int
	err := Do(context.Background(), func(context.Context) error {
		return Retryable(errBoom)
	}, fast(WithMaxAttempts(3), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}))...)

	assert.Equal(t, errBoom, err)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

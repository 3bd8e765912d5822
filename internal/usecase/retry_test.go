package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastPolicy = RetryPolicy{Timeout: 50 * time.Millisecond, Attempts: 2, Backoff: time.Millisecond}

func TestWithRetry_RetriesTransientOnce(t *testing.T) {
	calls := 0
	out, err := withRetry(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("connection reset"))
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_GivesUpAfterSecondFailure(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("503"))
	})

	assert.True(t, IsTransient(err))
	assert.Equal(t, 2, calls)
}

func TestWithRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	declined := &PaymentError{Message: "Your card was declined."}
	_, err := withRetry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		return 0, declined
	})

	assert.ErrorIs(t, err, declined)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_TimeoutCountsAsTransient(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("reset"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

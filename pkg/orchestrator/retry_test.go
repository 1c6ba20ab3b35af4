package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollSucceedsImmediately(t *testing.T) {
	calls := 0

	err := Poll(context.Background(), 5, time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++

		return true, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPollSucceedsOnLaterAttempt(t *testing.T) {
	calls := 0

	err := Poll(context.Background(), 5, time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++

		return calls == 3, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Poll(context.Background(), 4, time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++

		return false, nil
	})

	assert.ErrorIs(t, err, ErrRetriesExceeded)
	assert.Equal(t, 4, calls)
}

func TestPollCarriesLastError(t *testing.T) {
	errBackend := errors.New("backend unavailable")

	err := Poll(context.Background(), 2, time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, errBackend
	})

	assert.ErrorIs(t, err, ErrRetriesExceeded)
	assert.Contains(t, err.Error(), errBackend.Error())
}

func TestPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Poll(ctx, 100, time.Hour, func(ctx context.Context) (bool, error) {
		calls++
		cancel()

		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

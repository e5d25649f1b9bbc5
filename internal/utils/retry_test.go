package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotmon/internal/logging"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	base, hook := test.NewNullLogger()
	calls := 0
	err := Retry(context.Background(), logging.Wrap(base), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), logging.NewNop(), 2, time.Millisecond, func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, logging.NewNop(), 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

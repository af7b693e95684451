package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/goresearch/internal/errs"
	"github.com/jonesrussell/goresearch/internal/retry"
)

func fastConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		IsRetryable:  errs.IsTransient,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errs.Transient("fetch", 503, errors.New("service unavailable"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorUnchanged(t *testing.T) {
	t.Parallel()

	lastErr := errs.Transient("fetch", 503, errors.New("still down"))
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errs.Transient("fetch", 502, errors.New("bad gateway"))
		}
		return lastErr
	})

	assert.Equal(t, 3, calls)
	// The final attempt's error comes back as-is, not wrapped.
	assert.Same(t, lastErr, err)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	permanent := errors.New("invalid request")
	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, permanent, err)
}

func TestDo_ConfigErrorNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retry.Do(context.Background(), fastConfig(), func() error {
		calls++
		return errs.NewConfigError("api_key", "must be set")
	})

	assert.Equal(t, 1, calls)

	var cfgErr *errs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retry.Do(ctx, cfg, func() error {
		calls++
		return errs.Transient("fetch", 500, errors.New("boom"))
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithDefaults_UsesTransientClassifier(t *testing.T) {
	t.Parallel()

	permanent := errors.New("not found")
	calls := 0
	err := retry.DoWithDefaults(context.Background(), func() error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, permanent, err)
}

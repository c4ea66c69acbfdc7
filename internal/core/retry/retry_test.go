package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errx.External(errors.New("boom"), "pricing", true)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), "test", func(ctx context.Context) error {
		calls++
		return errx.External(errors.New("boom"), "pricing", true)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errx.IsKind(err, errx.KindExternalService))
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), "test", func(ctx context.Context) error {
		calls++
		return errx.External(errors.New("bad request"), "pricing", false)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoValue_ReturnsValue(t *testing.T) {
	v, err := DoValue(context.Background(), fastPolicy(1), "test", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 3, InitialDelay: time.Hour}
	calls := 0
	err := Do(ctx, p, "test", func(ctx context.Context) error {
		calls++
		cancel()
		return errx.External(errors.New("boom"), "weather", true)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_DelayIsCapped(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 300*time.Millisecond, p.Delay(3))
	assert.Equal(t, 300*time.Millisecond, p.Delay(8))
}

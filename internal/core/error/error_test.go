package errx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("estimate cost: %w", External(errors.New("boom"), "pricing", true))
	assert.Equal(t, KindExternalService, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.False(t, IsKind(nil, KindExternalService))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, RetryableStatus(tt.status))
			assert.Equal(t, tt.want, FromStatus("pricing", tt.status, "").Retryable)
		})
	}
}

func TestFromTransport(t *testing.T) {
	assert.True(t, FromTransport("weather", context.DeadlineExceeded).Retryable)
	assert.False(t, FromTransport("weather", context.Canceled).Retryable)
	assert.False(t, Malformed("weather", errors.New("eof")).Retryable)
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	var appErr *AppError
	assert.True(t, errors.As(WrapRedis(redis.Nil), &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.True(t, errors.Is(WrapRedis(redis.Nil), redis.Nil))

	dialErr := WrapRedis(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	assert.True(t, IsKind(dialErr, KindExternalService))
	assert.True(t, IsRetryable(dialErr))
	assert.Contains(t, dialErr.Error(), RedisErrorMessage)

	assert.False(t, IsRetryable(WrapRedis(redis.ErrClosed)))
}

func TestConfigurationMessage(t *testing.T) {
	err := Configuration("chunk overlap %d must be smaller than window %d", 10, 5)
	assert.Equal(t, KindConfiguration, err.Kind)
	assert.Contains(t, err.Error(), "overlap 10")
}

package errx

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps go-redis errors onto AppError. A missing key becomes a 404;
// everything else is a redis service failure, retryable when the network
// or a deadline was at fault.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}

	var netErr net.Error
	retryable := errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr)
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) {
		retryable = false
	}

	appErr := External(err, "redis", retryable)
	appErr.Message = RedisErrorMessage
	return appErr
}

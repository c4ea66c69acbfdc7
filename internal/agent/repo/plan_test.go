package repo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func unreachableRepo(t *testing.T) *RedisPlanRepository {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPlanRepository(rdb, time.Hour)
}

func TestKeys(t *testing.T) {
	r := NewRedisPlanRepository(nil, 0)
	assert.Equal(t, "plan:abc:messages", r.messagesKey("abc"))
	assert.Equal(t, "plan:abc:summary", r.summaryKey("abc"))
}

func TestSavePlan_RequiresRunID(t *testing.T) {
	r := NewRedisPlanRepository(nil, 0)
	err := r.SavePlan(context.Background(), model.PlanningState{})
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindConfiguration))
}

func TestRedisFailuresAreWrapped(t *testing.T) {
	r := unreachableRepo(t)
	ctx := context.Background()
	state := *model.NewPlanningState("run-1", model.UserInfo{Origin: "Beirut"})
	state.Trace = append(state.Trace, schema.UserMessage("hi"))

	for _, err := range []error{
		r.SavePlan(ctx, state),
		r.DeletePlan(ctx, "run-1"),
		func() error { _, err := r.LoadPlan(ctx, "run-1"); return err }(),
	} {
		require.Error(t, err)
		var appErr *errx.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, http.StatusBadGateway, appErr.Status)
	}
}

func TestDecodeMessages(t *testing.T) {
	b, err := json.Marshal(schema.AssistantMessage("Recommended country: Japan", nil))
	require.NoError(t, err)

	msgs, err := decodeMessages("run-1", []string{string(b)})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, schema.Assistant, msgs[0].Role)
	assert.Equal(t, "Recommended country: Japan", msgs[0].Content)

	_, err = decodeMessages("run-1", []string{"{not json"})
	require.Error(t, err)
}

package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

type RedisPlanRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPlanRepository(rdb redis.Cmdable, ttl time.Duration) *RedisPlanRepository {
	return &RedisPlanRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisPlanRepository) messagesKey(runID string) string {
	return fmt.Sprintf("plan:%s:messages", runID)
}

func (r *RedisPlanRepository) summaryKey(runID string) string {
	return fmt.Sprintf("plan:%s:summary", runID)
}

// storedSummary is the state without its trace, which lives in the list.
type storedSummary struct {
	SavedAt time.Time           `json:"saved_at"`
	State   model.PlanningState `json:"state"`
}

func (r *RedisPlanRepository) SavePlan(ctx context.Context, state model.PlanningState) error {
	if state.RunID == "" {
		return errx.Configuration("run id is required to save a plan")
	}

	rows := make([]any, 0, len(state.Trace))
	for i, m := range state.Trace {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("run_id", state.RunID).Int("index", i).Msg("failed to marshal message")
			return fmt.Errorf("marshal message at index %d: %w", i, err)
		}
		rows = append(rows, b)
	}

	summary := storedSummary{SavedAt: time.Now().UTC(), State: state}
	summary.State.Trace = nil
	sb, err := json.Marshal(summary)
	if err != nil {
		logx.Error().Err(err).Str("run_id", state.RunID).Msg("failed to marshal plan summary")
		return fmt.Errorf("marshal plan summary: %w", err)
	}

	msgKey, sumKey := r.messagesKey(state.RunID), r.summaryKey(state.RunID)
	// replace the whole record so a re-save never interleaves two traces
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, msgKey)
		if len(rows) > 0 {
			pipe.RPush(ctx, msgKey, rows...)
		}
		pipe.Set(ctx, sumKey, sb, r.ttl)
		if r.ttl > 0 && len(rows) > 0 {
			pipe.Expire(ctx, msgKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", sumKey).Msg("failed to save plan to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisPlanRepository) LoadPlan(ctx context.Context, runID string) (*model.PlanHistory, error) {
	sumKey := r.summaryKey(runID)
	raw, err := r.rdb.Get(ctx, sumKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logx.Error().Err(err).Str("key", sumKey).Msg("failed to load plan summary from redis")
		}
		return nil, errx.WrapRedis(err)
	}
	var summary storedSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to unmarshal plan summary")
		return nil, fmt.Errorf("unmarshal plan summary: %w", err)
	}

	msgKey := r.messagesKey(runID)
	rows, err := r.rdb.LRange(ctx, msgKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", msgKey).Msg("failed to load plan messages from redis")
		return nil, errx.WrapRedis(err)
	}
	msgs, err := decodeMessages(runID, rows)
	if err != nil {
		return nil, err
	}

	return &model.PlanHistory{
		RunID:    runID,
		SavedAt:  summary.SavedAt,
		Summary:  &summary.State,
		Messages: msgs,
	}, nil
}

func (r *RedisPlanRepository) DeletePlan(ctx context.Context, runID string) error {
	if err := r.rdb.Del(ctx, r.messagesKey(runID), r.summaryKey(runID)).Err(); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to delete plan from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func decodeMessages(runID string, rows []string) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("run_id", runID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

var _ model.PlanRepository = (*RedisPlanRepository)(nil)

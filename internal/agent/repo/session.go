package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	errx "github.com/voyago/travel-agent/internal/core/error"
	logx "github.com/voyago/travel-agent/pkg/logger"

	"github.com/voyago/travel-agent/internal/agent/model"
)

// RedisSessionRepository stores session control state in a Redis hash and the
// one-shot approval as a separate SETNX key. SETNX is what makes TryApprove
// atomic: exactly one caller wins, concurrent double-submits lose.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("session:%s:state", id)
}

func (r *RedisSessionRepository) approvalKey(id string) string {
	return fmt.Sprintf("session:%s:approved", id)
}

func (r *RedisSessionRepository) Create(ctx context.Context) (*model.Session, error) {
	now := time.Now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		State:     model.StateRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}

	key := r.sessionKey(sess.ID)
	fields := map[string]any{
		"state":      string(sess.State),
		"created_at": now.Format(time.RFC3339Nano),
		"updated_at": now.Format(time.RFC3339Nano),
	}
	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to create session")
		return nil, errx.WrapRedis(err)
	}
	if err := r.touch(ctx, key); err != nil {
		return nil, err
	}

	logx.Debug().Str("session_id", sess.ID).Msg("session created")
	return sess, nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	key := r.sessionKey(id)
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session")
		return nil, errx.WrapRedis(err)
	}
	// HGETALL returns an empty map, not redis.Nil, for missing keys.
	if len(fields) == 0 {
		return nil, errx.SessionNotFound(id)
	}

	state, ok := model.ParseSessionState(fields["state"])
	if !ok {
		return nil, fmt.Errorf("session %s has corrupt state %q", id, fields["state"])
	}

	sess := &model.Session{ID: id, State: state}
	if t, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		sess.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		sess.UpdatedAt = t
	}
	return sess, nil
}

func (r *RedisSessionRepository) SetState(ctx context.Context, id string, state model.SessionState) error {
	key := r.sessionKey(id)
	fields := map[string]any{
		"state":      string(state),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Str("state", string(state)).Msg("failed to set session state")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key)
}

func (r *RedisSessionRepository) TryApprove(ctx context.Context, id string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.approvalKey(id), "1", r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to acquire approval")
		return false, errx.WrapRedis(err)
	}
	return ok, nil
}

func (r *RedisSessionRepository) ReleaseApproval(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.approvalKey(id)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to release approval")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set session TTL")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)

package inputs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"logrouter/internal/logger"
	"logrouter/pkg/models"
)

// RedisRegistry keeps snapshots in Redis so every node shares one warm copy
// in front of the persisted inputs. Redis failures fall through to next.
type RedisRegistry struct {
	client *redis.Client
	next   Registry
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewRedisRegistry(client *redis.Client, next Registry, ttl time.Duration, prefix string, log logger.Logger) *RedisRegistry {
	if log == nil {
		log = logger.NopLogger()
	}
	return &RedisRegistry{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: prefix,
		logger: log,
	}
}

func (r *RedisRegistry) key(inputID string) string {
	return r.prefix + inputID
}

func (r *RedisRegistry) Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error) {
	val, err := r.client.Get(ctx, r.key(inputID)).Bytes()
	switch {
	case err == nil:
		var meta models.InputMetadata
		if jsonErr := json.Unmarshal(val, &meta); jsonErr == nil {
			return &meta, nil
		}
		r.logger.WarnwCtx(ctx, "Discarding unreadable input snapshot", "input_id", inputID)
	case errors.Is(err, redis.Nil):
	default:
		r.logger.WarnwCtx(ctx, "Redis input lookup failed, falling back", "input_id", inputID, "error", err)
	}

	meta, err := r.next.Resolve(ctx, inputID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(meta); jsonErr == nil {
		if setErr := r.client.Set(ctx, r.key(inputID), data, r.ttl).Err(); setErr != nil {
			r.logger.WarnwCtx(ctx, "Failed to store input snapshot in redis", "input_id", inputID, "error", setErr)
		}
	}

	return meta, nil
}

// Invalidate drops the shared snapshot for inputID.
func (r *RedisRegistry) Invalidate(ctx context.Context, inputID string) error {
	return r.client.Del(ctx, r.key(inputID)).Err()
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/models"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

const idempotencyPrefix = "idempotency:reservations:"

// IdempotencyRepository stores replayable commit responses in Redis. It never holds
// reservation state, only the HTTP outcome of a keyed commit.
type IdempotencyRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewIdempotencyRepository constructs the repository. A nil client disables it.
func NewIdempotencyRepository(client *redis.Client, logger *zap.Logger) *IdempotencyRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyRepository{client: client, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (r *IdempotencyRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// Get loads the stored record for key or returns appErrors.ErrCacheMiss.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	if !r.Enabled() {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var record models.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record %s: %w", key, err)
	}
	return &record, nil
}

// Save stores record under key for ttl.
func (r *IdempotencyRepository) Save(ctx context.Context, key string, record models.IdempotencyRecord, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record %s: %w", key, err)
	}
	if err := r.client.Set(ctx, idempotencyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Acquire marks key as in flight. It returns false when another request holds it.
func (r *IdempotencyRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !r.Enabled() {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key+":lock", time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the in-flight marker for key.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) {
	if !r.Enabled() {
		return
	}
	if err := r.client.Del(ctx, idempotencyPrefix+key+":lock").Err(); err != nil {
		r.logger.Warn("release idempotency lock failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the underlying Redis connection if present.
func (r *IdempotencyRepository) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}

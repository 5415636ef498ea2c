// Package cache keeps the student-facing exam payload in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/model"
)

// ExamCache stores exam payloads as JSON strings with a TTL.
type ExamCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewExamCache creates an ExamCache. A zero ttl keeps entries until invalidated.
func NewExamCache(rdb *redis.Client, ttl time.Duration) *ExamCache {
	return &ExamCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached payload, or (nil, nil) on a miss.
func (c *ExamCache) Get(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}

// Set stores the payload under its exam's key.
func (c *ExamCache) Set(ctx context.Context, payload *model.ExamPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	key := config.CacheKey.ExamPayloadKey(payload.ExamID.String())
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set payload: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload of an exam.
func (c *ExamCache) Invalidate(ctx context.Context, examID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Err()
}

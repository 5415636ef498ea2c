// Package realtime fans attempt events out over Redis.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/model"
)

// Publisher publishes each event on the exam's monitor channel and queues
// it for the audit worker in one pipeline.
type Publisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(rdb *redis.Client, log zerolog.Logger) *Publisher {
	return &Publisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish never fails the caller; errors are logged.
func (p *Publisher) Publish(ctx context.Context, event model.AttemptEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to encode attempt event")
		return
	}

	// The request context may be cancelled right after the response is
	// written; the event should still go out.
	ctx = context.WithoutCancel(ctx)

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(event.ExamID.String()), raw)
	pipe.RPush(ctx, config.WorkerKey.PersistAttemptEventsQueue, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().
			Err(err).
			Str("type", string(event.Type)).
			Str("attempt_id", event.AttemptID.String()).
			Msg("Failed to publish attempt event")
	}
}

// Subscribe opens a subscription to an exam's monitor channel.
// The caller must close the returned PubSub.
func (p *Publisher) Subscribe(ctx context.Context, examID string) *redis.PubSub {
	return p.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
}

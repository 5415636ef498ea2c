package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/model"
)

const (
	BatchSize    = 100
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Redis rejects blocking timeouts below 1s
)

// eventSink is the persistence the worker writes to.
type eventSink interface {
	CopyMany(ctx context.Context, events []model.AttemptEvent) (int64, error)
	Insert(ctx context.Context, e model.AttemptEvent) error
}

// EventWorker drains the attempt event queue into the attempt_events table.
type EventWorker struct {
	sink    eventSink
	rdb     *redis.Client
	log     zerolog.Logger
	backoff time.Duration
}

// NewEventWorker creates a new EventWorker.
func NewEventWorker(sink eventSink, rdb *redis.Client, log zerolog.Logger) *EventWorker {
	return &EventWorker{
		sink:    sink,
		rdb:     rdb,
		log:     log.With().Str("component", "event_worker").Logger(),
		backoff: 2 * time.Second,
	}
}

// Start consumes the queue until ctx is cancelled, flushing when the buffer
// is full or BatchTimeout has passed since the last flush.
func (w *EventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("EventWorker started")

	buffer := make([]model.AttemptEvent, 0, BatchSize)
	lastFlush := time.Now()

	for {
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAttemptEventsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping")
			w.sleep(ctx, w.backoff)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var event model.AttemptEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}
		buffer = append(buffer, event)
	}
}

// flush tries COPY first, then row-by-row inserts; rows that still fail
// go back onto the queue.
func (w *EventWorker) flush(ctx context.Context, batch []model.AttemptEvent) {
	n, err := w.sink.CopyMany(ctx, batch)
	if err == nil {
		w.log.Debug().Int64("rows", n).Msg("Attempt events persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk copy failed, inserting row by row")

	var failed []model.AttemptEvent
	for _, e := range batch {
		if err := w.sink.Insert(ctx, e); err != nil {
			w.log.Error().Err(err).Str("attempt_id", e.AttemptID.String()).Msg("Insert failed, requeueing")
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *EventWorker) requeue(ctx context.Context, events []model.AttemptEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.PersistAttemptEventsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(events)).Msg("Failed to requeue attempt events, events lost")
		return
	}
	w.log.Info().Int("count", len(events)).Msg("Requeued attempt events")
	w.sleep(ctx, w.backoff)
}

func (w *EventWorker) shutdown(buffer []model.AttemptEvent) {
	w.log.Info().Int("pending", len(buffer)).Msg("EventWorker stopping, flushing buffer")
	if len(buffer) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flush(ctx, buffer)
}

func (w *EventWorker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

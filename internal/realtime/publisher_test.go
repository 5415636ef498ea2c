package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/model"
)

func TestPublishQueuesAndBroadcasts(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	p := NewPublisher(rdb, zerolog.Nop())
	ctx := context.Background()

	event := model.AttemptEvent{
		Type:       model.AttemptEventStarted,
		ExamID:     uuid.New(),
		AttemptID:  uuid.New(),
		StudentID:  uuid.New(),
		OccurredAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	sub := p.Subscribe(ctx, event.ExamID.String())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	p.Publish(ctx, event)

	select {
	case msg := <-sub.Channel():
		var got model.AttemptEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if got.AttemptID != event.AttemptID || got.Type != event.Type {
			t.Errorf("broadcast = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}

	queued, err := mr.List(config.WorkerKey.PersistAttemptEventsQueue)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(queued))
	}
}

func TestPublishSwallowsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	// Must return without panicking.
	NewPublisher(rdb, zerolog.Nop()).Publish(context.Background(), model.AttemptEvent{Type: model.AttemptEventAnswered})
}

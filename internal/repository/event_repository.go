package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom-backend/internal/model"
)

// EventRepository persists attempt events to the audit table.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

var eventColumns = []string{"event_type", "exam_id", "attempt_id", "student_id", "question_id", "score", "occurred_at"}

func eventRow(e model.AttemptEvent) []any {
	return []any{string(e.Type), e.ExamID, e.AttemptID, e.StudentID, e.QuestionID, e.Score, e.OccurredAt}
}

// CopyMany bulk-inserts events using the COPY protocol.
func (r *EventRepository) CopyMany(ctx context.Context, events []model.AttemptEvent) (int64, error) {
	return r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_events"},
		eventColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			return eventRow(events[i]), nil
		}),
	)
}

// Insert writes a single event.
func (r *EventRepository) Insert(ctx context.Context, e model.AttemptEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_events (event_type, exam_id, attempt_id, student_id, question_id, score, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		eventRow(e)...,
	)
	return err
}

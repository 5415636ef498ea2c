package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptEventType names a lifecycle event on an attempt.
type AttemptEventType string

const (
	AttemptEventStarted   AttemptEventType = "attempt.started"
	AttemptEventAnswered  AttemptEventType = "attempt.answered"
	AttemptEventSubmitted AttemptEventType = "attempt.submitted"
	AttemptEventDeleted   AttemptEventType = "attempt.deleted"
)

// AttemptEvent is fanned out to the live monitor and persisted to the
// attempt_events audit table.
type AttemptEvent struct {
	Type       AttemptEventType `json:"type"`
	ExamID     uuid.UUID        `json:"exam_id"`
	AttemptID  uuid.UUID        `json:"attempt_id"`
	StudentID  uuid.UUID        `json:"student_id"`
	QuestionID *uuid.UUID       `json:"question_id,omitempty"`
	Score      *int             `json:"score,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

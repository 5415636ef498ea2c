package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. COMPLETED is terminal.
type AttemptStatus string

const (
	AttemptStatusStarted   AttemptStatus = "STARTED"
	AttemptStatusCompleted AttemptStatus = "COMPLETED"
)

// Attempt represents one student's run through one exam.
// ExpiresAt is fixed at creation and never recomputed.
type Attempt struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	StudentID   uuid.UUID     `json:"student_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	Score       *int          `json:"score,omitempty"`
}

// IsCompleted reports whether the attempt reached its terminal state.
func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptStatusCompleted
}

// Overdue reports whether a STARTED attempt is past its deadline plus grace.
func (a *Attempt) Overdue(now time.Time, grace time.Duration) bool {
	return a.Status == AttemptStatusStarted && now.After(a.ExpiresAt.Add(grace))
}

// Response is a student's answer to one question within one attempt.
// IsCorrect is a snapshot taken when the answer was recorded and is never
// refreshed, even if the option is edited later.
type Response struct {
	ID               uuid.UUID `json:"id"`
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptionID uuid.UUID `json:"selected_option_id"`
	IsCorrect        bool      `json:"-"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ScoredResponse is a response joined with its question's point value.
type ScoredResponse struct {
	QuestionID uuid.UUID
	IsCorrect  bool
	Points     int
}

// AttemptOverview is an attempt with its student, for the teacher monitor.
type AttemptOverview struct {
	Attempt
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	Answered     int    `json:"answered"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	LateCode string `json:"late_code" binding:"omitempty,max=32,latecode"`
}

// RecordAnswerRequest is the payload for saving one answer.
type RecordAnswerRequest struct {
	QuestionID       string `json:"question_id" binding:"required,uuid"`
	SelectedOptionID string `json:"selected_option_id" binding:"required,uuid"`
}

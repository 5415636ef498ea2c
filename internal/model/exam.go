package model

import (
	"time"

	"github.com/google/uuid"
)

// CloseMode decides whether an exam can still be entered after its end time.
type CloseMode string

const (
	// CloseModeStrict rejects every attempt started at or after end_time.
	CloseModeStrict CloseMode = "STRICT"
	// CloseModePermissive admits late attempts that present a valid late code.
	CloseModePermissive CloseMode = "PERMISSIVE"
)

// Exam represents an exam entity. Questions is only populated by reads
// that ask for the full exam.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	CloseMode       CloseMode  `json:"close_mode"`
	TeacherID       uuid.UUID  `json:"teacher_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Questions       []Question `json:"questions,omitempty"`
}

// Duration returns the per-attempt time allowance.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ExamRequest is the payload for creating or updating an exam.
type ExamRequest struct {
	Title           string          `json:"title" binding:"required,min=3,max=255"`
	Description     string          `json:"description" binding:"omitempty,max=5000"`
	StartTime       time.Time       `json:"start_time" binding:"required"`
	EndTime         time.Time       `json:"end_time" binding:"required,gtfield=StartTime"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,min=1,max=1440"`
	CloseMode       CloseMode       `json:"close_mode" binding:"required,oneof=STRICT PERMISSIVE"`
	Questions       []QuestionInput `json:"questions" binding:"omitempty,dive"`
}

// ExamPayload is the Redis-cached exam sent to students (no correct answers).
// Questions are kept in storage order; shuffling happens per student.
// UpdatedAt is the exam row version the payload was built from.
type ExamPayload struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}

// NewExamPayload strips correctness flags from a fully loaded exam.
func NewExamPayload(exam *Exam) *ExamPayload {
	questions := make([]QuestionForStudent, len(exam.Questions))
	for i, q := range exam.Questions {
		options := make([]OptionForStudent, len(q.Options))
		for j, o := range q.Options {
			options[j] = OptionForStudent{ID: o.ID, Text: o.Text}
		}
		questions[i] = QuestionForStudent{
			ID:       q.ID,
			Text:     q.Text,
			ImageURL: q.ImageURL,
			Points:   q.Points,
			Options:  options,
		}
	}

	return &ExamPayload{
		ExamID:          exam.ID,
		UpdatedAt:       exam.UpdatedAt,
		Title:           exam.Title,
		Description:     exam.Description,
		DurationMinutes: exam.DurationMinutes,
		Questions:       questions,
	}
}

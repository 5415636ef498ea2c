package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
type Question struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Text     string    `json:"text"`
	ImageURL *string   `json:"image_url,omitempty"`
	Points   int       `json:"points"`
	Position int       `json:"position"`
	Options  []Option  `json:"options"`
}

// Option is one answer choice. More than one correct option per question
// is not rejected; authoring is expected to mark exactly one.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
	Position   int       `json:"position"`
}

// QuestionForStudent is a question without correctness data.
type QuestionForStudent struct {
	ID       uuid.UUID          `json:"id"`
	Text     string             `json:"text"`
	ImageURL *string            `json:"image_url,omitempty"`
	Points   int                `json:"points"`
	Options  []OptionForStudent `json:"options"`
}

// OptionForStudent never carries is_correct.
type OptionForStudent struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// QuestionInput is one question in an exam authoring payload.
type QuestionInput struct {
	Text     string        `json:"text" binding:"required,min=1,max=5000"`
	ImageURL string        `json:"image_url" binding:"omitempty,max=2048"`
	Points   int           `json:"points" binding:"required,min=1"`
	Options  []OptionInput `json:"options" binding:"omitempty,dive"`
}

// OptionInput is one option in an exam authoring payload.
type OptionInput struct {
	Text      string `json:"text" binding:"required,min=1,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

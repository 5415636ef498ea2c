package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/model"
)

// ExamStore is the exam persistence the services depend on.
// Lookups return repository.ErrNotFound when nothing matches.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Create(ctx context.Context, exam *model.Exam) error
	Update(ctx context.Context, exam *model.Exam) (questionsReplaced bool, err error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetQuestion(ctx context.Context, examID, questionID uuid.UUID) (*model.Question, error)
	GetOption(ctx context.Context, questionID, optionID uuid.UUID) (*model.Option, error)
}

// AttemptStore is the attempt and response persistence.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt, lateCode string) error
	UpsertResponse(ctx context.Context, resp *model.Response) error
	Complete(ctx context.Context, id uuid.UUID, submittedAt time.Time, score func([]model.ScoredResponse) int) (*model.Attempt, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListResponses(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.AttemptOverview, error)
}

// LateCodeStore is the late code persistence.
type LateCodeStore interface {
	Create(ctx context.Context, lc *model.LateCode) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.LateCode, error)
}

// UserStore is the account persistence.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// ExamPayloadCache caches the student-facing exam payload.
// Get returns (nil, nil) on a miss.
type ExamPayloadCache interface {
	Get(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error)
	Set(ctx context.Context, payload *model.ExamPayload) error
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// EventPublisher fans attempt events out to monitors and the audit log.
// Delivery is best effort; implementations log their own failures.
type EventPublisher interface {
	Publish(ctx context.Context, event model.AttemptEvent)
}

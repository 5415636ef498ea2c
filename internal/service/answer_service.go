package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
)

// AnswerService records student answers.
type AnswerService struct {
	attemptSvc *AttemptService
	exams      ExamStore
	attempts   AttemptStore
	events     EventPublisher
	log        zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(
	attemptSvc *AttemptService,
	exams ExamStore,
	attempts AttemptStore,
	events EventPublisher,
	log zerolog.Logger,
) *AnswerService {
	return &AnswerService{
		attemptSvc: attemptSvc,
		exams:      exams,
		attempts:   attempts,
		events:     events,
		log:        log.With().Str("component", "answer_service").Logger(),
	}
}

// RecordAnswer saves the selected option for one question, replacing any
// earlier answer. Correctness is captured now and never refreshed. An
// option that does not belong to the question is stored as incorrect.
func (s *AnswerService) RecordAnswer(ctx context.Context, attemptID, studentID, questionID, optionID uuid.UUID) error {
	attempt, err := s.attemptSvc.CheckAccess(ctx, attemptID, studentID, true)
	if err != nil {
		return err
	}

	question, err := s.exams.GetQuestion(ctx, attempt.ExamID, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}

	correct := false
	option, err := s.exams.GetOption(ctx, question.ID, optionID)
	switch {
	case err == nil:
		correct = option.IsCorrect
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("get option: %w", err)
	}

	resp := &model.Response{
		AttemptID:        attempt.ID,
		QuestionID:       question.ID,
		SelectedOptionID: optionID,
		IsCorrect:        correct,
	}
	if err := s.attempts.UpsertResponse(ctx, resp); err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptClosed):
			return ErrAttemptCompleted
		case errors.Is(err, repository.ErrNotFound):
			return ErrAttemptNotFound
		}
		return fmt.Errorf("save response: %w", err)
	}

	s.log.Debug().
		Str("attempt_id", attempt.ID.String()).
		Str("question_id", question.ID.String()).
		Msg("Answer recorded")

	s.events.Publish(ctx, model.AttemptEvent{
		Type:       model.AttemptEventAnswered,
		ExamID:     attempt.ExamID,
		AttemptID:  attempt.ID,
		StudentID:  studentID,
		QuestionID: &resp.QuestionID,
		OccurredAt: resp.UpdatedAt,
	})
	return nil
}

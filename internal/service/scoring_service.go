package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
)

// ScoringService owns the single STARTED -> COMPLETED transition.
type ScoringService struct {
	attempts AttemptStore
	events   EventPublisher
	now      func() time.Time
	log      zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(attempts AttemptStore, events EventPublisher, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		attempts: attempts,
		events:   events,
		now:      time.Now,
		log:      log.With().Str("component", "scoring_service").Logger(),
	}
}

// TotalScore sums the points of correct responses. Unanswered questions
// have no response and contribute nothing.
func TotalScore(responses []model.ScoredResponse) int {
	total := 0
	for _, r := range responses {
		if r.IsCorrect {
			total += r.Points
		}
	}
	return total
}

// Submit completes the student's attempt and returns its score. Submitting
// a COMPLETED attempt returns the stored score without writing anything.
func (s *ScoringService) Submit(ctx context.Context, attemptID, studentID uuid.UUID) (int, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrAttemptNotFound
		}
		return 0, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return 0, ErrNotAttemptOwner
	}
	if attempt.IsCompleted() {
		return scoreOf(attempt), nil
	}

	done, err := s.Finalize(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	return scoreOf(done), nil
}

// Finalize scores and completes an attempt regardless of who asks. It is
// used by explicit submits and by lazy expiry. Concurrent callers serialize
// on the attempt row; only the first one writes.
func (s *ScoringService) Finalize(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, completed, err := s.attempts.Complete(ctx, attemptID, s.now(), TotalScore)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !completed {
		return attempt, nil
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", attempt.ExamID.String()).
		Int("score", scoreOf(attempt)).
		Msg("Attempt completed")

	s.events.Publish(ctx, model.AttemptEvent{
		Type:       model.AttemptEventSubmitted,
		ExamID:     attempt.ExamID,
		AttemptID:  attempt.ID,
		StudentID:  attempt.StudentID,
		Score:      attempt.Score,
		OccurredAt: *attempt.SubmittedAt,
	})
	return attempt, nil
}

func scoreOf(a *model.Attempt) int {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

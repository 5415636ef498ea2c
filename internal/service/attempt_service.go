package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
	"github.com/stemsi/examroom-backend/internal/shuffle"
)

// LobbyAction tells the client what the student can do next.
type LobbyAction string

const (
	LobbyActionStart            LobbyAction = "START"
	LobbyActionResume           LobbyAction = "RESUME"
	LobbyActionResults          LobbyAction = "RESULTS"
	LobbyActionLateCodeRequired LobbyAction = "LATE_CODE_REQUIRED"
	LobbyActionClosed           LobbyAction = "CLOSED"
	LobbyActionUpcoming         LobbyAction = "UPCOMING"
)

// ExamSummary is the part of an exam a student may see before starting.
type ExamSummary struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"`
	CloseMode       model.CloseMode `json:"close_mode"`
}

// LobbyView is the pre-exam screen.
type LobbyView struct {
	Exam          ExamSummary    `json:"exam"`
	QuestionCount int            `json:"question_count"`
	Attempt       *model.Attempt `json:"attempt"`
	Next          LobbyAction    `json:"next"`
	ServerTime    time.Time      `json:"server_time"`
}

// TakeView is what a student sees while taking an exam. Questions and
// Answers are only filled while the attempt is in progress.
type TakeView struct {
	Attempt          *model.Attempt             `json:"attempt"`
	Title            string                     `json:"title"`
	Questions        []model.QuestionForStudent `json:"questions,omitempty"`
	Answers          map[uuid.UUID]uuid.UUID    `json:"answers,omitempty"`
	ExpiresAt        time.Time                  `json:"expires_at"`
	RemainingSeconds int                        `json:"remaining_seconds"`
}

// MonitorView is the teacher's overview of an exam's attempts.
type MonitorView struct {
	Exam      ExamSummary             `json:"exam"`
	Attempts  []model.AttemptOverview `json:"attempts"`
	LateCodes []model.LateCode        `json:"late_codes"`
}

// AttemptService manages the attempt lifecycle.
type AttemptService struct {
	exams     ExamStore
	attempts  AttemptStore
	lateCodes LateCodeStore
	cache     ExamPayloadCache
	scoring   *ScoringService
	events    EventPublisher
	grace     time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService. grace is how long past
// expires_at a STARTED attempt is left alone before it is finalized on access.
func NewAttemptService(
	exams ExamStore,
	attempts AttemptStore,
	lateCodes LateCodeStore,
	cache ExamPayloadCache,
	scoring *ScoringService,
	events EventPublisher,
	grace time.Duration,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		exams:     exams,
		attempts:  attempts,
		lateCodes: lateCodes,
		cache:     cache,
		scoring:   scoring,
		events:    events,
		grace:     grace,
		now:       time.Now,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// NormalizeLateCode trims and upper-cases a late code.
func NormalizeLateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EnterLobby reports the exam summary and the student's next action.
func (s *AttemptService) EnterLobby(ctx context.Context, examID, studentID uuid.UUID) (*LobbyView, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	payload, err := s.loadPayload(ctx, exam)
	if err != nil {
		return nil, err
	}

	attempt, err := s.findAttempt(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt != nil {
		if attempt, err = s.expireIfOverdue(ctx, attempt); err != nil {
			return nil, err
		}
	}

	now := s.now()
	view := &LobbyView{
		Exam:          summarize(exam),
		QuestionCount: len(payload.Questions),
		Attempt:       attempt,
		ServerTime:    now,
	}

	switch {
	case attempt != nil && attempt.IsCompleted():
		view.Next = LobbyActionResults
	case attempt != nil:
		view.Next = LobbyActionResume
	case now.Before(exam.StartTime):
		view.Next = LobbyActionUpcoming
	case !now.Before(exam.EndTime) && exam.CloseMode == model.CloseModeStrict:
		view.Next = LobbyActionClosed
	case !now.Before(exam.EndTime):
		view.Next = LobbyActionLateCodeRequired
	default:
		view.Next = LobbyActionStart
	}
	return view, nil
}

// StartAttempt creates the student's attempt. Checks run in a fixed order:
// exam exists, no prior attempt, exam window (late code for PERMISSIVE
// exams past end_time). The insert and late code consumption share one
// transaction; a racing duplicate start loses with ErrAttemptAlreadyStarted.
func (s *AttemptService) StartAttempt(ctx context.Context, examID, studentID uuid.UUID, lateCode string) (*model.Attempt, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	existing, err := s.findAttempt(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, s.existingAttemptErr(ctx, existing)
	}

	now := s.now()
	if now.Before(exam.StartTime) {
		return nil, ErrExamNotOpen
	}

	code := ""
	if !now.Before(exam.EndTime) {
		if exam.CloseMode == model.CloseModeStrict {
			return nil, ErrExamClosed
		}
		code = NormalizeLateCode(lateCode)
		if code == "" {
			return nil, ErrInvalidLateCode
		}
	}

	attempt := &model.Attempt{
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: now,
		ExpiresAt: now.Add(exam.Duration()),
	}
	if err := s.attempts.Create(ctx, attempt, code); err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptExists):
			if existing, _ := s.findAttempt(ctx, examID, studentID); existing != nil && existing.IsCompleted() {
				return nil, ErrAttemptCompleted
			}
			return nil, ErrAttemptAlreadyStarted
		case errors.Is(err, repository.ErrLateCodeRejected):
			return nil, ErrInvalidLateCode
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	ev := s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String())
	if code != "" {
		ev = ev.Bool("late", true)
	}
	ev.Msg("Attempt started")

	s.events.Publish(ctx, model.AttemptEvent{
		Type:       model.AttemptEventStarted,
		ExamID:     examID,
		AttemptID:  attempt.ID,
		StudentID:  studentID,
		OccurredAt: now,
	})
	return attempt, nil
}

// CheckAccess loads an attempt on behalf of a student. An overdue attempt
// is finalized first. With mutation set, a COMPLETED attempt is rejected.
func (s *AttemptService) CheckAccess(ctx context.Context, attemptID, studentID uuid.UUID, mutation bool) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotAttemptOwner
	}

	attempt, err = s.expireIfOverdue(ctx, attempt)
	if err != nil {
		return nil, err
	}
	if mutation && attempt.IsCompleted() {
		return nil, ErrAttemptCompleted
	}
	return attempt, nil
}

// TakeView returns the student's shuffled questions and saved answers, or
// only the final attempt state once it is COMPLETED.
func (s *AttemptService) TakeView(ctx context.Context, examID, studentID uuid.UUID) (*TakeView, error) {
	attempt, err := s.findAttempt(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}

	attempt, err = s.expireIfOverdue(ctx, attempt)
	if err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	payload, err := s.loadPayload(ctx, exam)
	if err != nil {
		return nil, err
	}

	view := &TakeView{
		Attempt:   attempt,
		Title:     payload.Title,
		ExpiresAt: attempt.ExpiresAt,
	}
	if attempt.IsCompleted() {
		return view, nil
	}

	responses, err := s.attempts.ListResponses(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	view.Answers = make(map[uuid.UUID]uuid.UUID, len(responses))
	for _, r := range responses {
		view.Answers[r.QuestionID] = r.SelectedOptionID
	}

	view.Questions = shuffle.Apply(payload.Questions, examID.String(), studentID.String())
	if remaining := attempt.ExpiresAt.Sub(s.now()); remaining > 0 {
		view.RemainingSeconds = int(remaining.Seconds())
	}
	return view, nil
}

// DeleteAttempt removes an attempt and its responses so the student can
// start over. Only the exam's teacher may do this.
func (s *AttemptService) DeleteAttempt(ctx context.Context, attemptID, teacherID uuid.UUID) error {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("get attempt: %w", err)
	}

	exam, err := s.getExam(ctx, attempt.ExamID)
	if err != nil {
		return err
	}
	if exam.TeacherID != teacherID {
		return ErrNotExamOwner
	}

	if err := s.attempts.Delete(ctx, attemptID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("delete attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Str("teacher_id", teacherID.String()).
		Msg("Attempt deleted")

	s.events.Publish(ctx, model.AttemptEvent{
		Type:       model.AttemptEventDeleted,
		ExamID:     attempt.ExamID,
		AttemptID:  attempt.ID,
		StudentID:  attempt.StudentID,
		OccurredAt: s.now(),
	})
	return nil
}

// Monitor lists an exam's attempts and late codes for its teacher.
func (s *AttemptService) Monitor(ctx context.Context, examID, teacherID uuid.UUID) (*MonitorView, error) {
	exam, err := s.getExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}

	attempts, err := s.attempts.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	codes, err := s.lateCodes.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list late codes: %w", err)
	}

	return &MonitorView{Exam: summarize(exam), Attempts: attempts, LateCodes: codes}, nil
}

func (s *AttemptService) getExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// findAttempt returns (nil, nil) when the student has no attempt.
func (s *AttemptService) findAttempt(ctx context.Context, examID, studentID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptService) existingAttemptErr(ctx context.Context, attempt *model.Attempt) error {
	attempt, err := s.expireIfOverdue(ctx, attempt)
	if err != nil {
		return err
	}
	if attempt.IsCompleted() {
		return ErrAttemptCompleted
	}
	return ErrAttemptAlreadyStarted
}

func (s *AttemptService) expireIfOverdue(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error) {
	if !attempt.Overdue(s.now(), s.grace) {
		return attempt, nil
	}
	s.log.Debug().Str("attempt_id", attempt.ID.String()).Msg("Finalizing overdue attempt")
	return s.scoring.Finalize(ctx, attempt.ID)
}

// loadPayload serves the student payload from cache, rebuilding it from the
// store on a miss or when the cached copy was built from an older version
// of the exam row. Cache failures degrade to a store read.
func (s *AttemptService) loadPayload(ctx context.Context, exam *model.Exam) (*model.ExamPayload, error) {
	payload, err := s.cache.Get(ctx, exam.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Exam cache read failed")
	}
	if payload != nil && payload.UpdatedAt.Equal(exam.UpdatedAt) {
		return payload, nil
	}
	if payload != nil {
		s.log.Debug().Str("exam_id", exam.ID.String()).Msg("Cached exam payload is stale, rebuilding")
	}

	full, err := s.exams.GetWithQuestions(ctx, exam.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	payload = model.NewExamPayload(full)
	if err := s.cache.Set(ctx, payload); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Exam cache write failed")
	}
	return payload, nil
}

func summarize(e *model.Exam) ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationMinutes: e.DurationMinutes,
		CloseMode:       e.CloseMode,
	}
}

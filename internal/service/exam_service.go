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
)

const (
	copySuffix       = " (Copy)"
	copyStartsAfter  = 24 * time.Hour
	copyWindowLength = time.Hour
	lateCodeLength   = 8
)

// ExamService handles exam authoring for teachers.
type ExamService struct {
	exams     ExamStore
	lateCodes LateCodeStore
	cache     ExamPayloadCache
	now       func() time.Time
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, lateCodes LateCodeStore, cache ExamPayloadCache, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     exams,
		lateCodes: lateCodes,
		cache:     cache,
		now:       time.Now,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// Create stores a new exam with its questions and options.
func (s *ExamService) Create(ctx context.Context, teacherID uuid.UUID, req *model.ExamRequest) (*model.Exam, error) {
	exam := examFromRequest(req)
	exam.TeacherID = teacherID

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Int("questions", len(exam.Questions)).Msg("Exam created")
	return exam, nil
}

// Get returns the full exam, correct answers included, to its teacher.
func (s *ExamService) Get(ctx context.Context, examID, teacherID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	return exam, nil
}

// Authorize checks that the teacher owns the exam.
func (s *ExamService) Authorize(ctx context.Context, examID, teacherID uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	return exam, nil
}

// Update edits an exam. Once any attempt exists the question set is frozen
// and only the exam fields change; frozen reports that case.
func (s *ExamService) Update(ctx context.Context, examID, teacherID uuid.UUID, req *model.ExamRequest) (exam *model.Exam, frozen bool, err error) {
	if _, err := s.Authorize(ctx, examID, teacherID); err != nil {
		return nil, false, err
	}

	updated := examFromRequest(req)
	updated.ID = examID
	replaced, err := s.exams.Update(ctx, updated)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrExamNotFound
		}
		return nil, false, fmt.Errorf("update exam: %w", err)
	}
	s.invalidate(ctx, examID)

	if !replaced {
		s.log.Warn().Str("exam_id", examID.String()).Msg("Exam has attempts, questions left unchanged")
	}

	exam, err = s.Get(ctx, examID, teacherID)
	if err != nil {
		return nil, false, err
	}
	return exam, !replaced, nil
}

// Delete removes an exam with all its questions, attempts and late codes.
func (s *ExamService) Delete(ctx context.Context, examID, teacherID uuid.UUID) error {
	if _, err := s.Authorize(ctx, examID, teacherID); err != nil {
		return err
	}
	if err := s.exams.Delete(ctx, examID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExamNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidate(ctx, examID)

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam deleted")
	return nil
}

// Duplicate copies an exam's settings, questions and options into a new
// exam that opens 24 hours from now for one hour.
func (s *ExamService) Duplicate(ctx context.Context, examID, teacherID uuid.UUID) (*model.Exam, error) {
	src, err := s.Get(ctx, examID, teacherID)
	if err != nil {
		return nil, err
	}

	start := s.now().Add(copyStartsAfter)
	dup := &model.Exam{
		Title:           src.Title + copySuffix,
		Description:     src.Description,
		StartTime:       start,
		EndTime:         start.Add(copyWindowLength),
		DurationMinutes: src.DurationMinutes,
		CloseMode:       src.CloseMode,
		TeacherID:       teacherID,
		Questions:       make([]model.Question, len(src.Questions)),
	}
	for i, q := range src.Questions {
		options := make([]model.Option, len(q.Options))
		for j, o := range q.Options {
			options[j] = model.Option{Text: o.Text, IsCorrect: o.IsCorrect}
		}
		dup.Questions[i] = model.Question{Text: q.Text, ImageURL: q.ImageURL, Points: q.Points, Options: options}
	}

	if err := s.exams.Create(ctx, dup); err != nil {
		return nil, fmt.Errorf("create copy: %w", err)
	}

	s.log.Info().Str("source_id", examID.String()).Str("exam_id", dup.ID.String()).Msg("Exam duplicated")
	return dup, nil
}

// IssueLateCode creates a single-use late code. An empty code gets a
// random 8-character one.
func (s *ExamService) IssueLateCode(ctx context.Context, examID, teacherID uuid.UUID, code string) (*model.LateCode, error) {
	if _, err := s.Authorize(ctx, examID, teacherID); err != nil {
		return nil, err
	}

	code = NormalizeLateCode(code)
	if code == "" {
		code = randomCode(lateCodeLength)
	}

	lc := &model.LateCode{ExamID: examID, Code: code}
	if err := s.lateCodes.Create(ctx, lc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrLateCodeTaken
		}
		return nil, fmt.Errorf("create late code: %w", err)
	}
	return lc, nil
}

func (s *ExamService) invalidate(ctx context.Context, examID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, examID); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Exam cache invalidation failed")
	}
}

func examFromRequest(req *model.ExamRequest) *model.Exam {
	exam := &model.Exam{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		CloseMode:       req.CloseMode,
		Questions:       make([]model.Question, len(req.Questions)),
	}
	for i, qi := range req.Questions {
		q := model.Question{Text: qi.Text, Points: qi.Points, Options: make([]model.Option, len(qi.Options))}
		if qi.ImageURL != "" {
			url := qi.ImageURL
			q.ImageURL = &url
		}
		for j, oi := range qi.Options {
			q.Options[j] = model.Option{Text: oi.Text, IsCorrect: oi.IsCorrect}
		}
		exam.Questions[i] = q
	}
	return exam
}

// randomCode returns n upper-case hex characters.
func randomCode(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:n])
}

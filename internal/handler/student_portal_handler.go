package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/service"
	"github.com/stemsi/examroom-backend/internal/validator"
)

// AttemptFlow is the student side of the attempt lifecycle.
type AttemptFlow interface {
	EnterLobby(ctx context.Context, examID, studentID uuid.UUID) (*service.LobbyView, error)
	StartAttempt(ctx context.Context, examID, studentID uuid.UUID, lateCode string) (*model.Attempt, error)
	TakeView(ctx context.Context, examID, studentID uuid.UUID) (*service.TakeView, error)
}

// AnswerRecorder saves one answer.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, attemptID, studentID, questionID, optionID uuid.UUID) error
}

// Submitter completes an attempt.
type Submitter interface {
	Submit(ctx context.Context, attemptID, studentID uuid.UUID) (int, error)
}

// StudentPortalHandler handles student-facing endpoints (lobby, exam taking).
type StudentPortalHandler struct {
	attempts AttemptFlow
	answers  AnswerRecorder
	scoring  Submitter
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attempts AttemptFlow, answers AnswerRecorder, scoring Submitter) *StudentPortalHandler {
	return &StudentPortalHandler{
		attempts: attempts,
		answers:  answers,
		scoring:  scoring,
	}
}

// GetLobby godoc
// GET /api/v1/student/exams/:exam_id/lobby
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	studentID, examID, ok := callerAndParam(c, "exam_id")
	if !ok {
		return
	}

	view, err := h.attempts.EnterLobby(c.Request.Context(), examID, studentID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Body is optional; late_code is only read after a PERMISSIVE exam closes.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	studentID, examID, ok := callerAndParam(c, "exam_id")
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attempts.StartAttempt(c.Request.Context(), examID, studentID, req.LateCode)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"attempt_id": attempt.ID,
		"expires_at": attempt.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// TakeExam godoc
// GET /api/v1/student/exams/:exam_id/take
func (h *StudentPortalHandler) TakeExam(c *gin.Context) {
	studentID, examID, ok := callerAndParam(c, "exam_id")
	if !ok {
		return
	}

	view, err := h.attempts.TakeView(c.Request.Context(), examID, studentID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// RecordAnswer godoc
// POST /api/v1/student/attempts/:attempt_id/answers
func (h *StudentPortalHandler) RecordAnswer(c *gin.Context) {
	studentID, attemptID, ok := callerAndParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, qErr := uuid.Parse(req.QuestionID)
	optionID, oErr := uuid.Parse(req.SelectedOptionID)
	if qErr != nil || oErr != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	}

	if err := h.answers.RecordAnswer(c.Request.Context(), attemptID, studentID, questionID, optionID); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	studentID, attemptID, ok := callerAndParam(c, "attempt_id")
	if !ok {
		return
	}

	score, err := h.scoring.Submit(c.Request.Context(), attemptID, studentID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"score": score})
}

// callerAndParam reads the caller's id from the claims and a UUID path
// parameter. It writes the error response itself when either is missing.
func callerAndParam(c *gin.Context, param string) (userID, id uuid.UUID, ok bool) {
	claims := requireClaims(c)
	if claims == nil {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok = validator.ParamUUID(c, param)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return claims.UserID, id, true
}

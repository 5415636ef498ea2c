package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/validator"
)

// ExamAuthoring is the teacher side of exam management.
type ExamAuthoring interface {
	Create(ctx context.Context, teacherID uuid.UUID, req *model.ExamRequest) (*model.Exam, error)
	Get(ctx context.Context, examID, teacherID uuid.UUID) (*model.Exam, error)
	Update(ctx context.Context, examID, teacherID uuid.UUID, req *model.ExamRequest) (*model.Exam, bool, error)
	Delete(ctx context.Context, examID, teacherID uuid.UUID) error
	Duplicate(ctx context.Context, examID, teacherID uuid.UUID) (*model.Exam, error)
	IssueLateCode(ctx context.Context, examID, teacherID uuid.UUID, code string) (*model.LateCode, error)
}

// ExamHandler handles teacher exam endpoints.
type ExamHandler struct {
	exams ExamAuthoring
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamAuthoring) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Create godoc
// POST /api/v1/teacher/exams
func (h *ExamHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// Get godoc
// GET /api/v1/teacher/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), examID, teacherID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Update godoc
// PUT /api/v1/teacher/exams/:id
// Questions are left untouched once the exam has attempts.
func (h *ExamHandler) Update(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	var req model.ExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, frozen, err := h.exams.Update(c.Request.Context(), examID, teacherID, &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam, "questions_frozen": frozen})
}

// Delete godoc
// DELETE /api/v1/teacher/exams/:id
func (h *ExamHandler) Delete(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), examID, teacherID); err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Duplicate godoc
// POST /api/v1/teacher/exams/:id/duplicate
func (h *ExamHandler) Duplicate(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.exams.Duplicate(c.Request.Context(), examID, teacherID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// IssueLateCode godoc
// POST /api/v1/teacher/exams/:id/late-codes
func (h *ExamHandler) IssueLateCode(c *gin.Context) {
	teacherID, examID, ok := callerAndParam(c, "id")
	if !ok {
		return
	}

	var req model.LateCodeRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	lc, err := h.exams.IssueLateCode(c.Request.Context(), examID, teacherID, req.Code)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, lc)
}

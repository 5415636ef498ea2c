package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/middleware"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/service"
	"github.com/stemsi/examroom-backend/internal/validator"
)

// Authenticator registers and logs in users.
type Authenticator interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (string, *model.User, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

// AuthHandler handles registration and login.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register godoc
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Login godoc
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"token": token, "user": user})
}

// Me godoc
// GET /api/v1/student/me, GET /api/v1/teacher/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}

	user, err := h.auth.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// requireClaims returns the caller's claims or writes a 401.
func requireClaims(c *gin.Context) *service.Claims {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return claims
}

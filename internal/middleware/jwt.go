package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// RequireStudentJWT accepts only student tokens.
func RequireStudentJWT(auth TokenValidator) gin.HandlerFunc {
	return requireRole(auth, model.RoleStudent, response.ErrStudentAccessOnly, false)
}

// RequireTeacherJWT accepts only teacher tokens from the Authorization header.
func RequireTeacherJWT(auth TokenValidator) gin.HandlerFunc {
	return requireRole(auth, model.RoleTeacher, response.ErrTeacherAccessOnly, false)
}

// RequireTeacherStreamAuth is RequireTeacherJWT that also reads ?token=,
// since EventSource cannot send headers. Mount it on the monitor stream only.
func RequireTeacherStreamAuth(auth TokenValidator) gin.HandlerFunc {
	return requireRole(auth, model.RoleTeacher, response.ErrTeacherAccessOnly, true)
}

// RequireStudentWSAuth validates a student JWT from the query param ?token=...
// Used for WebSocket upgrade requests.
func RequireStudentWSAuth(auth TokenValidator) gin.HandlerFunc {
	return requireRole(auth, model.RoleStudent, response.ErrStudentAccessOnly, true)
}

func requireRole(auth TokenValidator, role model.Role, wrongRole response.ErrCode, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" && allowQuery {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.Role != role {
			response.AbortFail(c, http.StatusForbidden, wrongRole)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

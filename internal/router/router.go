package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/handler"
	"github.com/stemsi/examroom-backend/internal/middleware"
	"github.com/stemsi/examroom-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Exam          *handler.ExamHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens middleware.TokenValidator,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to AllowedOrigins when set; otherwise allow all so dev works
	// without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Student Group ──────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(tokens))
	{
		studentAPI.GET("/me", handlers.Auth.Me)
		studentAPI.GET("/exams/:exam_id/lobby", handlers.StudentPortal.GetLobby)
		studentAPI.POST("/exams/:exam_id/attempts", handlers.StudentPortal.StartAttempt)
		studentAPI.GET("/exams/:exam_id/take", handlers.StudentPortal.TakeExam)
		studentAPI.POST("/attempts/:attempt_id/answers", handlers.StudentPortal.RecordAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.StudentPortal.Submit)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(tokens))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group ──────────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(tokens))
	{
		teacherAPI.GET("/me", handlers.Auth.Me)
		teacherAPI.POST("/exams", handlers.Exam.Create)
		teacherAPI.GET("/exams/:id", handlers.Exam.Get)
		teacherAPI.PUT("/exams/:id", handlers.Exam.Update)
		teacherAPI.DELETE("/exams/:id", handlers.Exam.Delete)
		teacherAPI.POST("/exams/:id/duplicate", handlers.Exam.Duplicate)
		teacherAPI.POST("/exams/:id/late-codes", handlers.Exam.IssueLateCode)

		teacherAPI.GET("/exams/:id/monitor", handlers.Monitor.Monitor)
		teacherAPI.DELETE("/attempts/:attempt_id", handlers.Monitor.DeleteAttempt)
	}

	// ─── 5. Teacher Monitor Stream (header or ?token=) ────────────────
	teacherStream := router.Group("/api/v1/teacher")
	teacherStream.Use(middleware.RequireTeacherStreamAuth(tokens))
	{
		teacherStream.GET("/exams/:id/monitor/stream", handlers.Monitor.Stream)
	}

	return router
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stemsi/examroom-backend/internal/cache"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/database"
	"github.com/stemsi/examroom-backend/internal/handler"
	"github.com/stemsi/examroom-backend/internal/logger"
	"github.com/stemsi/examroom-backend/internal/middleware"
	"github.com/stemsi/examroom-backend/internal/realtime"
	"github.com/stemsi/examroom-backend/internal/repository"
	"github.com/stemsi/examroom-backend/internal/router"
	"github.com/stemsi/examroom-backend/internal/service"
	"github.com/stemsi/examroom-backend/internal/validator"
	"github.com/stemsi/examroom-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Dur("grace", cfg.AttemptGracePeriod).
		Msg("Starting ExamRoom Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	lateCodeRepo := repository.NewLateCodeRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	eventRepo := repository.NewEventRepository(pool)

	examCache := cache.NewExamCache(rdb, cfg.ExamCacheTTL)
	publisher := realtime.NewPublisher(rdb, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, log)
	examService := service.NewExamService(examRepo, lateCodeRepo, examCache, log)
	scoringService := service.NewScoringService(attemptRepo, publisher, log)
	attemptService := service.NewAttemptService(
		examRepo, attemptRepo, lateCodeRepo, examCache,
		scoringService, publisher, cfg.AttemptGracePeriod, log,
	)
	answerService := service.NewAnswerService(attemptService, examRepo, attemptRepo, publisher, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		StudentPortal: handler.NewStudentPortalHandler(attemptService, answerService, scoringService),
		Exam:          handler.NewExamHandler(examService),
		Monitor:       handler.NewMonitorHandler(attemptService, publisher, log),
		WS:            handler.NewWSHandler(attemptService, answerService, scoringService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	eventWorker := worker.NewEventWorker(eventRepo, rdb, log)
	workers.Go(func() { eventWorker.Start(workerCtx) })

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	workers.Go(func() { authLimiter.RunCleanup(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, authLimiter, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; the event worker flushes what it holds.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

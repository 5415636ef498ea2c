package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/examroom-backend/internal/cache"
	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/database"
	"github.com/stemsi/examroom-backend/internal/logger"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
	"github.com/stemsi/examroom-backend/internal/service"
)

const demoPassword = "examroom"

func main() {
	students := flag.Int("students", 30, "number of demo students")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, log)
	examService := service.NewExamService(
		repository.NewExamRepository(pool),
		repository.NewLateCodeRepository(pool),
		cache.NewExamCache(rdb, cfg.ExamCacheTTL),
		log,
	)

	fmt.Println("=== Seeding demo teacher, students and exam ===")

	teacher, err := authService.Register(ctx, &model.RegisterRequest{
		Name:     "Demo Teacher",
		Email:    "teacher@examroom.local",
		Password: demoPassword,
		Role:     model.RoleTeacher,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		teacher, err = userRepo.GetByEmail(ctx, "teacher@examroom.local")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo teacher")
	}
	fmt.Printf("Teacher: %s / %s\n", teacher.Email, demoPassword)

	created := 0
	for i := 1; i <= *students; i++ {
		_, err := authService.Register(ctx, &model.RegisterRequest{
			Name:     fmt.Sprintf("Student %02d", i),
			Email:    fmt.Sprintf("student%02d@examroom.local", i),
			Password: demoPassword,
			Role:     model.RoleStudent,
		})
		switch {
		case errors.Is(err, service.ErrEmailTaken):
		case err != nil:
			fmt.Printf("Error creating student %d: %v\n", i, err)
		default:
			created++
		}
		if i%10 == 0 {
			fmt.Printf("Processed %d students...\n", i)
		}
	}
	fmt.Printf("Added %d/%d students (studentNN@examroom.local)\n", created, *students)

	now := time.Now().Truncate(time.Minute)
	exam, err := examService.Create(ctx, teacher.ID, &model.ExamRequest{
		Title:           "Demo: General Knowledge",
		Description:     "Seeded exam open for the next two hours.",
		StartTime:       now,
		EndTime:         now.Add(2 * time.Hour),
		DurationMinutes: 30,
		CloseMode:       model.CloseModePermissive,
		Questions:       demoQuestions(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo exam")
	}

	lc, err := examService.IssueLateCode(ctx, exam.ID, teacher.ID, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue late code")
	}

	fmt.Printf("\nSeed completed! Exam %s with late code %s\n", exam.ID, lc.Code)
}

func demoQuestions() []model.QuestionInput {
	q := func(text string, points int, correct int, options ...string) model.QuestionInput {
		in := model.QuestionInput{Text: text, Points: points}
		for i, o := range options {
			in.Options = append(in.Options, model.OptionInput{Text: o, IsCorrect: i == correct})
		}
		return in
	}
	return []model.QuestionInput{
		q("What is the capital of France?", 1, 1, "Berlin", "Paris", "Madrid", "Rome"),
		q("2 + 2 * 2 = ?", 2, 2, "8", "4", "6", "2"),
		q("Which planet is known as the Red Planet?", 1, 0, "Mars", "Venus", "Jupiter", "Mercury"),
		q("What is H2O commonly called?", 1, 3, "Salt", "Oxygen", "Hydrogen", "Water"),
		q("How many sides does a hexagon have?", 2, 1, "5", "6", "7", "8"),
	}
}

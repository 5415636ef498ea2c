package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/examroom-backend/internal/config"
	"github.com/stemsi/examroom-backend/internal/database"
	"github.com/stemsi/examroom-backend/internal/logger"
	"github.com/stemsi/examroom-backend/internal/model"
	"github.com/stemsi/examroom-backend/internal/repository"
	"github.com/stemsi/examroom-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	fmt.Println("=== Create New User ===")

	name := prompt("Enter Name: ")
	email := prompt("Enter Email: ")
	if name == "" || email == "" {
		fmt.Println("Error: Name and Email are required")
		os.Exit(1)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(bytePassword) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	role := model.Role(strings.ToUpper(prompt("Enter Role [TEACHER/student]: ")))
	if role == "" {
		role = model.RoleTeacher
	}
	if role != model.RoleTeacher && role != model.RoleStudent {
		fmt.Println("Error: Role must be TEACHER or STUDENT")
		os.Exit(1)
	}

	user, err := authService.Register(ctx, &model.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: string(bytePassword),
		Role:     role,
	})
	if errors.Is(err, service.ErrEmailTaken) {
		fmt.Printf("Error: %s is already registered\n", email)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %s\n", user.Role, user.Name, user.Email, user.ID)
}

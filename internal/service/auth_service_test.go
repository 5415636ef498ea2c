package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/model"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	student, err := env.auth.Register(ctx, &model.RegisterRequest{
		Name: "Ayu", Email: " Ayu@School.test ", Password: "secret123", Role: model.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register student: %v", err)
	}
	if student.Email != "ayu@school.test" {
		t.Errorf("email = %q, want normalized", student.Email)
	}
	if student.StudentCode == nil || len(*student.StudentCode) != 8 || *student.StudentCode != strings.ToUpper(*student.StudentCode) {
		t.Errorf("student code = %v, want 8 upper-case characters", student.StudentCode)
	}
	if student.PasswordHash == "secret123" || student.PasswordHash == "" {
		t.Error("password stored unhashed")
	}

	teacher, err := env.auth.Register(ctx, &model.RegisterRequest{
		Name: "Budi", Email: "budi@school.test", Password: "secret123", Role: model.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Register teacher: %v", err)
	}
	if teacher.StudentCode != nil {
		t.Error("teachers must not get a student code")
	}

	_, err = env.auth.Register(ctx, &model.RegisterRequest{
		Name: "Ayu Again", Email: "AYU@school.test", Password: "secret123", Role: model.RoleStudent,
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: err = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, err := env.auth.Register(ctx, &model.RegisterRequest{
		Name: "Citra", Email: "citra@school.test", Password: "pa55word", Role: model.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "Citra@School.test", "pa55word", nil},
		{"wrong password", "citra@school.test", "nope", ErrInvalidCredentials},
		{"unknown email", "nobody@school.test", "pa55word", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, got, err := env.auth.Login(ctx, &model.LoginRequest{Email: tt.email, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.ID != user.ID {
				t.Errorf("user id = %s, want %s", got.ID, user.ID)
			}

			claims, err := env.auth.ValidateToken(token)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.UserID != user.ID || claims.Role != model.RoleTeacher {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	env := newTestEnv(t)
	user := &model.User{Role: model.RoleStudent}

	token, err := env.auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	env.now = env.now.Add(2 * time.Hour)
	if _, err := env.auth.ValidateToken(token); err == nil {
		t.Error("expired token accepted")
	}

	if _, err := env.auth.ValidateToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}
	if _, err := env.auth.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, &model.RegisterRequest{
		Name: "Citra", Email: "citra@school.test", Password: "secret123", Role: model.RoleTeacher,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.auth.Me(ctx, user.ID)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if got.Email != "citra@school.test" || got.Role != model.RoleTeacher {
		t.Errorf("Me = %+v", got)
	}

	if _, err := env.auth.Me(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

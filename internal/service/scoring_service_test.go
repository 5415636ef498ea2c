package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/examroom-backend/internal/model"
)

func TestTotalScore(t *testing.T) {
	tests := []struct {
		name      string
		responses []model.ScoredResponse
		want      int
	}{
		{"no responses", nil, 0},
		{"all wrong", []model.ScoredResponse{{Points: 3}, {Points: 5}}, 0},
		{"all right", []model.ScoredResponse{{IsCorrect: true, Points: 3}, {IsCorrect: true, Points: 5}}, 8},
		{"mixed", []model.ScoredResponse{{IsCorrect: true, Points: 1}, {Points: 2}, {IsCorrect: true, Points: 4}}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalScore(tt.responses); got != tt.want {
				t.Errorf("TotalScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)
	exam := env.seedExam(t, model.CloseModeStrict)
	a := env.start(t, exam, uuid.New())
	env.choose(t, a, exam.Questions[0], 0) // +1
	env.choose(t, a, exam.Questions[1], 1) // wrong
	env.choose(t, a, exam.Questions[2], 0) // +3
	env.now = env.now.Add(5 * time.Minute)
	ctx := context.Background()

	score, err := env.scoring.Submit(ctx, a.ID, a.StudentID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if score != 4 {
		t.Fatalf("score = %d, want 4", score)
	}

	stored := env.db.attempts[a.ID]
	if stored.Status != model.AttemptStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", stored.Status)
	}
	if stored.SubmittedAt == nil || !stored.SubmittedAt.Equal(env.now) {
		t.Errorf("submitted_at = %v, want %v", stored.SubmittedAt, env.now)
	}

	// Later edits to the exam must not move a stored score: neither new
	// point values nor a changed answer key.
	q := env.db.exams[exam.ID].Questions
	q[0].Points = 100
	q[0].Options[0].IsCorrect = false
	q[1].Options[1].IsCorrect = true
	q[2].Options[0].IsCorrect = false
	env.now = env.now.Add(time.Minute)
	again, err := env.scoring.Submit(ctx, a.ID, a.StudentID)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if again != score {
		t.Errorf("resubmit score = %d, want %d", again, score)
	}
	if env.db.transitions != 1 {
		t.Errorf("transitions = %d, want 1", env.db.transitions)
	}
	if !env.db.attempts[a.ID].SubmittedAt.Equal(*stored.SubmittedAt) {
		t.Error("resubmit changed submitted_at")
	}
	for _, r := range env.db.responses[a.ID] {
		if want := r.QuestionID != exam.Questions[1].ID; r.IsCorrect != want {
			t.Errorf("response to %s: is_correct = %v, want %v", r.QuestionID, r.IsCorrect, want)
		}
	}
}

func TestScoreUsesCorrectnessAtAnswerTime(t *testing.T) {
	env := newTestEnv(t)
	exam := env.seedExam(t, model.CloseModeStrict)
	a := env.start(t, exam, uuid.New())
	env.choose(t, a, exam.Questions[0], 0) // right when answered
	env.choose(t, a, exam.Questions[2], 1) // wrong when answered

	q := env.db.exams[exam.ID].Questions
	q[0].Options[0].IsCorrect = false
	q[2].Options[1].IsCorrect = true

	score, err := env.scoring.Submit(context.Background(), a.ID, a.StudentID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if score != 1 {
		t.Errorf("score = %d, want 1 from the answer key at answer time", score)
	}
}

func TestSubmitAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	exam := env.seedExam(t, model.CloseModeStrict)
	a := env.start(t, exam, uuid.New())
	env.choose(t, a, exam.Questions[1], 0)
	env.now = a.ExpiresAt.Add(2 * time.Hour)

	score, err := env.scoring.Submit(context.Background(), a.ID, a.StudentID)
	if err != nil {
		t.Fatalf("late Submit: %v", err)
	}
	if score != 2 {
		t.Errorf("score = %d, want 2", score)
	}
}

func TestSubmitRejects(t *testing.T) {
	env := newTestEnv(t)
	exam := env.seedExam(t, model.CloseModeStrict)
	a := env.start(t, exam, uuid.New())
	ctx := context.Background()

	if _, err := env.scoring.Submit(ctx, uuid.New(), a.StudentID); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("unknown attempt: err = %v", err)
	}
	if _, err := env.scoring.Submit(ctx, a.ID, uuid.New()); !errors.Is(err, ErrNotAttemptOwner) {
		t.Errorf("foreign student: err = %v", err)
	}
	if env.db.transitions != 0 {
		t.Error("rejected submits must not complete the attempt")
	}
}

func TestSubmitConcurrent(t *testing.T) {
	env := newTestEnv(t)
	exam := env.seedExam(t, model.CloseModeStrict)
	a := env.start(t, exam, uuid.New())
	env.choose(t, a, exam.Questions[0], 0)
	env.choose(t, a, exam.Questions[1], 0)

	const workers = 12
	scores := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scores[i], errs[i] = env.scoring.Submit(context.Background(), a.ID, a.StudentID)
		}()
	}
	wg.Wait()

	for i := range workers {
		if errs[i] != nil {
			t.Fatalf("submit %d: %v", i, errs[i])
		}
		if scores[i] != 3 {
			t.Errorf("submit %d score = %d, want 3", i, scores[i])
		}
	}
	if env.db.transitions != 1 {
		t.Errorf("transitions = %d, want exactly 1", env.db.transitions)
	}
	if n := env.events.count(model.AttemptEventSubmitted); n != 1 {
		t.Errorf("submitted events = %d, want 1", n)
	}
}

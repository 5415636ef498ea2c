package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom-backend/internal/model"
)

// ExamRepository handles exam, question and option data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, start_time, end_time, duration_minutes, close_mode, teacher_id, created_at, updated_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.DurationMinutes, &e.CloseMode, &e.TeacherID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// GetByID retrieves an exam without its questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetWithQuestions retrieves an exam with questions and options in position order.
func (r *ExamRepository) GetWithQuestions(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.text, q.image_url, q.points, q.position,
		        o.id, o.text, o.is_correct, o.position
		 FROM questions q
		 LEFT JOIN options o ON o.question_id = q.id
		 WHERE q.exam_id = $1
		 ORDER BY q.position, q.id, o.position, o.id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exam.Questions = []model.Question{}
	for rows.Next() {
		var (
			q        model.Question
			optID    *uuid.UUID
			optText  *string
			optRight *bool
			optPos   *int
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.ImageURL, &q.Points, &q.Position,
			&optID, &optText, &optRight, &optPos); err != nil {
			return nil, err
		}

		n := len(exam.Questions)
		if n == 0 || exam.Questions[n-1].ID != q.ID {
			q.ExamID = id
			q.Options = []model.Option{}
			exam.Questions = append(exam.Questions, q)
			n++
		}
		if optID != nil {
			exam.Questions[n-1].Options = append(exam.Questions[n-1].Options, model.Option{
				ID:         *optID,
				QuestionID: q.ID,
				Text:       *optText,
				IsCorrect:  *optRight,
				Position:   *optPos,
			})
		}
	}
	return exam, rows.Err()
}

// Create inserts an exam together with its questions and options.
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO exams (title, description, start_time, end_time, duration_minutes, close_mode, teacher_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at, updated_at`,
			exam.Title, exam.Description, exam.StartTime, exam.EndTime,
			exam.DurationMinutes, exam.CloseMode, exam.TeacherID,
		).Scan(&exam.ID, &exam.CreatedAt, &exam.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}
		return insertQuestions(ctx, tx, exam.ID, exam.Questions)
	})
}

// Update modifies exam fields. Questions are replaced only while the exam
// has no attempts; the returned flag reports whether that happened.
func (r *ExamRepository) Update(ctx context.Context, exam *model.Exam) (bool, error) {
	replaced := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var teacherID uuid.UUID
		if err := tx.QueryRow(ctx,
			`SELECT teacher_id FROM exams WHERE id = $1 FOR UPDATE`, exam.ID,
		).Scan(&teacherID); err != nil {
			return mapErr(err)
		}

		err := tx.QueryRow(ctx,
			`UPDATE exams
			 SET title = $1, description = $2, start_time = $3, end_time = $4,
			     duration_minutes = $5, close_mode = $6, updated_at = NOW()
			 WHERE id = $7
			 RETURNING teacher_id, created_at, updated_at`,
			exam.Title, exam.Description, exam.StartTime, exam.EndTime,
			exam.DurationMinutes, exam.CloseMode, exam.ID,
		).Scan(&exam.TeacherID, &exam.CreatedAt, &exam.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update exam: %w", err)
		}

		var hasAttempts bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM attempts WHERE exam_id = $1)`, exam.ID,
		).Scan(&hasAttempts); err != nil {
			return fmt.Errorf("check attempts: %w", err)
		}
		if hasAttempts {
			return nil
		}

		// Options cascade from questions; responses cannot exist without attempts.
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, exam.ID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := insertQuestions(ctx, tx, exam.ID, exam.Questions); err != nil {
			return err
		}
		replaced = true
		return nil
	})
	return replaced, err
}

// Delete removes an exam and everything hanging off it in one transaction.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		steps := []struct {
			name string
			sql  string
		}{
			{"responses", `DELETE FROM responses WHERE attempt_id IN (SELECT id FROM attempts WHERE exam_id = $1)`},
			{"attempts", `DELETE FROM attempts WHERE exam_id = $1`},
			{"options", `DELETE FROM options WHERE question_id IN (SELECT id FROM questions WHERE exam_id = $1)`},
			{"questions", `DELETE FROM questions WHERE exam_id = $1`},
			{"late codes", `DELETE FROM late_codes WHERE exam_id = $1`},
		}
		for _, s := range steps {
			if _, err := tx.Exec(ctx, s.sql, id); err != nil {
				return fmt.Errorf("delete %s: %w", s.name, err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete exam: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetQuestion retrieves a question only if it belongs to the given exam.
func (r *ExamRepository) GetQuestion(ctx context.Context, examID, questionID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, text, image_url, points, position
		 FROM questions WHERE id = $1 AND exam_id = $2`, questionID, examID,
	).Scan(&q.ID, &q.ExamID, &q.Text, &q.ImageURL, &q.Points, &q.Position)
	if err != nil {
		return nil, mapErr(err)
	}
	return q, nil
}

// GetOption retrieves an option only if it belongs to the given question.
func (r *ExamRepository) GetOption(ctx context.Context, questionID, optionID uuid.UUID) (*model.Option, error) {
	o := &model.Option{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_id, text, is_correct, position
		 FROM options WHERE id = $1 AND question_id = $2`, optionID, questionID,
	).Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect, &o.Position)
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, examID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		q := &questions[i]
		q.ExamID = examID
		q.Position = i
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, text, image_url, points, position)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			examID, q.Text, q.ImageURL, q.Points, q.Position,
		).Scan(&q.ID); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}

		if len(q.Options) == 0 {
			continue
		}
		batch := &pgx.Batch{}
		for j := range q.Options {
			o := &q.Options[j]
			o.QuestionID = q.ID
			o.Position = j
			batch.Queue(
				`INSERT INTO options (question_id, text, is_correct, position)
				 VALUES ($1, $2, $3, $4) RETURNING id`,
				q.ID, o.Text, o.IsCorrect, o.Position,
			).QueryRow(func(row pgx.Row) error {
				return row.Scan(&o.ID)
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert options for question %d: %w", i, err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom-backend/internal/model"
)

// AttemptRepository handles attempt and response data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, student_id, status, started_at, expires_at, submitted_at, score`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status,
		&a.StartedAt, &a.ExpiresAt, &a.SubmittedAt, &a.Score)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetByExamAndStudent retrieves the attempt for an exam-student pair.
func (r *AttemptRepository) GetByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID))
}

// Create inserts a STARTED attempt and, when lateCode is non-empty,
// consumes that code in the same transaction. A concurrent insert for the
// same (exam, student) pair yields ErrAttemptExists; an unknown or spent
// code yields ErrLateCodeRejected and nothing is written.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt, lateCode string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Holds the exam row so a concurrent exam delete cannot interleave.
		var one int
		if err := tx.QueryRow(ctx,
			`SELECT 1 FROM exams WHERE id = $1 FOR SHARE`, a.ExamID,
		).Scan(&one); err != nil {
			return mapErr(err)
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO attempts (exam_id, student_id, status, started_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (exam_id, student_id) DO NOTHING
			 RETURNING id`,
			a.ExamID, a.StudentID, model.AttemptStatusStarted, a.StartedAt, a.ExpiresAt,
		).Scan(&a.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAttemptExists
			}
			return fmt.Errorf("insert attempt: %w", err)
		}
		a.Status = model.AttemptStatusStarted

		if lateCode == "" {
			return nil
		}
		var codeID uuid.UUID
		err = tx.QueryRow(ctx,
			`UPDATE late_codes SET used_at = $1, used_by = $2
			 WHERE exam_id = $3 AND code = $4 AND used_at IS NULL
			 RETURNING id`,
			a.StartedAt, a.StudentID, a.ExamID, lateCode,
		).Scan(&codeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrLateCodeRejected
			}
			return fmt.Errorf("consume late code: %w", err)
		}
		return nil
	})
}

// UpsertResponse records the answer for (attempt, question), replacing any
// earlier one. The attempt row is share-locked and must still be STARTED,
// so the write cannot interleave with a completing submit.
func (r *AttemptRepository) UpsertResponse(ctx context.Context, resp *model.Response) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status model.AttemptStatus
		if err := tx.QueryRow(ctx,
			`SELECT status FROM attempts WHERE id = $1 FOR SHARE`, resp.AttemptID,
		).Scan(&status); err != nil {
			return mapErr(err)
		}
		if status != model.AttemptStatusStarted {
			return ErrAttemptClosed
		}

		return tx.QueryRow(ctx,
			`INSERT INTO responses (attempt_id, question_id, selected_option_id, is_correct)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (attempt_id, question_id)
			 DO UPDATE SET selected_option_id = EXCLUDED.selected_option_id,
			               is_correct = EXCLUDED.is_correct,
			               updated_at = NOW()
			 RETURNING id, updated_at`,
			resp.AttemptID, resp.QuestionID, resp.SelectedOptionID, resp.IsCorrect,
		).Scan(&resp.ID, &resp.UpdatedAt)
	})
}

// Complete finalizes a STARTED attempt exactly once. The attempt row is
// locked FOR UPDATE, its responses are joined with question points and fed
// to score, and the result is written with status COMPLETED. If the attempt
// was already COMPLETED it is returned unchanged with completed=false.
func (r *AttemptRepository) Complete(
	ctx context.Context,
	id uuid.UUID,
	submittedAt time.Time,
	score func([]model.ScoredResponse) int,
) (*model.Attempt, bool, error) {
	var (
		attempt   *model.Attempt
		completed bool
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanAttempt(tx.QueryRow(ctx,
			`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		attempt = a
		if a.IsCompleted() {
			return nil
		}

		rows, err := tx.Query(ctx,
			`SELECT r.question_id, r.is_correct, q.points
			 FROM responses r
			 JOIN questions q ON q.id = r.question_id
			 WHERE r.attempt_id = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("load responses: %w", err)
		}
		scored, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ScoredResponse, error) {
			var s model.ScoredResponse
			err := row.Scan(&s.QuestionID, &s.IsCorrect, &s.Points)
			return s, err
		})
		if err != nil {
			return fmt.Errorf("scan responses: %w", err)
		}

		total := score(scored)
		if _, err := tx.Exec(ctx,
			`UPDATE attempts SET status = $1, submitted_at = $2, score = $3 WHERE id = $4`,
			model.AttemptStatusCompleted, submittedAt, total, id,
		); err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}

		a.Status = model.AttemptStatusCompleted
		a.SubmittedAt = &submittedAt
		a.Score = &total
		completed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return attempt, completed, nil
}

// Delete removes an attempt and its responses.
func (r *AttemptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM responses WHERE attempt_id = $1`, id); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM attempts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete attempt: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListResponses retrieves the saved answers of an attempt.
func (r *AttemptRepository) ListResponses(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_option_id, is_correct, updated_at
		 FROM responses WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.AttemptID, &resp.QuestionID,
			&resp.SelectedOptionID, &resp.IsCorrect, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// ListByExam retrieves every attempt of an exam with the student's name,
// email and number of answered questions.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.AttemptOverview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.student_id, a.status, a.started_at, a.expires_at,
		        a.submitted_at, a.score, u.name, u.email,
		        (SELECT COUNT(*) FROM responses r WHERE r.attempt_id = a.id)
		 FROM attempts a
		 JOIN users u ON u.id = a.student_id
		 WHERE a.exam_id = $1
		 ORDER BY a.started_at DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overviews := []model.AttemptOverview{}
	for rows.Next() {
		var o model.AttemptOverview
		if err := rows.Scan(&o.ID, &o.ExamID, &o.StudentID, &o.Status, &o.StartedAt,
			&o.ExpiresAt, &o.SubmittedAt, &o.Score, &o.StudentName, &o.StudentEmail,
			&o.Answered); err != nil {
			return nil, err
		}
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

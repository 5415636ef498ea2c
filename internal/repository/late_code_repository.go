package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/examroom-backend/internal/model"
)

// LateCodeRepository handles late code data access.
type LateCodeRepository struct {
	pool *pgxpool.Pool
}

// NewLateCodeRepository creates a new LateCodeRepository.
func NewLateCodeRepository(pool *pgxpool.Pool) *LateCodeRepository {
	return &LateCodeRepository{pool: pool}
}

// Create inserts a new late code. A code already issued for the exam
// yields ErrDuplicate.
func (r *LateCodeRepository) Create(ctx context.Context, lc *model.LateCode) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO late_codes (exam_id, code)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		lc.ExamID, lc.Code,
	).Scan(&lc.ID, &lc.CreatedAt)
	return mapErr(err)
}

// ListByExam retrieves all late codes of an exam, newest first.
func (r *LateCodeRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.LateCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, code, created_at, used_at, used_by
		 FROM late_codes WHERE exam_id = $1
		 ORDER BY created_at DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []model.LateCode{}
	for rows.Next() {
		var lc model.LateCode
		if err := rows.Scan(&lc.ID, &lc.ExamID, &lc.Code, &lc.CreatedAt, &lc.UsedAt, &lc.UsedBy); err != nil {
			return nil, err
		}
		codes = append(codes, lc)
	}
	return codes, rows.Err()
}

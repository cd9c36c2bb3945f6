package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, tx *sql.Tx, id string, status model.Verdict) error
	// UpdateSubmissionResult records the aggregate verdict and summary
	// metrics after judging finished.
	UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, id string, status model.Verdict, avgTimeMs, avgMemoryKb *float64) error
	CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error
	GetCaseResults(ctx context.Context, submissionID string) ([]model.CaseResult, error)
	ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, language, source_code, status)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.SourceCode, sub.Status)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.SourceCode, sub.Status)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language, source_code, status, avg_time_ms, avg_memory_kb, created_at, updated_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.SourceCode, &sub.Status,
		&sub.AvgTimeMs, &sub.AvgMemoryKb, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateSubmissionStatus(ctx context.Context, tx *sql.Tx, id string, status model.Verdict) error {
	query := `UPDATE submissions SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, status, id)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmissionStatus: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, id string, status model.Verdict, avgTimeMs, avgMemoryKb *float64) error {
	query := `UPDATE submissions SET status = $1, avg_time_ms = $2, avg_memory_kb = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, avgTimeMs, avgMemoryKb, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, status, avgTimeMs, avgMemoryKb, id)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmissionResult: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error {
	if len(results) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO submission_case_results
		 (id, submission_id, token, case_index, stdout, stderr, time_ms, memory_kb, external_status, verdict, passed, incomplete)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateCaseResults prepare: %w", err)
	}
	defer stmt.Close()

	for _, cr := range results {
		_, err := stmt.ExecContext(ctx, cr.ID, cr.SubmissionID, cr.Token, cr.CaseIndex,
			cr.Stdout, cr.Stderr, cr.TimeMs, cr.MemoryKb, cr.ExternalStatus, cr.Verdict, cr.Passed, cr.Incomplete)
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateCaseResults case %d: %w", cr.CaseIndex, err)
		}
	}
	return nil
}

func (r *pgSubmissionRepository) GetCaseResults(ctx context.Context, submissionID string) ([]model.CaseResult, error) {
	query := `SELECT id, submission_id, token, case_index, stdout, stderr, time_ms, memory_kb, external_status, verdict, passed, incomplete
	          FROM submission_case_results WHERE submission_id = $1 ORDER BY case_index ASC`
	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetCaseResults: %w", err)
	}
	defer rows.Close()

	var results []model.CaseResult
	for rows.Next() {
		var cr model.CaseResult
		if err := rows.Scan(&cr.ID, &cr.SubmissionID, &cr.Token, &cr.CaseIndex, &cr.Stdout, &cr.Stderr,
			&cr.TimeMs, &cr.MemoryKb, &cr.ExternalStatus, &cr.Verdict, &cr.Passed, &cr.Incomplete); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetCaseResults scan: %w", err)
		}
		results = append(results, cr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetCaseResults rows: %w", err)
	}
	return results, nil
}

func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser count: %w", err)
	}

	query := `SELECT id, user_id, problem_id, language, status, avg_time_ms, avg_memory_kb, created_at, updated_at
	          FROM submissions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.AvgTimeMs, &s.AvgMemoryKb, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser rows: %w", err)
	}
	return subs, total, nil
}

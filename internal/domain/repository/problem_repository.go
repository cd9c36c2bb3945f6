package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	// CreateProblem persists the problem together with its test cases and
	// reference solutions inside the given transaction. Callers must only
	// invoke it after the validation gate passed.
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, status model.ProblemStatus) ([]model.Problem, int, error)

	GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error)
	GetReferenceSolutions(ctx context.Context, problemID string) ([]model.ReferenceSolution, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, status, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.Status, p.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}

	tcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO test_cases (id, problem_id, input, expected_output, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem prepare test cases: %w", err)
	}
	defer tcStmt.Close()
	for i, tc := range p.TestCases {
		if _, err := tcStmt.ExecContext(ctx, tc.ID, p.ID, tc.Input, tc.ExpectedOutput, i+1); err != nil {
			return fmt.Errorf("pgProblemRepository.CreateProblem test case %d: %w", i, err)
		}
	}

	rsStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reference_solutions (id, problem_id, language, source_code) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem prepare solutions: %w", err)
	}
	defer rsStmt.Close()
	for _, rs := range p.ReferenceSolutions {
		if _, err := rsStmt.ExecContext(ctx, rs.ID, p.ID, rs.Language, rs.SourceCode); err != nil {
			return fmt.Errorf("pgProblemRepository.CreateProblem solution %s: %w", rs.Language, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findBy(ctx, "id", id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findBy(ctx, "slug", slug)
}

func (r *pgProblemRepository) findBy(ctx context.Context, column, value string) (*model.Problem, error) {
	query := fmt.Sprintf(`SELECT id, title, slug, description, difficulty, status, created_by, created_at, updated_at
	          FROM problems WHERE %s = $1`, column)
	p := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.Status, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findBy %s: %w", column, err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, status model.ProblemStatus) ([]model.Problem, int, error) {
	var conditions []string
	var args []any
	argID := 1

	if difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argID))
		args = append(args, difficulty)
		argID++
	}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, status)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM problems"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, title, slug, description, difficulty, status, created_by, created_at, updated_at
	          FROM problems%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.Status,
			&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, sort_order
	          FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID: %w", err)
	}
	defer rows.Close()

	var cases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		cases = append(cases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID rows: %w", err)
	}
	return cases, nil
}

func (r *pgProblemRepository) GetReferenceSolutions(ctx context.Context, problemID string) ([]model.ReferenceSolution, error) {
	query := `SELECT id, problem_id, language, source_code
	          FROM reference_solutions WHERE problem_id = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions: %w", err)
	}
	defer rows.Close()

	var sols []model.ReferenceSolution
	for rows.Next() {
		var rs model.ReferenceSolution
		if err := rows.Scan(&rs.ID, &rs.ProblemID, &rs.Language, &rs.SourceCode); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions scan: %w", err)
		}
		sols = append(sols, rs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetReferenceSolutions rows: %w", err)
	}
	return sols, nil
}

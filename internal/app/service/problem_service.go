package service

import (
	"context"
	"database/sql"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	runner      *judge.Runner
	db          *sql.DB
	log         *zap.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, runner *judge.Runner, db *sql.DB, log *zap.Logger) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, runner: runner, db: db, log: log}
}

// DraftTestCase uses pointer fields so a missing field in the request body is
// distinguishable from a deliberately empty string.
type DraftTestCase struct {
	Input          *string `json:"input"`
	ExpectedOutput *string `json:"expected_output"`
}

type DraftSolution struct {
	Language   model.Language `json:"language"`
	SourceCode string         `json:"source_code"`
}

// CreateProblemRequest is the ephemeral problem draft: it exists only for the
// duration of validation and is persisted as a Problem only on total success.
type CreateProblemRequest struct {
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	Difficulty         model.ProblemDifficulty `json:"difficulty"`
	TestCases          []DraftTestCase         `json:"test_cases"`
	ReferenceSolutions []DraftSolution         `json:"reference_solutions"`
}

// CreateProblem runs the validation gate: every reference solution, in
// declaration order, must pass every test case with a judged Accepted before
// anything is written. The first non-Accepted case anywhere aborts the whole
// creation; the commit at the end is all-or-nothing.
func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" {
		return nil, fmt.Errorf("title and description are required: %w", common.ErrBadRequest)
	}
	switch req.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return nil, fmt.Errorf("invalid difficulty %q: %w", req.Difficulty, common.ErrBadRequest)
	}
	if len(req.TestCases) == 0 {
		return nil, fmt.Errorf("at least one test case is required: %w", common.ErrBadRequest)
	}
	if len(req.ReferenceSolutions) == 0 {
		return nil, fmt.Errorf("at least one reference solution is required: %w", common.ErrBadRequest)
	}
	seen := make(map[model.Language]bool, len(req.ReferenceSolutions))
	for _, sol := range req.ReferenceSolutions {
		if !sol.Language.Valid() {
			return nil, fmt.Errorf("unknown reference solution language %q: %w", sol.Language, common.ErrBadRequest)
		}
		if seen[sol.Language] {
			return nil, fmt.Errorf("duplicate reference solution for %s: %w", sol.Language, common.ErrBadRequest)
		}
		seen[sol.Language] = true
	}

	cases := make([]judge.Case, len(req.TestCases))
	for i, tc := range req.TestCases {
		cases[i] = judge.Case{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput}
	}

	// Validate every language before anything touches the database.
	for _, sol := range req.ReferenceSolutions {
		s.log.Info("validating reference solution",
			zap.String("title", req.Title),
			zap.String("language", string(sol.Language)),
			zap.Int("cases", len(cases)))

		outcome, err := s.runner.Run(ctx, sol.SourceCode, sol.Language, cases, judge.ModeJudged)
		if err != nil {
			return nil, fmt.Errorf("validating %s reference solution: %w", sol.Language, err)
		}
		for idx, cr := range outcome.CaseResults {
			if !cr.Passed {
				s.log.Info("reference solution rejected",
					zap.String("language", string(sol.Language)),
					zap.Int("case_index", idx),
					zap.String("status", cr.ExternalStatus))
				return nil, &common.ValidationFailedError{
					Language:  string(sol.Language),
					CaseIndex: idx,
					Status:    cr.ExternalStatus,
				}
			}
		}
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Status:      model.ProblemStatusPublished,
		CreatedByID: &userID,
	}
	for i, tc := range req.TestCases {
		problem.TestCases = append(problem.TestCases, model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problem.ID,
			Input:          *tc.Input,
			ExpectedOutput: *tc.ExpectedOutput,
			SortOrder:      i + 1,
		})
	}
	for _, sol := range req.ReferenceSolutions {
		problem.ReferenceSolutions = append(problem.ReferenceSolutions, model.ReferenceSolution{
			ID:         uuid.NewString(),
			ProblemID:  problem.ID,
			Language:   sol.Language,
			SourceCode: sol.SourceCode,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing problem: %w", err)
	}

	s.log.Info("problem published",
		zap.String("problem_id", problem.ID),
		zap.String("slug", problem.Slug),
		zap.Int("languages", len(problem.ReferenceSolutions)))
	return problem, nil
}

func (s *ProblemService) GetProblemDetails(ctx context.Context, problemSlug, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err
	}

	if problem.Status != model.ProblemStatusPublished && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}

	if userRole == model.RoleAdmin {
		if problem.TestCases, err = s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID); err != nil {
			s.log.Warn("failed to fetch test cases", zap.String("problem_id", problem.ID), zap.Error(err))
		}
		if problem.ReferenceSolutions, err = s.problemRepo.GetReferenceSolutions(ctx, problem.ID); err != nil {
			s.log.Warn("failed to fetch reference solutions", zap.String("problem_id", problem.ID), zap.Error(err))
		}
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int, difficulty model.ProblemDifficulty, userRole string) ([]model.Problem, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	statusFilter := model.ProblemStatusPublished
	if userRole == model.RoleAdmin {
		statusFilter = ""
	}
	return s.problemRepo.ListProblems(ctx, pageSize, offset, difficulty, statusFilter)
}

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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	quota          *QuotaService
	runner         *judge.Runner
	rdb            *redis.Client
	queueName      string
	db             *sql.DB
	log            *zap.Logger
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	quota *QuotaService,
	runner *judge.Runner,
	rdb *redis.Client,
	queueName string,
	db *sql.DB,
	log *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		quota:          quota,
		runner:         runner,
		rdb:            rdb,
		queueName:      queueName,
		db:             db,
		log:            log,
	}
}

type CreateSubmissionRequest struct {
	ProblemID  string         `json:"problem_id"`
	Language   model.Language `json:"language"`
	SourceCode string         `json:"source_code"`
}

// CreateSubmission records a Pending submission and hands it to the execution
// worker via the queue. Judging is asynchronous; the caller polls the
// submission resource for the verdict.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID, role string, req CreateSubmissionRequest) (*model.Submission, error) {
	if err := s.quota.CheckAndConsume(ctx, userID, role); err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}
	if problem.Status != model.ProblemStatusPublished && role != model.RoleAdmin {
		return nil, fmt.Errorf("problem is not published: %w", common.ErrForbidden)
	}
	if !req.Language.Valid() {
		return nil, fmt.Errorf("unknown language %q: %w", req.Language, common.ErrBadRequest)
	}
	if req.SourceCode == "" {
		return nil, fmt.Errorf("source code must not be empty: %w", common.ErrBadRequest)
	}

	submission := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problem.ID,
		Language:   req.Language,
		SourceCode: req.SourceCode,
		Status:     model.VerdictPending,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing submission: %w", err)
	}

	// Enqueue only after the row is visible, otherwise the worker can pop an
	// id it cannot load yet. If the push fails the row must not sit Pending
	// forever.
	if err := s.rdb.LPush(ctx, s.queueName, submission.ID).Err(); err != nil {
		if markErr := s.submissionRepo.UpdateSubmissionStatus(ctx, nil, submission.ID, model.VerdictInternalError); markErr != nil {
			s.log.Error("failed to mark unenqueued submission",
				zap.String("submission_id", submission.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("enqueueing submission: %v: %w", err, common.ErrInternalServer)
	}

	s.log.Info("submission enqueued",
		zap.String("submission_id", submission.ID),
		zap.String("problem_id", problem.ID),
		zap.String("language", string(req.Language)))
	return submission, nil
}

type RunCodeRequest struct {
	Language   model.Language    `json:"language"`
	SourceCode string            `json:"source_code"`
	TestCases  []RunCodeTestCase `json:"test_cases"`
}

type RunCodeTestCase struct {
	Input          *string `json:"input"`
	ExpectedOutput *string `json:"expected_output"`
}

// RunCode executes ad hoc code synchronously in bare-run mode: nothing is
// persisted and the expected outputs are compared locally rather than by the
// judge. On a polling timeout the partial outcome is returned together with
// the error so the handler can surface both.
func (s *SubmissionService) RunCode(ctx context.Context, userID, role string, req RunCodeRequest) (*judge.Outcome, error) {
	if err := s.quota.CheckAndConsume(ctx, userID, role); err != nil {
		return nil, err
	}

	cases := make([]judge.Case, len(req.TestCases))
	for i, tc := range req.TestCases {
		cases[i] = judge.Case{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput}
	}
	return s.runner.Run(ctx, req.SourceCode, req.Language, cases, judge.ModeBareRun)
}

// Usage reports how much of today's quota the user has consumed.
func (s *SubmissionService) Usage(ctx context.Context, userID string) (*model.UsageRecord, error) {
	return s.quota.Usage(ctx, userID)
}

// GetSubmission returns a submission with its case results. Owners and admins
// only.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}

	results, err := s.submissionRepo.GetCaseResults(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	sub.CaseResults = results
	return sub, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, page, pageSize int) ([]model.Submission, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListSubmissionsByUser(ctx, userID, pageSize, offset)
}

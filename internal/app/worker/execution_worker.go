package worker

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ExecutionWorker drains the submission queue and judges each submission:
// batch-submit to the judge, poll the tokens to completion, aggregate and
// persist the verdict. Submissions are independent of each other and judged
// concurrently; the only shared mutable state lives in Redis and Postgres.
type ExecutionWorker struct {
	rdb            *redis.Client
	queueName      string
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	runner         *judge.Runner
	db             *sql.DB
	log            *zap.Logger
}

func NewExecutionWorker(
	rdb *redis.Client,
	queueName string,
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	runner *judge.Runner,
	db *sql.DB,
	log *zap.Logger,
) *ExecutionWorker {
	return &ExecutionWorker{
		rdb:            rdb,
		queueName:      queueName,
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		runner:         runner,
		db:             db,
		log:            log,
	}
}

func (w *ExecutionWorker) Start(ctx context.Context) {
	w.log.Info("execution worker started", zap.String("queue", w.queueName))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("execution worker stopping")
			return
		default:
			popped, err := w.rdb.BRPop(ctx, 5*time.Second, w.queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // timeout, loop back to check ctx
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				w.log.Error("failed to pop from submission queue", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(popped) < 2 || popped[1] == "" {
				continue
			}
			go w.process(ctx, popped[1])
		}
	}
}

func (w *ExecutionWorker) process(ctx context.Context, submissionID string) {
	log := w.log.With(zap.String("submission_id", submissionID))

	sub, err := w.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		log.Error("failed to load submission", zap.Error(err))
		return
	}

	testCases, err := w.problemRepo.GetTestCasesByProblemID(ctx, sub.ProblemID)
	if err != nil || len(testCases) == 0 {
		log.Error("failed to load test cases", zap.String("problem_id", sub.ProblemID), zap.Error(err))
		w.markInternalError(ctx, submissionID, log)
		return
	}

	if err := w.submissionRepo.UpdateSubmissionStatus(ctx, nil, submissionID, model.VerdictRunning); err != nil {
		log.Warn("failed to mark submission running", zap.Error(err))
	}

	outcome, err := w.runner.Run(ctx, sub.SourceCode, sub.Language, judge.CasesFromTestCases(testCases), judge.ModeJudged)
	if err != nil && !errors.Is(err, common.ErrPollTimeout) {
		log.Error("judging failed", zap.Error(err))
		w.markInternalError(ctx, submissionID, log)
		return
	}
	if err != nil {
		// Deadline elapsed: the aggregate already classifies the incomplete
		// cases as InternalError, never as WrongAnswer. The dispatched judge
		// job cannot be cancelled remotely.
		log.Warn("polling deadline elapsed, recording partial results", zap.Error(err))
	}

	for i := range outcome.CaseResults {
		outcome.CaseResults[i].ID = uuid.NewString()
		outcome.CaseResults[i].SubmissionID = submissionID
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return
	}
	defer tx.Rollback()

	if err := w.submissionRepo.UpdateSubmissionResult(ctx, tx, submissionID, outcome.Status, outcome.AvgTimeMs, outcome.AvgMemoryKb); err != nil {
		log.Error("failed to store submission result", zap.Error(err))
		return
	}
	if err := w.submissionRepo.CreateCaseResults(ctx, tx, outcome.CaseResults); err != nil {
		log.Error("failed to store case results", zap.Error(err))
		return
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit results", zap.Error(err))
		return
	}

	log.Info("submission judged",
		zap.String("status", string(outcome.Status)),
		zap.Int("cases", len(outcome.CaseResults)))
}

func (w *ExecutionWorker) markInternalError(ctx context.Context, submissionID string, log *zap.Logger) {
	if err := w.submissionRepo.UpdateSubmissionStatus(ctx, nil, submissionID, model.VerdictInternalError); err != nil {
		log.Error("failed to mark submission as internal error", zap.Error(err))
	}
}

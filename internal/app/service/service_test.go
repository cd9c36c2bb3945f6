package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/judge"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

func strPtr(s string) *string { return &s }

// stubDriver gives tests a real *sql.DB whose Begin/Commit/Rollback are
// no-ops. The repositories underneath are fakes, so no statement ever reaches
// the driver; only the transactional boundary is exercised.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return stubStmt{}, nil }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubStmt struct{}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return -1 }
func (stubStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}
func (stubStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("stub driver serves no rows")
}

func init() { sql.Register("servicestub", stubDriver{}) }

func stubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("servicestub", "")
	if err != nil {
		t.Fatalf("opening stub db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// scriptedJudge answers every case of batch n with the status verdict(n, i)
// returns, echoing the case's expected output as stdout when it is accepted.
type scriptedJudge struct {
	mu      sync.Mutex
	batches [][]judge.BatchSubmission
	results map[string]judge.CaseStatus
	verdict func(batch, caseIdx int) judge.StatusInfo
	stdout  func(batch, caseIdx int) string
}

func newScriptedJudge(verdict func(batch, caseIdx int) judge.StatusInfo) *scriptedJudge {
	return &scriptedJudge{
		results: make(map[string]judge.CaseStatus),
		verdict: verdict,
	}
}

func allAccepted(batch, caseIdx int) judge.StatusInfo {
	return judge.StatusInfo{ID: 3, Description: "Accepted"}
}

func (j *scriptedJudge) CreateBatch(ctx context.Context, subs []judge.BatchSubmission) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	batch := len(j.batches)
	j.batches = append(j.batches, subs)

	tokens := make([]string, len(subs))
	for i := range subs {
		tok := fmt.Sprintf("b%d-c%d", batch, i)
		tokens[i] = tok
		out := ""
		if j.stdout != nil {
			out = j.stdout(batch, i)
		}
		j.results[tok] = judge.CaseStatus{
			Token:  tok,
			Status: j.verdict(batch, i),
			Stdout: out,
			Time:   "0.010",
		}
	}
	return tokens, nil
}

func (j *scriptedJudge) BatchStatus(ctx context.Context, tokens []string) ([]judge.CaseStatus, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	statuses := make([]judge.CaseStatus, 0, len(tokens))
	for _, tok := range tokens {
		if st, ok := j.results[tok]; ok {
			statuses = append(statuses, st)
		}
	}
	return statuses, nil
}

func newTestRunner(client judge.Client) *judge.Runner {
	return judge.NewRunner(client, judge.DefaultPollConfig(), testLogger)
}

type fakeProblemRepo struct {
	byID    map[string]*model.Problem
	bySlug  map[string]*model.Problem
	cases   map[string][]model.TestCase
	created []*model.Problem
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		byID:   make(map[string]*model.Problem),
		bySlug: make(map[string]*model.Problem),
		cases:  make(map[string][]model.TestCase),
	}
}

func (r *fakeProblemRepo) add(p *model.Problem, tcs []model.TestCase) {
	r.byID[p.ID] = p
	r.bySlug[p.Slug] = p
	r.cases[p.ID] = tcs
}

func (r *fakeProblemRepo) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	r.created = append(r.created, p)
	r.add(p, p.TestCases)
	return nil
}

func (r *fakeProblemRepo) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	if p, ok := r.byID[id]; ok {
		return p, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeProblemRepo) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	if p, ok := r.bySlug[slug]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeProblemRepo) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, status model.ProblemStatus) ([]model.Problem, int, error) {
	var out []model.Problem
	for _, p := range r.byID {
		if status != "" && p.Status != status {
			continue
		}
		if difficulty != "" && p.Difficulty != difficulty {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *fakeProblemRepo) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	return r.cases[problemID], nil
}

func (r *fakeProblemRepo) GetReferenceSolutions(ctx context.Context, problemID string) ([]model.ReferenceSolution, error) {
	if p, ok := r.byID[problemID]; ok {
		return p.ReferenceSolutions, nil
	}
	return nil, nil
}

type fakeSubmissionRepo struct {
	byID        map[string]*model.Submission
	caseResults map[string][]model.CaseResult
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		byID:        make(map[string]*model.Submission),
		caseResults: make(map[string][]model.CaseResult),
	}
}

func (r *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	r.byID[sub.ID] = sub
	return nil
}

func (r *fakeSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	if s, ok := r.byID[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeSubmissionRepo) UpdateSubmissionStatus(ctx context.Context, tx *sql.Tx, id string, status model.Verdict) error {
	if s, ok := r.byID[id]; ok {
		s.Status = status
	}
	return nil
}

func (r *fakeSubmissionRepo) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, id string, status model.Verdict, avgTimeMs, avgMemoryKb *float64) error {
	if s, ok := r.byID[id]; ok {
		s.Status = status
		s.AvgTimeMs = avgTimeMs
		s.AvgMemoryKb = avgMemoryKb
	}
	return nil
}

func (r *fakeSubmissionRepo) CreateCaseResults(ctx context.Context, tx *sql.Tx, results []model.CaseResult) error {
	for _, cr := range results {
		r.caseResults[cr.SubmissionID] = append(r.caseResults[cr.SubmissionID], cr)
	}
	return nil
}

func (r *fakeSubmissionRepo) GetCaseResults(ctx context.Context, submissionID string) ([]model.CaseResult, error) {
	return r.caseResults[submissionID], nil
}

func (r *fakeSubmissionRepo) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var out []model.Submission
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

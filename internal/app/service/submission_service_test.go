package service

import (
	"context"
	"errors"
	"testing"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/judge"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubmissionTestbed(t *testing.T, client judge.Client) (*SubmissionService, *fakeProblemRepo, *fakeSubmissionRepo, *redis.Client) {
	t.Helper()
	_, rdb := newTestRedis(t)
	quota := NewQuotaService(rdb, 5, testLogger)
	probRepo := newFakeProblemRepo()
	subRepo := newFakeSubmissionRepo()
	svc := NewSubmissionService(subRepo, probRepo, quota, newTestRunner(client), rdb, "test_queue", stubDB(t), testLogger)
	return svc, probRepo, subRepo, rdb
}

func TestCreateSubmissionRejectsOverQuota(t *testing.T) {
	client := newScriptedJudge(allAccepted)
	_, rdb := newTestRedis(t)
	quota := NewQuotaService(rdb, 1, testLogger)
	probRepo := newFakeProblemRepo()
	svc := NewSubmissionService(newFakeSubmissionRepo(), probRepo, quota, newTestRunner(client), rdb, "test_queue", stubDB(t), testLogger)

	require.NoError(t, quota.CheckAndConsume(context.Background(), "user-1", model.RoleUser))

	_, err := svc.CreateSubmission(context.Background(), "user-1", model.RoleUser, CreateSubmissionRequest{
		ProblemID:  "p1",
		Language:   model.LangPython,
		SourceCode: "print(1)",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrQuotaExceeded))
}

func TestCreateSubmissionValidation(t *testing.T) {
	published := &model.Problem{ID: "p1", Slug: "two-sum", Status: model.ProblemStatusPublished}
	draft := &model.Problem{ID: "p2", Slug: "draft", Status: model.ProblemStatusDraft}

	tests := []struct {
		name    string
		role    string
		req     CreateSubmissionRequest
		wantErr error
	}{
		{"unknown problem", model.RoleUser,
			CreateSubmissionRequest{ProblemID: "missing", Language: model.LangPython, SourceCode: "x"},
			common.ErrNotFound},
		{"unpublished problem", model.RoleUser,
			CreateSubmissionRequest{ProblemID: "p2", Language: model.LangPython, SourceCode: "x"},
			common.ErrForbidden},
		{"unknown language", model.RoleUser,
			CreateSubmissionRequest{ProblemID: "p1", Language: "COBOL", SourceCode: "x"},
			common.ErrBadRequest},
		{"empty source", model.RoleUser,
			CreateSubmissionRequest{ProblemID: "p1", Language: model.LangPython, SourceCode: ""},
			common.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, probRepo, _, _ := newSubmissionTestbed(t, newScriptedJudge(allAccepted))
			probRepo.add(published, nil)
			probRepo.add(draft, nil)

			_, err := svc.CreateSubmission(context.Background(), "user-1", tt.role, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestRunCodeComparesOutputsLocally(t *testing.T) {
	client := newScriptedJudge(allAccepted)
	client.stdout = func(batch, caseIdx int) string {
		if caseIdx == 0 {
			return "expected\n"
		}
		return "something else"
	}
	svc, _, _, _ := newSubmissionTestbed(t, client)

	out, err := svc.RunCode(context.Background(), "user-1", model.RoleUser, RunCodeRequest{
		Language:   model.LangPython,
		SourceCode: "print(input())",
		TestCases: []RunCodeTestCase{
			{Input: strPtr("a"), ExpectedOutput: strPtr("expected")},
			{Input: strPtr("b"), ExpectedOutput: strPtr("expected")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.True(t, out.CaseResults[0].Passed)
	assert.False(t, out.CaseResults[1].Passed)
	assert.Equal(t, model.VerdictWrongAnswer, out.Status)

	// Bare runs never reveal the expected output to the judge.
	require.Len(t, client.batches, 1)
	for _, sub := range client.batches[0] {
		assert.Nil(t, sub.ExpectedOutput)
	}
}

func TestRunCodeRejectsOverQuotaBeforeDispatch(t *testing.T) {
	client := newScriptedJudge(allAccepted)
	_, rdb := newTestRedis(t)
	quota := NewQuotaService(rdb, 0, testLogger)
	svc := NewSubmissionService(newFakeSubmissionRepo(), newFakeProblemRepo(), quota, newTestRunner(client), rdb, "test_queue", stubDB(t), testLogger)

	_, err := svc.RunCode(context.Background(), "user-1", model.RoleUser, RunCodeRequest{
		Language:   model.LangPython,
		SourceCode: "print(1)",
		TestCases:  []RunCodeTestCase{{Input: strPtr(""), ExpectedOutput: strPtr("")}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrQuotaExceeded))
	assert.Empty(t, client.batches)
}

func TestCreateSubmissionPersistsThenEnqueues(t *testing.T) {
	svc, probRepo, subRepo, rdb := newSubmissionTestbed(t, newScriptedJudge(allAccepted))
	probRepo.add(&model.Problem{ID: "p1", Slug: "two-sum", Status: model.ProblemStatusPublished}, nil)

	sub, err := svc.CreateSubmission(context.Background(), "user-1", model.RoleUser, CreateSubmissionRequest{
		ProblemID:  "p1",
		Language:   model.LangPython,
		SourceCode: "print(1)",
	})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, model.VerdictPending, sub.Status)

	stored, err := subRepo.GetSubmissionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)

	ids, err := rdb.LRange(context.Background(), "test_queue", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{sub.ID}, ids)
}

func TestCreateSubmissionEnqueueFailureDoesNotStrandPending(t *testing.T) {
	// Quota lives on a healthy Redis, the queue on one that is gone. The
	// committed row must not sit Pending with no worker ever picking it up.
	_, quotaRdb := newTestRedis(t)
	quota := NewQuotaService(quotaRdb, 5, testLogger)
	queueMr, queueRdb := newTestRedis(t)

	probRepo := newFakeProblemRepo()
	probRepo.add(&model.Problem{ID: "p1", Slug: "two-sum", Status: model.ProblemStatusPublished}, nil)
	subRepo := newFakeSubmissionRepo()
	svc := NewSubmissionService(subRepo, probRepo, quota, newTestRunner(newScriptedJudge(allAccepted)),
		queueRdb, "test_queue", stubDB(t), testLogger)
	queueMr.Close()

	_, err := svc.CreateSubmission(context.Background(), "user-1", model.RoleUser, CreateSubmissionRequest{
		ProblemID:  "p1",
		Language:   model.LangPython,
		SourceCode: "print(1)",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInternalServer))

	require.Len(t, subRepo.byID, 1)
	for _, s := range subRepo.byID {
		assert.Equal(t, model.VerdictInternalError, s.Status)
	}
}

func TestGetSubmissionOwnership(t *testing.T) {
	svc, _, subRepo, _ := newSubmissionTestbed(t, newScriptedJudge(allAccepted))
	subRepo.byID["s1"] = &model.Submission{ID: "s1", UserID: "owner", Status: model.VerdictAccepted}
	subRepo.caseResults["s1"] = []model.CaseResult{{ID: "cr1", SubmissionID: "s1", Passed: true}}

	got, err := svc.GetSubmission(context.Background(), "owner", model.RoleUser, "s1")
	require.NoError(t, err)
	require.Len(t, got.CaseResults, 1)

	_, err = svc.GetSubmission(context.Background(), "someone-else", model.RoleUser, "s1")
	assert.True(t, errors.Is(err, common.ErrForbidden))

	_, err = svc.GetSubmission(context.Background(), "someone-else", model.RoleAdmin, "s1")
	assert.NoError(t, err)
}

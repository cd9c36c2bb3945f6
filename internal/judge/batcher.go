package judge

import (
	"context"
	"fmt"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"go.uber.org/zap"
)

// Case is one unit of work for the judge: a stdin payload and the output the
// code is expected to produce. Pointer fields so a missing field can be told
// apart from a deliberately empty one; empty strings are valid values.
type Case struct {
	Input          *string `json:"input"`
	ExpectedOutput *string `json:"expected_output"`
}

// CasesFromTestCases adapts persisted test cases to batcher input.
func CasesFromTestCases(tcs []model.TestCase) []Case {
	cases := make([]Case, len(tcs))
	for i := range tcs {
		cases[i] = Case{Input: &tcs[i].Input, ExpectedOutput: &tcs[i].ExpectedOutput}
	}
	return cases
}

// Batcher turns (source, language, test cases) into one correlated batch
// request to the judge and returns the ordered token list.
type Batcher struct {
	client Client
	log    *zap.Logger
}

func NewBatcher(client Client, log *zap.Logger) *Batcher {
	return &Batcher{client: client, log: log}
}

// Submit validates the batch and dispatches it in a single judge call.
// The returned tokens are index-aligned 1:1 with cases. On failure no tokens
// are assumed to exist; there is no partial-batch leakage.
func (b *Batcher) Submit(ctx context.Context, sourceCode string, lang model.Language, cases []Case, includeExpected bool) ([]string, error) {
	if strings.TrimSpace(sourceCode) == "" {
		return nil, fmt.Errorf("source code must not be empty: %w", common.ErrBadRequest)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("at least one test case is required: %w", common.ErrBadRequest)
	}
	langID, err := lang.JudgeID()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrBadRequest)
	}
	for i, c := range cases {
		if c.Input == nil {
			return nil, fmt.Errorf("test case %d: missing input field: %w", i, common.ErrBadRequest)
		}
		if c.ExpectedOutput == nil {
			return nil, fmt.Errorf("test case %d: missing expected_output field: %w", i, common.ErrBadRequest)
		}
	}

	subs := make([]BatchSubmission, len(cases))
	for i, c := range cases {
		subs[i] = BatchSubmission{
			SourceCode: sourceCode,
			LanguageID: langID,
			Stdin:      *c.Input,
		}
		if includeExpected {
			subs[i].ExpectedOutput = c.ExpectedOutput
		}
	}

	tokens, err := b.client.CreateBatch(ctx, subs)
	if err != nil {
		return nil, fmt.Errorf("submitting batch: %w", err)
	}

	b.log.Debug("batch submitted",
		zap.String("language", string(lang)),
		zap.Int("cases", len(cases)))
	return tokens, nil
}

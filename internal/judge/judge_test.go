package judge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// fakeClient scripts the judge: CreateBatch hands out deterministic tokens
// and BatchStatus replays one frame per poll, sticking on the last frame.
type fakeClient struct {
	mu sync.Mutex

	createErr   error
	createCalls [][]BatchSubmission

	frames      [][]CaseStatus
	statusErr   error
	statusCalls int
}

func (f *fakeClient) CreateBatch(ctx context.Context, subs []BatchSubmission) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, subs)
	if f.createErr != nil {
		return nil, f.createErr
	}
	tokens := make([]string, len(subs))
	for i := range subs {
		tokens[i] = token(i)
	}
	return tokens, nil
}

func (f *fakeClient) BatchStatus(ctx context.Context, tokens []string) ([]CaseStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.statusCalls
	f.statusCalls++
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}
	return f.frames[i], nil
}

func token(i int) string {
	return string(rune('a'+i)) + "-token"
}

func fastPoll() PollConfig {
	return PollConfig{
		Interval:    time.Millisecond,
		MaxInterval: 2 * time.Millisecond,
		Deadline:    100 * time.Millisecond,
	}
}

var testLogger = zap.NewNop()

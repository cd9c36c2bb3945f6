package judge

import (
	"context"
	"fmt"
	"time"

	"codearena/internal/common"

	"go.uber.org/zap"
)

// PollConfig bounds the polling loop. Interval is the first wait, doubled each
// tick up to MaxInterval; Deadline is the hard wall-clock ceiling for the
// whole token set.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Deadline    time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    500 * time.Millisecond,
		MaxInterval: 4 * time.Second,
		Deadline:    45 * time.Second,
	}
}

// RawResult is the judge's final word on one case, still in judge-specific
// terms. Incomplete marks a case that never went terminal before the
// deadline; such a case must never be treated as passed.
type RawResult struct {
	Token       string
	StatusID    int
	Description string
	Stdout      string
	Stderr      string
	Time        string
	Memory      *int
	Incomplete  bool
}

// Poller repeatedly queries the judge for the full token set until every case
// is terminal or the deadline elapses.
type Poller struct {
	client Client
	cfg    PollConfig
	log    *zap.Logger
}

func NewPoller(client Client, cfg PollConfig, log *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 45 * time.Second
	}
	return &Poller{client: client, cfg: cfg, log: log}
}

// Await polls until every token is terminal. Results come back in token
// order. On deadline it returns the terminal results gathered so far with
// explicit incomplete markers for the rest, wrapped in ErrPollTimeout.
// Cancelling the context stops polling; the dispatched judge job itself
// cannot be cancelled remotely.
func (p *Poller) Await(ctx context.Context, tokens []string) ([]RawResult, error) {
	deadline := time.Now().Add(p.cfg.Deadline)
	wait := p.cfg.Interval

	results := make([]RawResult, len(tokens))
	index := make(map[string]int, len(tokens))
	for i, t := range tokens {
		index[t] = i
		results[i] = RawResult{Token: t, StatusID: statusInQueue, Incomplete: true}
	}

	for {
		statuses, err := p.client.BatchStatus(ctx, tokens)
		if err != nil {
			return nil, fmt.Errorf("polling judge: %w", err)
		}

		for _, st := range statuses {
			i, ok := index[st.Token]
			if !ok {
				p.log.Warn("judge returned unknown token", zap.String("token", st.Token))
				continue
			}
			results[i] = RawResult{
				Token:       st.Token,
				StatusID:    st.Status.ID,
				Description: st.Status.Description,
				Stdout:      st.Stdout,
				Stderr:      st.Stderr,
				Time:        st.Time,
				Memory:      st.Memory,
				Incomplete:  !terminal(st.Status.ID),
			}
		}

		pending := 0
		for i := range results {
			if results[i].Incomplete {
				pending++
			}
		}
		if pending == 0 {
			return results, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.log.Warn("polling deadline elapsed",
				zap.Int("pending", pending), zap.Int("total", len(tokens)))
			return results, fmt.Errorf("%d of %d cases still pending: %w",
				pending, len(tokens), common.ErrPollTimeout)
		}

		if err := sleep(ctx, min(wait, remaining)); err != nil {
			return nil, err
		}
		wait *= 2
		if wait > p.cfg.MaxInterval {
			wait = p.cfg.MaxInterval
		}
	}
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

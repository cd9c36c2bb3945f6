package judge

import (
	"context"
	"errors"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"go.uber.org/zap"
)

// Runner ties the batcher, the poller and verdict aggregation into the
// submit → poll → aggregate pipeline shared by submissions, ad hoc runs and
// problem validation.
type Runner struct {
	batcher *Batcher
	poller  *Poller
	log     *zap.Logger
}

func NewRunner(client Client, cfg PollConfig, log *zap.Logger) *Runner {
	return &Runner{
		batcher: NewBatcher(client, log),
		poller:  NewPoller(client, cfg, log),
		log:     log,
	}
}

// Run executes one correlated batch end to end. On a polling timeout it
// returns the partial outcome (terminal results plus incomplete markers)
// together with an error wrapping ErrPollTimeout so callers can tell the two
// apart; any other error yields no outcome.
func (r *Runner) Run(ctx context.Context, sourceCode string, lang model.Language, cases []Case, mode Mode) (*Outcome, error) {
	tokens, err := r.batcher.Submit(ctx, sourceCode, lang, cases, mode == ModeJudged)
	if err != nil {
		return nil, err
	}

	raw, err := r.poller.Await(ctx, tokens)
	if err != nil && !errors.Is(err, common.ErrPollTimeout) {
		return nil, err
	}

	outcome := Aggregate(raw, cases, mode)
	return &outcome, err
}

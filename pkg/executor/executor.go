// Package executor applies a reconciliation Plan to a remote catalog.
//
// Each operation succeeds or fails on its own; a failure is recorded in the
// Report and execution moves on. Two things stop it early: cancellation of
// the context, after which no new operation starts, and a rejected
// credential, after which no further request could succeed.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/logging"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

// Observer receives each outcome as soon as it is known.
type Observer func(ctx context.Context, outcome Outcome)

// Executor applies plans to a Source.
type Executor struct {
	source      remote.Source
	concurrency int
	observer    Observer
}

// New creates an Executor writing to source.
func New(source remote.Source, opts ...Option) (*Executor, error) {
	if source == nil {
		return nil, &errors.ValidationError{Field: "source", Message: "cannot be nil"}
	}
	options, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Executor{source: source, concurrency: options.concurrency, observer: options.observer}, nil
}

// run holds the state shared by the operations of one Execute call.
type run struct {
	ctx      context.Context
	outcomes []Outcome

	mu    sync.Mutex
	fatal error
}

func (r *run) stopped() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatal != nil {
		return r.fatal
	}
	return r.ctx.Err()
}

func (r *run) setFatal(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatal == nil {
		r.fatal = err
	}
}

// Execute applies every create and update in plan. It never returns early
// with an error: everything that happened, including skipped work, is in
// the Report.
func (e *Executor) Execute(ctx context.Context, plan *reconciler.Plan) *Report {
	start := time.Now()
	r := &run{ctx: ctx, outcomes: make([]Outcome, len(plan.Operations))}

	var observeMu sync.Mutex
	observe := func(o Outcome) {
		if e.observer == nil {
			return
		}
		observeMu.Lock()
		defer observeMu.Unlock()
		e.observer(ctx, o)
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, op := range plan.Operations {
		if !op.Mutates() {
			r.outcomes[i] = passive(op)
			observe(r.outcomes[i])
			continue
		}
		if err := r.stopped(); err != nil {
			r.outcomes[i] = cancelled(op, err)
			observe(r.outcomes[i])
			continue
		}
		g.Go(func() error {
			// A slot may free up only after cancellation; check again.
			if err := r.stopped(); err != nil {
				r.outcomes[i] = cancelled(op, err)
			} else {
				r.outcomes[i] = e.apply(ctx, op)
				if errors.IsAuthError(r.outcomes[i].Err) {
					r.setFatal(r.outcomes[i].Err)
				}
			}
			observe(r.outcomes[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Outcomes: r.outcomes, Fatal: r.fatal}
	for _, o := range r.outcomes {
		report.count(o)
	}
	report.Duration = time.Since(start)

	logging.FromContext(ctx).Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("cancelled", report.Cancelled).
		Dur("duration", report.Duration).
		Msg("Plan executed")
	return report
}

// apply performs one mutating operation. The call runs on a context that
// ignores cancellation so an operation that has started always finishes.
func (e *Executor) apply(ctx context.Context, op reconciler.Operation) Outcome {
	ctx = logging.WithCategory(ctx, op.Category.String())
	ctx = logging.WithEntry(ctx, op.Key)
	ctx = logging.WithOperation(ctx, string(op.Kind))
	logger := logging.FromContext(ctx)
	callCtx := context.WithoutCancel(ctx)

	start := time.Now()
	var (
		rec    catalog.Record
		err    error
		status Status
	)
	switch op.Kind {
	case reconciler.KindCreate:
		rec, err = e.source.Create(callCtx, *op.Draft)
		status = StatusCreated
	case reconciler.KindUpdate:
		rec, err = e.source.Update(callCtx, *op.Record, *op.Patch)
		status = StatusUpdated
	}
	outcome := Outcome{Operation: op, Duration: time.Since(start)}

	if err != nil {
		err = errors.WrapResource(string(op.Kind), op.Category.String(), op.Key, err)
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.Error = err.Error()
		outcome.Transient = errors.IsTransient(err)
		logger.Warn().Err(err).
			Bool("transient", outcome.Transient).
			Bool("rate_limited", errors.IsRateLimited(err)).
			Msg("Operation failed")
		return outcome
	}

	outcome.Status = status
	outcome.Record = &rec
	logger.Info().Uint64("record_id", rec.ID).Str("name", rec.Name).Int64("price", rec.Price).Msg("Operation applied")
	return outcome
}

func passive(op reconciler.Operation) Outcome {
	o := Outcome{Operation: op, Record: op.Record}
	switch op.Kind {
	case reconciler.KindConflict:
		o.Status = StatusConflict
		o.Err = op.Err()
		o.Error = op.Reason
	case reconciler.KindSkip:
		o.Status = StatusDeclined
	default:
		o.Status = StatusNoOp
	}
	return o
}

func cancelled(op reconciler.Operation, cause error) Outcome {
	err := errors.ErrCanceled
	if cause != nil {
		err = errors.WrapResource(string(op.Kind), op.Category.String(), op.Key, cause)
	}
	return Outcome{Operation: op, Status: StatusCancelled, Err: err, Error: err.Error()}
}

package executor

import (
	"fmt"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

type options struct {
	concurrency int
	observer    Observer
}

func defaultOptions() *options {
	return &options{concurrency: 1}
}

// Option is a function that configures an Executor.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithConcurrency lets up to n operations run at once. Operations target
// distinct records, so they never interfere. The default of 1 applies the
// plan strictly in order.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxConcurrency {
			return &errors.ValidationError{
				Field:   "concurrency",
				Value:   n,
				Message: fmt.Sprintf("must be between 1 and %d", constants.MaxConcurrency),
			}
		}
		o.concurrency = n
		return nil
	}
}

// WithObserver registers a callback invoked once per outcome, as soon as
// it is known. Calls are serialized.
func WithObserver(fn Observer) Option {
	return func(o *options) error {
		o.observer = fn
		return nil
	}
}

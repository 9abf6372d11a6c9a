package rbxproducts

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

// ConfirmFunc approves or declines one planned create or update.
type ConfirmFunc func(op reconciler.Operation) bool

// Option is a function that configures a Syncer.
type Option func(*config) error

type config struct {
	file        string
	overwrite   bool
	autoApprove bool
	dryRun      bool
	confirm     ConfirmFunc
	concurrency int
	fields      []catalog.Field
	journal     Journal
	logger      *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		file:        constants.DefaultDeclaredFile,
		concurrency: 1,
	}
}

// WithFile sets the declared file path.
func WithFile(path string) Option {
	return func(c *config) error {
		if strings.TrimSpace(path) == "" {
			return &errors.ValidationError{Field: "file", Message: "cannot be empty"}
		}
		c.file = path
		return nil
	}
}

// WithOverwrite lets sync apply every change without asking, and lets
// download replace local names and prices with the remote ones.
func WithOverwrite(enabled bool) Option {
	return func(c *config) error {
		c.overwrite = enabled
		return nil
	}
}

// WithAutoApprove answers yes to every approval prompt.
func WithAutoApprove(enabled bool) Option {
	return func(c *config) error {
		c.autoApprove = enabled
		return nil
	}
}

// WithDryRun plans without writing to the remote catalog or to disk.
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithConfirm sets the approval callback. Without one, and without
// overwrite or auto-approve, every change is declined.
func WithConfirm(fn ConfirmFunc) Option {
	return func(c *config) error {
		c.confirm = fn
		return nil
	}
}

// WithConcurrency sets how many writes may be in flight at once.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 1 || n > constants.MaxConcurrency {
			return &errors.ValidationError{Field: "concurrency", Value: n, Message: "out of range"}
		}
		c.concurrency = n
		return nil
	}
}

// WithFields sets which record fields are compared when planning.
func WithFields(fields ...catalog.Field) Option {
	return func(c *config) error {
		c.fields = fields
		return nil
	}
}

// WithJournal records every run in j.
func WithJournal(j Journal) Option {
	return func(c *config) error {
		c.journal = j
		return nil
	}
}

// WithLogger sets the logger. The context logger is used otherwise.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

func (c *config) reconcilerOptions() []reconciler.Option {
	if len(c.fields) == 0 {
		return nil
	}
	return []reconciler.Option{reconciler.WithFields(c.fields...)}
}

// approve decides a mutating operation according to the configured policy.
func (c *config) approve(op reconciler.Operation) bool {
	switch {
	case c.overwrite, c.autoApprove:
		return true
	case c.confirm != nil:
		return c.confirm(op)
	default:
		return false
	}
}

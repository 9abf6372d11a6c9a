// Package cmdutil provides shared helpers for rbxproducts commands.
package cmdutil

import (
	"fmt"

	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Exit codes.
const (
	// ExitError is used for fatal errors: malformed files, rejected credentials.
	ExitError = 1
	// ExitPartial means the run finished but some operations failed.
	ExitPartial = 2
	// ExitCanceled means the run was interrupted before it finished.
	ExitCanceled = 130
)

// ExitCodeError carries the process exit code for an error.
type ExitCodeError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap implements errors.Unwrap.
func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// Partial returns an error exiting with ExitPartial.
func Partial(format string, args ...any) error {
	return &ExitCodeError{Code: ExitPartial, Err: fmt.Errorf(format, args...)}
}

// ExitCode returns the process exit code for err: 0 for nil, the carried
// code for an ExitCodeError, ExitCanceled for an interrupted run and
// ExitError otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *ExitCodeError
	if errors.As(err, &ec) {
		return ec.Code
	}
	if errors.IsCanceled(err) {
		return ExitCanceled
	}
	return ExitError
}

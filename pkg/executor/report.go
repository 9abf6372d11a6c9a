package executor

import (
	"fmt"
	"time"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

// Status is the result of executing one operation.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusNoOp      Status = "noop"
	StatusConflict  Status = "conflict"
	StatusDeclined  Status = "declined"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome records what happened to one operation.
type Outcome struct {
	Operation reconciler.Operation `json:"operation" yaml:"operation"`
	Status    Status               `json:"status" yaml:"status"`
	Record    *catalog.Record      `json:"record,omitempty" yaml:"record,omitempty"`
	Err       error                `json:"-" yaml:"-"`
	Error     string               `json:"error,omitempty" yaml:"error,omitempty"`
	Transient bool                 `json:"transient,omitempty" yaml:"transient,omitempty"`
	Duration  time.Duration        `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Report summarizes an execution. Outcomes follow plan order.
type Report struct {
	Created   int `json:"created" yaml:"created"`
	Updated   int `json:"updated" yaml:"updated"`
	NoOps     int `json:"noops" yaml:"noops"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`
	Declined  int `json:"declined" yaml:"declined"`
	Failed    int `json:"failed" yaml:"failed"`
	Cancelled int `json:"cancelled" yaml:"cancelled"`

	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`

	// Links maps the key of every created entry to its new remote id.
	Links map[catalog.Category]map[string]uint64 `json:"links,omitempty" yaml:"links,omitempty"`

	// Fatal is set when execution stopped early because the credential was rejected.
	Fatal error `json:"-" yaml:"-"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every attempted operation succeeded.
func (r *Report) OK() bool {
	return r.Failed == 0 && r.Fatal == nil
}

// Summary returns a human-readable summary of the report.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%d created, %d updated, %d unchanged, %d conflicts, %d failed",
		r.Created, r.Updated, r.NoOps, r.Conflicts, r.Failed)
	if r.Declined > 0 {
		s += fmt.Sprintf(", %d declined", r.Declined)
	}
	if r.Cancelled > 0 {
		s += fmt.Sprintf(", %d cancelled", r.Cancelled)
	}
	return s
}

func (r *Report) count(o Outcome) {
	switch o.Status {
	case StatusCreated:
		r.Created++
		if o.Record != nil {
			if r.Links == nil {
				r.Links = make(map[catalog.Category]map[string]uint64)
			}
			if r.Links[o.Operation.Category] == nil {
				r.Links[o.Operation.Category] = make(map[string]uint64)
			}
			r.Links[o.Operation.Category][o.Operation.Key] = o.Record.ID
		}
	case StatusUpdated:
		r.Updated++
	case StatusNoOp:
		r.NoOps++
	case StatusConflict:
		r.Conflicts++
	case StatusDeclined:
		r.Declined++
	case StatusFailed:
		r.Failed++
	case StatusCancelled:
		r.Cancelled++
	}
}

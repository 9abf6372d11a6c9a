package reconciler

import (
	"fmt"
	"strings"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Kind tags an Operation. There is no delete kind.
type Kind string

const (
	// KindCreate publishes an unlinked entry as a new Record.
	KindCreate Kind = "create"
	// KindUpdate patches the changed fields of a linked or matched Record.
	KindUpdate Kind = "update"
	// KindNoOp means the Record already matches the entry.
	KindNoOp Kind = "noop"
	// KindConflict means the entry cannot be reconciled safely.
	KindConflict Kind = "conflict"
	// KindSkip is a create or update the operator declined to apply.
	KindSkip Kind = "skip"
)

// Match describes how an entry was paired with a Record.
type Match string

const (
	MatchNone Match = ""
	MatchID   Match = "id"
	MatchName Match = "name"
)

// Conflict reasons.
const (
	ReasonMissingRemote = "linked id no longer exists remotely"
	ReasonDuplicateID   = "duplicate linked id"
	ReasonAmbiguousName = "ambiguous name match"
	ReasonEmptyName     = "name is empty after sanitization"
	ReasonZeroPrice     = "price 0 cannot be written to an existing item"
	ReasonDeclined      = "declined"
)

// Change is one field difference of an update.
type Change struct {
	Field catalog.Field `json:"field" yaml:"field"`
	Old   string        `json:"old" yaml:"old"`
	New   string        `json:"new" yaml:"new"`
}

// Operation is the planned outcome for one declared entry.
type Operation struct {
	Kind     Kind                  `json:"kind" yaml:"kind"`
	Category catalog.Category      `json:"category" yaml:"category"`
	Key      string                `json:"key" yaml:"key"`
	Entry    catalog.DeclaredEntry `json:"-" yaml:"-"`
	Match    Match                 `json:"match,omitempty" yaml:"match,omitempty"`
	Record   *catalog.Record       `json:"record,omitempty" yaml:"record,omitempty"`
	Draft    *catalog.Draft        `json:"draft,omitempty" yaml:"draft,omitempty"`
	Patch    *catalog.Patch        `json:"patch,omitempty" yaml:"patch,omitempty"`
	Changes  []Change              `json:"changes,omitempty" yaml:"changes,omitempty"`
	Reason   string                `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Mutates reports whether executing the operation writes to the remote catalog.
func (o Operation) Mutates() bool {
	return o.Kind == KindCreate || o.Kind == KindUpdate
}

// RecordID returns the id of the Record the operation targets, or 0.
func (o Operation) RecordID() uint64 {
	if o.Record != nil {
		return o.Record.ID
	}
	return o.Entry.RemoteID()
}

// Err returns the operation's conflict as an error, or nil.
func (o Operation) Err() error {
	if o.Kind != KindConflict {
		return nil
	}
	return errors.NewConflictError(o.Category.String(), o.Key, o.Reason)
}

// String implements fmt.Stringer.
func (o Operation) String() string {
	switch o.Kind {
	case KindCreate:
		return fmt.Sprintf("create %s %q (%q, %d)", o.Category, o.Key, o.Draft.Name, o.Draft.Price)
	case KindUpdate:
		fields := make([]string, len(o.Changes))
		for i, c := range o.Changes {
			fields[i] = string(c.Field)
		}
		return fmt.Sprintf("update %s %q [%s]", o.Category, o.Key, strings.Join(fields, ", "))
	case KindConflict:
		return fmt.Sprintf("conflict %s %q: %s", o.Category, o.Key, o.Reason)
	default:
		return fmt.Sprintf("%s %s %q", o.Kind, o.Category, o.Key)
	}
}

// Plan is the ordered, side-effect free result of reconciliation: one
// Operation per declared entry, game passes first, each category in
// declared-file order.
type Plan struct {
	Operations []Operation      `json:"operations" yaml:"operations"`
	Unmanaged  []catalog.Record `json:"unmanaged,omitempty" yaml:"unmanaged,omitempty"`
}

// Summary counts operations by kind.
type Summary struct {
	Creates   int `json:"creates" yaml:"creates"`
	Updates   int `json:"updates" yaml:"updates"`
	NoOps     int `json:"noops" yaml:"noops"`
	Conflicts int `json:"conflicts" yaml:"conflicts"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Unmanaged int `json:"unmanaged" yaml:"unmanaged"`
}

// String implements fmt.Stringer.
func (s Summary) String() string {
	return fmt.Sprintf("%d to create, %d to update, %d unchanged, %d conflicts, %d unmanaged",
		s.Creates, s.Updates, s.NoOps, s.Conflicts, s.Unmanaged)
}

// Summary counts the plan's operations by kind.
func (p *Plan) Summary() Summary {
	var s Summary
	for _, op := range p.Operations {
		switch op.Kind {
		case KindCreate:
			s.Creates++
		case KindUpdate:
			s.Updates++
		case KindNoOp:
			s.NoOps++
		case KindConflict:
			s.Conflicts++
		case KindSkip:
			s.Skipped++
		}
	}
	s.Unmanaged = len(p.Unmanaged)
	return s
}

// HasChanges reports whether executing the plan would write anything.
func (p *Plan) HasChanges() bool {
	for _, op := range p.Operations {
		if op.Mutates() {
			return true
		}
	}
	return false
}

// Converged reports whether every non-conflict operation is a no-op.
func (p *Plan) Converged() bool {
	for _, op := range p.Operations {
		if op.Kind != KindNoOp && op.Kind != KindConflict {
			return false
		}
	}
	return true
}

// Mutations returns the create and update operations.
func (p *Plan) Mutations() []Operation {
	return p.filter(Operation.Mutates)
}

// Conflicts returns the conflict operations.
func (p *Plan) Conflicts() []Operation {
	return p.filter(func(op Operation) bool { return op.Kind == KindConflict })
}

// Errors returns every conflict as a ConflictError.
func (p *Plan) Errors() []error {
	var errs []error
	for _, op := range p.Conflicts() {
		errs = append(errs, op.Err())
	}
	return errs
}

// Decline returns a copy of the plan in which every mutating operation for
// which approve returns false becomes a KindSkip.
func (p *Plan) Decline(approve func(Operation) bool) *Plan {
	out := &Plan{
		Operations: make([]Operation, len(p.Operations)),
		Unmanaged:  p.Unmanaged,
	}
	for i, op := range p.Operations {
		if op.Mutates() && !approve(op) {
			op.Kind = KindSkip
			op.Reason = ReasonDeclined
		}
		out.Operations[i] = op
	}
	return out
}

func (p *Plan) filter(keep func(Operation) bool) []Operation {
	var out []Operation
	for _, op := range p.Operations {
		if keep(op) {
			out = append(out, op)
		}
	}
	return out
}

package output

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/rbxproducts/internal/journal"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/executor"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

var title = cases.Title(language.English)

func headers(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = title.String(strings.ReplaceAll(n, "_", " "))
	}
	return out
}

func idString(id uint64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatUint(id, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Changes renders the field changes of an operation on one line.
func Changes(op reconciler.Operation) string {
	switch op.Kind {
	case reconciler.KindCreate:
		if op.Draft != nil {
			return fmt.Sprintf("name: %q, price: %d", op.Draft.Name, op.Draft.Price)
		}
	case reconciler.KindUpdate, reconciler.KindSkip:
		parts := make([]string, 0, len(op.Changes))
		for _, c := range op.Changes {
			parts = append(parts, fmt.Sprintf("%s: %s -> %s", c.Field, c.Old, c.New))
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// PlanTable converts a plan to table form.
func PlanTable(p *reconciler.Plan) Data {
	rows := make([][]string, 0, len(p.Operations))
	for _, op := range p.Operations {
		rows = append(rows, []string{
			op.Category.Title(),
			op.Key,
			string(op.Kind),
			idString(op.RecordID()),
			orDash(string(op.Match)),
			orDash(Changes(op)),
			orDash(op.Reason),
		})
	}
	return Data{
		Headers:         headers("category", "key", "action", "id", "match", "changes", "reason"),
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// UnmanagedTable lists remote records that no declared entry claims.
func UnmanagedTable(records []catalog.Record) Data {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Category.Title(), idString(r.ID), r.Name, strconv.FormatInt(r.Price, 10)})
	}
	return Data{
		Headers:         headers("category", "id", "name", "price"),
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignRight},
	}
}

// ReportTable converts execution outcomes to table form.
func ReportTable(r *executor.Report) Data {
	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		id := o.Operation.RecordID()
		if o.Record != nil {
			id = o.Record.ID
		}
		errText := o.Error
		if o.Transient {
			errText += " (transient)"
		}
		rows = append(rows, []string{
			o.Operation.Category.Title(),
			o.Operation.Key,
			string(o.Status),
			idString(id),
			orDash(errText),
		})
	}
	return Data{
		Headers:         headers("category", "key", "status", "id", "error"),
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

// RunsTable converts journal history to table form.
func RunsTable(runs []journal.Run) Data {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "running"
		if r.Finished() {
			status = "ok"
			if r.Error != "" || r.Failed > 0 {
				status = "failed"
			}
		}
		if r.DryRun {
			status += " (dry run)"
		}
		rows = append(rows, []string{
			r.ID[:min(8, len(r.ID))],
			r.StartedAt.Local().Format(constants.TimeFormatHuman),
			r.Command,
			status,
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Conflicts),
			strconv.Itoa(r.Failed),
		})
	}
	return Data{
		Headers:         headers("run", "started", "command", "status", "created", "updated", "conflicts", "failed"),
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// EntriesTable converts the journaled outcomes of one run to table form.
func EntriesTable(entries []journal.Entry) Data {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		errText := e.Error
		if e.Transient {
			errText += " (transient)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.Seq, 10),
			e.Category,
			e.Key,
			e.Kind,
			e.Status,
			idString(e.RecordID),
			orDash(errText),
		})
	}
	return Data{
		Headers:         headers("seq", "category", "key", "kind", "status", "id", "error"),
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

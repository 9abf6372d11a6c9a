package output

import (
	"fmt"
	"io"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/agentstation/rbxproducts/pkg/executor"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

// SyncReport is the content of a markdown sync report.
type SyncReport struct {
	RunID      string
	File       string
	UniverseID uint64
	DryRun     bool
	At         time.Time
	Plan       *reconciler.Plan
	Report     *executor.Report // nil for dry runs
}

// WriteMarkdown renders r as a markdown document suitable for review.
func WriteMarkdown(w io.Writer, r SyncReport) error {
	doc := md.NewMarkdown(w)

	heading := "Catalog sync"
	if r.DryRun {
		heading += " (dry run)"
	}
	doc.H1(heading).LF()

	meta := []string{
		fmt.Sprintf("Declared file: `%s`", r.File),
		fmt.Sprintf("Universe: %d", r.UniverseID),
		fmt.Sprintf("Time: %s", r.At.UTC().Format(time.RFC3339)),
	}
	if r.RunID != "" {
		meta = append(meta, fmt.Sprintf("Run: `%s`", r.RunID))
	}
	doc.BulletList(meta...).LF()

	doc.H2("Summary").LF()
	doc.PlainText(r.Plan.Summary().String()).LF()
	if r.Report != nil {
		doc.PlainText(r.Report.Summary()).LF()
	}
	doc.LF()

	doc.H2("Plan").LF()
	writeTable(doc, PlanTable(r.Plan))

	if r.Report != nil {
		doc.H2("Results").LF()
		writeTable(doc, ReportTable(r.Report))
	}

	if len(r.Plan.Unmanaged) > 0 {
		doc.H2("Unmanaged records").LF()
		doc.PlainText("These records exist remotely but no declared entry claims them. They were left untouched.").LF().LF()
		writeTable(doc, UnmanagedTable(r.Plan.Unmanaged))
	}

	if conflicts := r.Plan.Conflicts(); len(conflicts) > 0 {
		doc.H2("Needs review").LF()
		items := make([]string, 0, len(conflicts))
		for _, op := range conflicts {
			items = append(items, fmt.Sprintf("%s `%s`: %s", op.Category.Title(), op.Key, op.Reason))
		}
		doc.BulletList(items...).LF()
	}

	return doc.Build()
}

func writeTable(doc *md.Markdown, data Data) {
	if len(data.Rows) == 0 {
		doc.PlainText("_None._").LF().LF()
		return
	}
	doc.Table(md.TableSet{Header: data.Headers, Rows: data.Rows}).LF()
}

// Package history implements the history command.
package history

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/rbxproducts/cmd/application"
	"github.com/agentstation/rbxproducts/internal/cmd/output"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Flags holds the history command flags.
type Flags struct {
	Limit int
}

// NewCommand creates the history command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "history [run-id]",
		GroupID: "management",
		Short:   "Show journaled runs",
		Args:    cobra.MaximumNArgs(1),
		Long: `History lists recent sync and download runs from the local journal.
Given a run id, or a unique prefix of one, it lists the operations that run
executed and how each ended.

The journal is kept only when --journal (or RBXPRODUCTS_JOURNAL) names a
database file.`,
		Example: `  rbxproducts history
  rbxproducts history --limit 5
  rbxproducts history 3f2a9c1e`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			return Execute(cmd.Context(), app, flags, runID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&flags.Limit, "limit", constants.HistoryLimit, "number of runs to show")

	return cmd
}

// Execute lists runs, or the operations of one run when runID is set.
func Execute(ctx context.Context, app application.Application, flags *Flags, runID string, stdout io.Writer) error {
	store, err := app.Journal()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.NewConfigError("journal", "no journal configured, set --journal to a database path", nil)
	}

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}

	if runID == "" {
		runs, err := store.History(ctx, flags.Limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 && (format == output.FormatTable || format == "") {
			fmt.Fprintln(stdout, "No runs recorded.")
			return nil
		}
		return output.Write(stdout, format, runs, output.RunsTable(runs))
	}

	id, err := store.ResolveRun(ctx, runID)
	if err != nil {
		return err
	}
	entries, err := store.Entries(ctx, id)
	if err != nil {
		return err
	}
	return output.Write(stdout, format, entries, output.EntriesTable(entries))
}

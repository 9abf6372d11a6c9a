// Package download implements the download command.
package download

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/cmd/application"
	"github.com/agentstation/rbxproducts/internal/cmd/output"
	"github.com/agentstation/rbxproducts/pkg/constants"
)

// Flags holds the download command flags.
type Flags struct {
	DryRun bool
}

// NewCommand creates the download command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "download",
		GroupID: "core",
		Short:   "Pull the remote catalog into the declared file",
		Args:    cobra.NoArgs,
		Long: `Download lists the game passes and developer products of the declared
universe and merges them into the declared file.

Records no entry claims are added under a key derived from their name.
Linked entries keep their local values unless --overwrite is set, in which
case the remote name, price and for-sale status replace them. Keys,
discounts and descriptions are never changed.`,
		Example: `  rbxproducts download
  rbxproducts download --overwrite
  rbxproducts download --dry-run --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()
			return Execute(ctx, app, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "show the merge result without writing the file")

	return cmd
}

// Execute runs a download and renders its counts.
func Execute(ctx context.Context, app application.Application, flags *Flags, stdout, stderr io.Writer) error {
	syncer, err := app.Syncer(rbxproducts.WithDryRun(flags.DryRun))
	if err != nil {
		return err
	}
	result, err := syncer.Download(ctx)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	if err := output.Write(stdout, format, result, table(result)); err != nil {
		return err
	}

	switch {
	case result.DryRun:
		fmt.Fprintf(stderr, "Dry run: %s was not written\n", result.File)
	case result.GeneratedFile != "":
		fmt.Fprintf(stderr, "Wrote %s and %s\n", result.File, result.GeneratedFile)
	default:
		fmt.Fprintf(stderr, "Wrote %s\n", result.File)
	}
	return nil
}

func table(r *rbxproducts.DownloadResult) output.Data {
	return output.Data{
		Headers: []string{"Added", "Adopted", "Updated", "Unchanged"},
		Rows: [][]string{{
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Adopted),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Unchanged),
		}},
		ColumnAlignment: []output.Align{output.AlignRight, output.AlignRight, output.AlignRight, output.AlignRight},
	}
}

// Package initialize implements the init command.
package initialize

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/cmd/application"
)

// Flags holds the init command flags.
type Flags struct {
	UniverseID uint64
}

// NewCommand creates the init command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "init",
		GroupID: "management",
		Short:   "Write a starter declared file",
		Args:    cobra.NoArgs,
		Long: `Init writes a commented starter declared file with one example game pass
and one example developer product. An existing file is never replaced.`,
		Example: `  rbxproducts init --universe 123456789
  rbxproducts init -f shop/products.toml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(app, flags, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().Uint64Var(&flags.UniverseID, "universe", 0, "universe id to write (default is a placeholder)")

	return cmd
}

// Execute writes the starter file to the declared file path.
func Execute(app application.Application, flags *Flags, stderr io.Writer) error {
	path := app.DeclaredFile()
	if err := rbxproducts.Init(path, flags.UniverseID); err != nil {
		return err
	}
	app.Logger().Debug().Str("path", path).Uint64("universe_id", flags.UniverseID).Msg("Starter file written")
	fmt.Fprintf(stderr, "Created %s\n", path)
	if flags.UniverseID == 0 {
		fmt.Fprintln(stderr, "Set metadata.universe-id before running sync.")
	}
	return nil
}

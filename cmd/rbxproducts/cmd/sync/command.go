// Package sync implements the sync and plan commands.
package sync

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/rbxproducts/cmd/application"
	"github.com/agentstation/rbxproducts/pkg/constants"
)

// Flags holds the flags of the sync and plan commands.
type Flags struct {
	DryRun      bool
	Concurrency int
	Report      string
	AllFields   bool
}

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Push the declared catalog to the experience",
		Args:    cobra.NoArgs,
		Long: `Sync reconciles the declared catalog file against the game passes and
developer products of its universe and applies the differences.

The command will:
• Load and validate the declared file
• List every remote game pass and developer product
• Plan a create, update or no-op for each declared entry
• Ask before each create or update (unless --yes or --overwrite)
• Apply the approved changes and record new ids in the declared file
• Regenerate the Luau data file when one is configured

Remote records that no entry claims are reported and left untouched.
Nothing is ever deleted. The command exits with status 2 when some
operations failed.`,
		Example: `  rbxproducts sync                     # Review and apply changes
  rbxproducts sync --dry-run           # Show the plan only
  rbxproducts sync -y                  # Apply without prompting
  rbxproducts sync --report sync.md    # Also write a markdown report`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ExecuteSync(cmd.Context(), app, flags, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addSyncFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "plan without writing anything")
	cmd.Flags().StringVar(&flags.Report, "report", "", "write a markdown report to this path")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0,
		fmt.Sprintf("number of catalog writes in flight, 1 to %d (default from config, else 1)", constants.MaxConcurrency))

	return cmd
}

// NewPlanCommand creates the plan command using app context.
func NewPlanCommand(app application.Application) *cobra.Command {
	flags := &Flags{DryRun: true}

	cmd := &cobra.Command{
		Use:     "plan",
		GroupID: "core",
		Short:   "Show what sync would change",
		Args:    cobra.NoArgs,
		Long: `Plan compares the declared catalog with the remote one and prints the
operations sync would perform, without asking or writing anything.`,
		Example: `  rbxproducts plan
  rbxproducts plan --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ExecutePlan(cmd.Context(), app, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	addSyncFlags(cmd, flags)
	return cmd
}

func addSyncFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().BoolVar(&flags.AllFields, "all-fields", false,
		"also compare for-sale status, regional pricing and descriptions")
}

package app

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/agentstation/rbxproducts/cmd/rbxproducts/cmd/download"
	"github.com/agentstation/rbxproducts/cmd/rbxproducts/cmd/history"
	"github.com/agentstation/rbxproducts/cmd/rbxproducts/cmd/initialize"
	"github.com/agentstation/rbxproducts/cmd/rbxproducts/cmd/sync"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// CreateSyncCommand creates the sync command with app dependencies.
func (a *App) CreateSyncCommand() *cobra.Command {
	return sync.NewCommand(a)
}

// CreatePlanCommand creates the plan command with app dependencies.
func (a *App) CreatePlanCommand() *cobra.Command {
	return sync.NewPlanCommand(a)
}

// CreateDownloadCommand creates the download command with app dependencies.
func (a *App) CreateDownloadCommand() *cobra.Command {
	return download.NewCommand(a)
}

// CreateInitCommand creates the init command with app dependencies.
func (a *App) CreateInitCommand() *cobra.Command {
	return initialize.NewCommand(a)
}

// CreateHistoryCommand creates the history command with app dependencies.
func (a *App) CreateHistoryCommand() *cobra.Command {
	return history.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("rbxproducts %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}

// CreateManCommand creates the man command.
func (a *App) CreateManCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "RBXPRODUCTS",
				Section: "1",
				Source:  "rbxproducts " + a.version,
				Manual:  "rbxproducts Manual",
			}
			return doc.GenMan(cmd.Root(), header, cmd.OutOrStdout())
		},
	}
}

// CreateDocsCommand creates the docs command.
func (a *App) CreateDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "docs <dir>",
		Short:  "Generate markdown reference pages",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			root.DisableAutoGenTag = true
			if err := os.MkdirAll(args[0], constants.DirPermissions); err != nil {
				return errors.WrapIO("create", args[0], err)
			}
			return doc.GenMarkdownTree(root, args[0])
		},
	}
}

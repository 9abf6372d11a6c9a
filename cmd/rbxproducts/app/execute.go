package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentstation/rbxproducts/internal/cmd/cmdutil"
)

// Execute runs the rbxproducts CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "rbxproducts",
		Short:   "Game pass and developer product catalog manager",
		Version: a.version,
		Long: `rbxproducts keeps the game passes and developer products of a Roblox
experience in a declarative TOML file.

sync pushes the file to the experience, download pulls the experience into
the file, and both can regenerate a Luau module with every id and price for
game code to require.

The Open Cloud API key is read from RBX_API_KEY (a .env file works too).`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.rbxproducts.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("format", "", "output format: table, json, yaml (default table on a terminal, json otherwise)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringP("file", "f", a.config.File, "declared catalog file")
	flags.BoolP("overwrite", "o", false, "sync without prompting; on download, remote values replace local ones")
	flags.BoolP("yes", "y", false, "apply changes without prompting")
	flags.String("journal", a.config.Journal, "SQLite file recording every run (disabled when empty)")

	rootCmd.SetVersionTemplate("rbxproducts {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. Flags given on the
// command line override the config file and environment.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if path := changedString(cmd, "config"); path != nil {
		config, err := LoadConfig(*path)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(Flags{
		Verbose:   changedBool(cmd, "verbose"),
		Quiet:     changedBool(cmd, "quiet"),
		NoColor:   changedBool(cmd, "no-color"),
		Format:    changedString(cmd, "format"),
		LogLevel:  changedString(cmd, "log-level"),
		File:      changedString(cmd, "file"),
		Overwrite: changedBool(cmd, "overwrite"),
		Yes:       changedBool(cmd, "yes"),
		Journal:   changedString(cmd, "journal"),
	})

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.CreateSyncCommand())
	rootCmd.AddCommand(a.CreatePlanCommand())
	rootCmd.AddCommand(a.CreateDownloadCommand())

	// Management commands
	rootCmd.AddCommand(a.CreateInitCommand())
	rootCmd.AddCommand(a.CreateHistoryCommand())

	// Utility commands
	rootCmd.AddCommand(a.CreateVersionCommand())
	rootCmd.AddCommand(a.CreateManCommand())
	rootCmd.AddCommand(a.CreateDocsCommand())
}

// ExitOnError prints err and exits with the code it carries: 2 when some
// catalog operations failed, 130 when the run was interrupted, 1 for
// everything else.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	code := cmdutil.ExitCode(err)
	msg := "Error: " + err.Error() + "\n"
	if code == cmdutil.ExitCanceled {
		msg = "Interrupted: " + err.Error() + "\n"
	}
	//nolint:errcheck // Ignoring write error since we're exiting anyway
	_, _ = os.Stderr.WriteString(msg)
	os.Exit(code)
}

// changedBool returns the flag value if it was set on the command line.
func changedBool(cmd *cobra.Command, name string) *bool {
	f := lookup(cmd, name)
	if f == nil {
		return nil
	}
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return &val
}

// changedString returns the flag value if it was set on the command line.
func changedString(cmd *cobra.Command, name string) *string {
	f := lookup(cmd, name)
	if f == nil {
		return nil
	}
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return &val
}

func lookup(cmd *cobra.Command, name string) *pflag.Flag {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	return f
}

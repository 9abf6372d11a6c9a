// Package application provides the application interface for rbxproducts commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            syncer, err := app.Syncer()
//	            if err != nil {
//	                return err
//	            }
//	            result, err := syncer.Sync(cmd.Context())
//	            // ... render result
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    SyncerFunc: func(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error) {
//	        return rbxproducts.New(rbxproducts.Static(remote.NewMemory()), opts...)
//	    },
//	}
//	cmd := sync.NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/internal/journal"
)

// Application provides the application interface that commands need.
// The App struct from cmd/rbxproducts/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Syncer returns a Syncer configured from the global flags and config
	// file. Extra options are applied last and win.
	Syncer(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error)

	// Journal returns the run journal, or nil when none is configured.
	Journal() (*journal.Store, error)

	// DeclaredFile returns the path of the declared catalog file.
	DeclaredFile() string

	// Overwrite reports whether --overwrite is set.
	Overwrite() bool

	// AutoApprove reports whether --yes is set.
	AutoApprove() bool

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}

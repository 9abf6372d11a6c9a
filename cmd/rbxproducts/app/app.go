// Package app provides the application context and dependency management
// for the rbxproducts CLI. It centralizes configuration, logging and the
// lifecycle of the resources commands share.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/cmd/application"
	"github.com/agentstation/rbxproducts/internal/cmd/output"
	"github.com/agentstation/rbxproducts/internal/journal"
	"github.com/agentstation/rbxproducts/internal/roblox"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

var _ application.Application = (*App)(nil)

// App represents the rbxproducts application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// connect opens the remote catalog; nil means the Roblox API.
	connect rbxproducts.Connector

	// Journal (lazy-initialized, singleton)
	mu      sync.Mutex
	journal *journal.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// DeclaredFile returns the path of the declared catalog file.
func (a *App) DeclaredFile() string {
	return a.config.File
}

// Overwrite reports whether remote values should replace local ones.
func (a *App) Overwrite() bool {
	return a.config.Overwrite
}

// AutoApprove reports whether changes are applied without prompting.
func (a *App) AutoApprove() bool {
	return a.config.Yes
}

// OutputFormat returns the configured format, or one detected from the
// terminal when none is set.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Format))
}

// Journal returns the run journal, opening it on first use. It returns nil
// when no journal path is configured.
func (a *App) Journal() (*journal.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.journal != nil || a.config.Journal == "" {
		return a.journal, nil
	}
	store, err := journal.Open(a.config.Journal)
	if err != nil {
		return nil, errors.WrapResource("open", "journal", a.config.Journal, err)
	}
	a.journal = store
	return store, nil
}

// Syncer returns a Syncer built from the configuration. opts are applied
// after the configured ones and win.
func (a *App) Syncer(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error) {
	base := []rbxproducts.Option{
		rbxproducts.WithFile(a.config.File),
		rbxproducts.WithOverwrite(a.config.Overwrite),
		rbxproducts.WithAutoApprove(a.config.Yes),
		rbxproducts.WithLogger(a.logger),
	}
	if a.config.Concurrency > 0 {
		base = append(base, rbxproducts.WithConcurrency(a.config.Concurrency))
	}

	store, err := a.Journal()
	if err != nil {
		return nil, err
	}
	if store != nil {
		base = append(base, rbxproducts.WithJournal(store))
	}

	connect := a.connect
	if connect == nil {
		connect = a.robloxConnector
	}
	return rbxproducts.New(connect, append(base, opts...)...)
}

// robloxConnector opens the Open Cloud catalog of a universe. Credentials
// are read from the environment at connect time.
func (a *App) robloxConnector(_ context.Context, universeID uint64) (remote.Source, error) {
	cfg, err := roblox.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "rbxproducts/" + a.version
	}
	client, err := roblox.New(cfg, universeID)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Shutdown releases the resources the application opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to close journal during shutdown")
		return err
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithConnector replaces the Roblox API (useful for testing).
func WithConnector(connect rbxproducts.Connector) Option {
	return func(a *App) error {
		a.connect = connect
		return nil
	}
}

// Package rbxproducts keeps a Roblox experience's game passes and developer
// products in step with a declared catalog file.
//
// A Syncer ties the pieces together: it loads the declared file, lists the
// remote catalog, plans the differences, asks for approval, applies the
// approved writes and records the new ids back into the declared file.
// Download goes the other way and folds remote records into the file.
package rbxproducts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/codegen"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/executor"
	"github.com/agentstation/rbxproducts/pkg/logging"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

// Connector opens the remote catalog of a universe. The universe is only
// known once the declared file has been read.
type Connector func(ctx context.Context, universeID uint64) (remote.Source, error)

// Static returns a Connector that always yields source.
func Static(source remote.Source) Connector {
	return func(context.Context, uint64) (remote.Source, error) {
		return source, nil
	}
}

// Journal records runs and their outcomes.
type Journal interface {
	StartRun(ctx context.Context, command, file string, universeID uint64, dryRun bool) (string, error)
	RecordOutcome(ctx context.Context, runID string, o executor.Outcome) error
	FinishRun(ctx context.Context, runID string, report *executor.Report, runErr error) error
}

// Syncer reconciles one declared file against its remote catalog.
type Syncer struct {
	connect Connector
	config  *config
}

// New creates a Syncer.
func New(connect Connector, opts ...Option) (*Syncer, error) {
	if connect == nil {
		return nil, &errors.ValidationError{Field: "connector", Message: "cannot be nil"}
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	return &Syncer{connect: connect, config: cfg}, nil
}

// File returns the path of the declared file.
func (s *Syncer) File() string {
	return s.config.file
}

// context installs the configured logger so every stage below logs with it.
func (s *Syncer) context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.config.logger != nil {
		ctx = logging.WithLogger(ctx, s.config.logger)
	}
	return ctx
}

func (s *Syncer) logger(ctx context.Context) *zerolog.Logger {
	return logging.FromContext(ctx)
}

// load reads the declared file and opens the remote catalog it names.
func (s *Syncer) load(ctx context.Context) (*catalog.DeclaredCatalog, remote.Source, error) {
	decl, err := declared.Load(s.config.file)
	if err != nil {
		return nil, nil, err
	}
	source, err := s.connect(ctx, decl.Metadata.UniverseID)
	if err != nil {
		return nil, nil, err
	}
	if source == nil {
		return nil, nil, &errors.ValidationError{Field: "source", Message: "connector returned no source"}
	}
	return decl, source, nil
}

// regenerate rewrites the generated file from decl and the current remote
// records. It returns the written path, or "" when none is configured.
func (s *Syncer) regenerate(ctx context.Context, decl *catalog.DeclaredCatalog, records []catalog.Record) (string, error) {
	path := decl.Metadata.GeneratedFile
	if path == "" {
		return "", nil
	}
	path = resolve(s.config.file, path)

	format, err := codegen.ParseFormat(decl.Metadata.GeneratedFormat)
	if err != nil {
		return "", err
	}
	data, err := codegen.Build(decl, records)
	if err != nil {
		return "", err
	}
	if err := codegen.WriteFile(path, data, format); err != nil {
		return "", err
	}
	s.logger(ctx).Info().
		Str("path", path).
		Str("format", string(format)).
		Int("entries", data.Len()).
		Msg("Generated file written")
	return path, nil
}

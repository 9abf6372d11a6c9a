// Package application provides test doubles for cmd/application.
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/internal/journal"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	SyncerFunc  func(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error)
	JournalFunc func() (*journal.Store, error)
	LoggerFunc  func() *zerolog.Logger

	File        string
	Format      string
	OverwriteOn bool
	YesOn       bool
}

// Syncer returns a syncer using the mock function or nil.
func (m *Mock) Syncer(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error) {
	if m.SyncerFunc != nil {
		return m.SyncerFunc(opts...)
	}
	return nil, nil
}

// Journal returns a journal using the mock function or nil.
func (m *Mock) Journal() (*journal.Store, error) {
	if m.JournalFunc != nil {
		return m.JournalFunc()
	}
	return nil, nil
}

// DeclaredFile returns File or the default path.
func (m *Mock) DeclaredFile() string {
	if m.File != "" {
		return m.File
	}
	return "products.toml"
}

// Overwrite returns OverwriteOn.
func (m *Mock) Overwrite() bool { return m.OverwriteOn }

// AutoApprove returns YesOn.
func (m *Mock) AutoApprove() bool { return m.YesOn }

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format or "table".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "table"
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "unknown".
func (m *Mock) BuiltBy() string { return "unknown" }

// Package remote defines the catalog source the executor writes to, along
// with an in-memory implementation used for tests and offline planning.
package remote

import (
	"context"

	"github.com/agentstation/rbxproducts/pkg/catalog"
)

// Source is the authoritative remote catalog.
type Source interface {
	// List returns every Record of every category.
	List(ctx context.Context) ([]catalog.Record, error)
	// Create publishes a new Record and returns it with its assigned id.
	Create(ctx context.Context, draft catalog.Draft) (catalog.Record, error)
	// Update applies patch to the Record current identifies and returns the
	// result. Fields not set in patch are left as they are remotely.
	Update(ctx context.Context, current catalog.Record, patch catalog.Patch) (catalog.Record, error)
}

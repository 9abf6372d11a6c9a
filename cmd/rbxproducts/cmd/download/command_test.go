package download

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/internal/cmd/application"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

const linked = `
[metadata]
universe-id = 3

[gamepasses.vip]
id = 10
name = "VIP"
active = true
price = 250
`

func newApp(t *testing.T, mem *remote.Memory) (*application.Mock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.toml")
	require.NoError(t, os.WriteFile(path, []byte(linked), 0o644))
	return &application.Mock{
		File: path,
		SyncerFunc: func(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error) {
			return rbxproducts.New(rbxproducts.Static(mem), append([]rbxproducts.Option{rbxproducts.WithFile(path)}, opts...)...)
		},
	}, path
}

func records() *remote.Memory {
	return remote.NewMemory(
		catalog.Record{ID: 10, Category: catalog.GamePass, Name: "VIP", Price: 250, ForSale: true},
		catalog.Record{ID: 20, Category: catalog.Product, Name: "Gem Pack", Price: 40, ForSale: true},
	)
}

func TestExecute(t *testing.T) {
	app, path := newApp(t, records())

	var stdout, stderr bytes.Buffer
	require.NoError(t, Execute(context.Background(), app, &Flags{}, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "Added")
	assert.Contains(t, stderr.String(), "Wrote "+path)

	decl, err := declared.Load(path)
	require.NoError(t, err)
	gems, ok := decl.Find(catalog.Product, "gem-pack")
	require.True(t, ok)
	assert.Equal(t, uint64(20), gems.RemoteID())
	assert.Equal(t, 2, decl.Len())
}

func TestExecuteDryRun(t *testing.T) {
	app, path := newApp(t, records())
	app.Format = "yaml"
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.NoError(t, Execute(context.Background(), app, &Flags{DryRun: true}, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "added: 1")
	assert.Contains(t, stderr.String(), "Dry run")
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExecuteMissingFile(t *testing.T) {
	app, path := newApp(t, records())
	require.NoError(t, os.Remove(path))

	err := Execute(context.Background(), app, &Flags{}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

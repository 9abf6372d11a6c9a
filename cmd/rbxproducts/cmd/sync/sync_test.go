package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/internal/cmd/application"
	"github.com/agentstation/rbxproducts/internal/cmd/cmdutil"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

const products = `
[metadata]
universe-id = 7

[gamepasses.vip]
name = "VIP"
active = true
price = 250

[products.coins]
name = "100 Coins"
active = true
price = 25
`

func setup(t *testing.T, mem *remote.Memory) (*application.Mock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.toml")
	require.NoError(t, os.WriteFile(path, []byte(products), 0o644))
	app := &application.Mock{
		File:   path,
		Format: "json",
		SyncerFunc: func(opts ...rbxproducts.Option) (*rbxproducts.Syncer, error) {
			return rbxproducts.New(rbxproducts.Static(mem), append([]rbxproducts.Option{rbxproducts.WithFile(path)}, opts...)...)
		},
	}
	return app, path
}

func TestExecuteSyncWithYes(t *testing.T) {
	mem := remote.NewMemory()
	app, path := setup(t, mem)
	app.YesOn = true

	var stdout, stderr bytes.Buffer
	err := ExecuteSync(context.Background(), app, &Flags{Concurrency: 2}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)

	var result rbxproducts.SyncResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, uint64(7), result.UniverseID)
	assert.Equal(t, 2, result.Report.Created)
	assert.Equal(t, 2, result.Linked)
	assert.Contains(t, stderr.String(), "2 created")
	assert.Len(t, mem.Calls(), 2)

	decl, err := declared.Load(path)
	require.NoError(t, err)
	vip, ok := decl.Find(catalog.GamePass, "vip")
	require.True(t, ok)
	assert.NotZero(t, vip.RemoteID())
}

func TestExecuteSyncPrompts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		calls int
	}{
		{"approve all", "a\n", 2},
		{"approve first only", "y\nn\n", 1},
		{"quit", "q\n", 0},
		{"eof declines", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := remote.NewMemory()
			app, _ := setup(t, mem)

			var stdout, stderr bytes.Buffer
			err := ExecuteSync(context.Background(), app, &Flags{Concurrency: 1}, strings.NewReader(tt.input), &stdout, &stderr)
			require.NoError(t, err)
			assert.Len(t, mem.Calls(), tt.calls)
			assert.Contains(t, stderr.String(), "Apply this change?")
		})
	}
}

func TestExecuteSyncDryRun(t *testing.T) {
	mem := remote.NewMemory()
	app, path := setup(t, mem)
	report := filepath.Join(t.TempDir(), "plan.md")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	err = ExecuteSync(context.Background(), app, &Flags{DryRun: true, Concurrency: 1, Report: report}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)

	assert.Empty(t, mem.Calls())
	assert.Contains(t, stderr.String(), "Dry run: 2 to create")
	assert.NotContains(t, stderr.String(), "Apply this change?")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	doc, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "# Catalog sync (dry run)")
}

func TestExecuteSyncPartialFailure(t *testing.T) {
	mem := remote.NewMemory()
	mem.Fail = func(_ string, category catalog.Category, _ string) error {
		if category == catalog.Product {
			return errors.NewAPIError("roblox", 500, "internal error")
		}
		return nil
	}
	app, _ := setup(t, mem)
	app.Format = "table"
	app.YesOn = true

	var stdout, stderr bytes.Buffer
	err := ExecuteSync(context.Background(), app, &Flags{Concurrency: 1}, strings.NewReader(""), &stdout, &stderr)
	require.Error(t, err)
	assert.Equal(t, cmdutil.ExitPartial, cmdutil.ExitCode(err))
	assert.Contains(t, stdout.String(), "failed")
}

func TestExecuteSyncInvalidFormat(t *testing.T) {
	app, _ := setup(t, remote.NewMemory())
	app.Format = "xml"
	app.YesOn = true

	err := ExecuteSync(context.Background(), app, &Flags{Concurrency: 1}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid format")
}

func TestExecutePlan(t *testing.T) {
	legacy := catalog.Record{ID: 90, Category: catalog.GamePass, Name: "Old Pass", Price: 10, ForSale: true}
	mem := remote.NewMemory(legacy)
	app, _ := setup(t, mem)
	app.Format = "table"

	var stdout, stderr bytes.Buffer
	err := ExecutePlan(context.Background(), app, &Flags{}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "vip")
	assert.Contains(t, out, "coins")
	assert.Contains(t, out, "Unmanaged remote records:")
	assert.Contains(t, out, "Old Pass")
	assert.Contains(t, stderr.String(), "2 to create")
	assert.Empty(t, mem.Calls())
}

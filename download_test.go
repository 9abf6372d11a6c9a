package rbxproducts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

const linkedEntries = `
[metadata]
universe-id = 42

[gamepasses.vip-pass]
id = 10
name = "VIP"
description = "Local description"
active = true
discount = 20
price = 250

[gamepasses.radio]
id = 11
name = "Radio"
prefix = "[HOT]"
active = true
price = 50

[products.coins]
name = "100 Coins"
active = true
price = 25
`

func remoteCatalog() *remote.Memory {
	return remote.NewMemory(
		catalog.Record{ID: 10, Category: catalog.GamePass, Name: "💲20% OFF💲 VIP Plus", Price: 200, Description: "Remote", ForSale: true},
		catalog.Record{ID: 11, Category: catalog.GamePass, Name: "Boombox", Price: 75, ForSale: false, RegionalPricing: true},
		catalog.Record{ID: 12, Category: catalog.GamePass, Name: "Radio", Price: 30, Description: "####", ForSale: true},
		catalog.Record{ID: 20, Category: catalog.Product, Name: "100 Coins", Price: 25, ForSale: true},
		catalog.Record{ID: 21, Category: catalog.Product, Name: "[LIMITED] Gem Pack!", Price: 99, Description: "Shiny", ForSale: true},
	)
}

func u64(v uint64) *uint64 { return &v }
func str(s string) *string  { return &s }

func TestDownloadKeepsLocalValues(t *testing.T) {
	path := writeDeclared(t, linkedEntries)
	s := newSyncer(t, remoteCatalog(), WithFile(path))

	result, err := s.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 1, result.Adopted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 3, result.Unchanged)

	decl, err := declared.Load(path)
	require.NoError(t, err)

	wantPasses := []catalog.DeclaredEntry{
		{Key: "vip-pass", ID: u64(10), Name: "VIP", Description: str("Local description"), Active: true, Discount: 20, BasePrice: 250, Category: catalog.GamePass},
		{Key: "radio", ID: u64(11), Name: "Radio", Prefix: str("[HOT]"), Active: true, BasePrice: 50, Category: catalog.GamePass},
		{Key: "radio-12", ID: u64(12), Name: "Radio", Active: true, BasePrice: 30, Category: catalog.GamePass},
	}
	if diff := cmp.Diff(wantPasses, decl.GamePasses); diff != "" {
		t.Errorf("game passes mismatch (-want +got):\n%s", diff)
	}

	wantProducts := []catalog.DeclaredEntry{
		{Key: "coins", ID: u64(20), Name: "100 Coins", Active: true, BasePrice: 25, Category: catalog.Product},
		{Key: "gem-pack", ID: u64(21), Name: "Gem Pack!", Description: str("Shiny"), Active: true, BasePrice: 99, Category: catalog.Product},
	}
	if diff := cmp.Diff(wantProducts, decl.Products); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadOverwrite(t *testing.T) {
	path := writeDeclared(t, linkedEntries)
	s := newSyncer(t, remoteCatalog(), WithFile(path), WithOverwrite(true))

	result, err := s.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)

	decl, err := declared.Load(path)
	require.NoError(t, err)

	vip, ok := decl.Find(catalog.GamePass, "vip-pass")
	require.True(t, ok)
	assert.Equal(t, "VIP Plus", vip.Name)
	assert.Equal(t, int64(250), vip.BasePrice, "discounted entries keep their base price")
	assert.Equal(t, 20, vip.Discount)
	require.NotNil(t, vip.Description)
	assert.Equal(t, "Local description", *vip.Description)

	radio, ok := decl.Find(catalog.GamePass, "radio")
	require.True(t, ok)
	assert.Equal(t, "Boombox", radio.Name)
	assert.Nil(t, radio.Prefix, "the remote name replaces the local prefix")
	assert.Equal(t, int64(75), radio.BasePrice)
	assert.False(t, radio.Active)
	assert.True(t, radio.RegionalPricing)
}

func TestDownloadDryRun(t *testing.T) {
	path := writeDeclared(t, linkedEntries)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s := newSyncer(t, remoteCatalog(), WithFile(path), WithDryRun(true))
	result, err := s.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Len(t, result.Catalog.Products, 2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDownloadRegeneratesFile(t *testing.T) {
	path := writeDeclared(t, linkedEntries+"\n")
	decl, err := declared.Load(path)
	require.NoError(t, err)
	decl.Metadata.GeneratedFile = "out/Products.lua"
	decl.Metadata.GeneratedFormat = declared.FormatLua
	require.NoError(t, declared.Save(path, decl))

	s := newSyncer(t, remoteCatalog(), WithFile(path))
	result, err := s.Download(context.Background())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "out", "Products.lua"), result.GeneratedFile)

	generated, err := os.ReadFile(result.GeneratedFile)
	require.NoError(t, err)
	assert.Contains(t, string(generated), `["💲20% OFF💲 VIP"] = { id = 10, price = 200 },`)
	assert.Contains(t, string(generated), `["Gem Pack!"] = { id = 21, price = 99 },`)
}

func TestDownloadCanceled(t *testing.T) {
	path := writeDeclared(t, linkedEntries)
	s := newSyncer(t, remote.NewMemory(), WithFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Download(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUniqueKey(t *testing.T) {
	taken := map[string]bool{"vip": true, "vip-5": true}
	tests := []struct {
		key  string
		id   uint64
		want string
	}{
		{"coins", 1, "coins"},
		{"vip", 7, "vip-7"},
		{"vip", 5, "vip-5-2"},
		{"", 9, "item-9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, uniqueKey(taken, tt.key, tt.id), tt.key)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.toml")
	require.NoError(t, Init(path, 777))

	decl, err := declared.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), decl.Metadata.UniverseID)
	assert.Equal(t, 2, decl.Len())

	err = Init(path, 777)
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
}

package declared

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

type entryOut struct {
	ID              *uint64 `toml:"id,omitempty"`
	Name            string  `toml:"name"`
	Prefix          *string `toml:"prefix,omitempty"`
	Description     *string `toml:"description,omitempty"`
	Active          bool    `toml:"active"`
	Discount        int     `toml:"discount,omitempty"`
	Price           int64   `toml:"price"`
	RegionalPricing bool    `toml:"regional-pricing,omitempty"`
}

type metadataOut struct {
	UniverseID          uint64   `toml:"universe-id"`
	LuauFile            string   `toml:"luau-file,omitempty"`
	LuauFormat          string   `toml:"luau-format,omitempty"`
	DiscountPrefix      string   `toml:"discount-prefix,omitempty"`
	NameFilters         []string `toml:"name-filters,omitempty"`
	GamePassNameFilters []string `toml:"gamepass-name-filters,omitempty"`
	ProductNameFilters  []string `toml:"product-name-filters,omitempty"`
}

var bareKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Marshal renders a declared catalog. Entries are written in slice order,
// one table per entry, so Parse(Marshal(c)) reproduces c.
func Marshal(c *catalog.DeclaredCatalog) ([]byte, error) {
	var buf bytes.Buffer

	meta, err := toml.Marshal(metadataOut{
		UniverseID:          c.Metadata.UniverseID,
		LuauFile:            c.Metadata.GeneratedFile,
		LuauFormat:          c.Metadata.GeneratedFormat,
		DiscountPrefix:      c.Metadata.DiscountPrefix,
		NameFilters:         c.Metadata.NameFilters,
		GamePassNameFilters: c.Metadata.GamePassNameFilters,
		ProductNameFilters:  c.Metadata.ProductNameFilters,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	buf.WriteString("[metadata]\n")
	buf.Write(meta)

	for _, cat := range catalog.Categories() {
		entries := c.Entries(cat)
		if len(entries) == 0 {
			fmt.Fprintf(&buf, "\n[%s]\n", cat.Section())
			continue
		}
		for _, e := range entries {
			body, err := toml.Marshal(entryOut{
				ID:              e.ID,
				Name:            e.Name,
				Prefix:          e.Prefix,
				Description:     e.Description,
				Active:          e.Active,
				Discount:        e.Discount,
				Price:           e.BasePrice,
				RegionalPricing: e.RegionalPricing,
			})
			if err != nil {
				return nil, fmt.Errorf("encoding %s.%s: %w", cat.Section(), e.Key, err)
			}
			fmt.Fprintf(&buf, "\n[%s.%s]\n", cat.Section(), quoteKey(e.Key))
			buf.Write(body)
		}
	}
	return buf.Bytes(), nil
}

// Save writes the catalog to path, replacing the file atomically.
func Save(path string, c *catalog.DeclaredCatalog) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Chmod(constants.FilePermissions); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// quoteKey returns key as a TOML bare key when possible, else as a basic string.
func quoteKey(key string) string {
	if bareKey.MatchString(key) {
		return key
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range key {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Starter returns the catalog written by init: one example of each category.
func Starter(universeID uint64) *catalog.DeclaredCatalog {
	if universeID == 0 {
		universeID = constants.StarterUniverseID
	}
	return &catalog.DeclaredCatalog{
		Metadata: catalog.Metadata{
			UniverseID:     universeID,
			GeneratedFile:  constants.DefaultGeneratedFile,
			DiscountPrefix: constants.DefaultDiscountPrefix,
		},
		GamePasses: []catalog.DeclaredEntry{
			{Key: "vip", Name: "VIP", Active: true, BasePrice: 250, Category: catalog.GamePass},
		},
		Products: []catalog.DeclaredEntry{
			{Key: "100-coins", Name: "100 Coins", Active: true, BasePrice: 25, Discount: 10, Category: catalog.Product},
		},
	}
}

// Package declared loads and saves the declared catalog file (products.toml).
//
// The file has three sections:
//
//	[metadata]
//	universe-id = 1234
//	luau-file = "products.luau"
//	discount-prefix = "💲{}% OFF💲"
//
//	[gamepasses.vip]
//	id = 123
//	name = "VIP"
//	prefix = "⭐"
//	active = true
//	price = 100
//
//	[products.coins]
//	name = "100 Coins"
//	active = true
//	discount = 10
//	price = 25
//
// Everything Load returns has been validated, so later stages can trust it.
package declared

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

const format = "toml"

// Generated file formats accepted by luau-format.
const (
	FormatLuau = "luau"
	FormatLua  = "lua"
)

type rawFile struct {
	Metadata   *rawMetadata        `toml:"metadata"`
	GamePasses map[string]rawEntry `toml:"gamepasses"`
	Products   map[string]rawEntry `toml:"products"`
}

type rawMetadata struct {
	UniverseID          *int64   `toml:"universe-id"`
	LuauFile            string   `toml:"luau-file,omitempty"`
	LuauFormat          string   `toml:"luau-format,omitempty"`
	DiscountPrefix      *string  `toml:"discount-prefix,omitempty"`
	NameFilters         []string `toml:"name-filters,omitempty"`
	GamePassNameFilters []string `toml:"gamepass-name-filters,omitempty"`
	ProductNameFilters  []string `toml:"product-name-filters,omitempty"`
}

type rawEntry struct {
	ID              *int64  `toml:"id"`
	Name            *string `toml:"name"`
	Prefix          *string `toml:"prefix"`
	Description     *string `toml:"description"`
	Active          *bool   `toml:"active"`
	Discount        *int64  `toml:"discount"`
	Price           *int64  `toml:"price"`
	RegionalPricing *bool   `toml:"regional-pricing"`
}

// Load reads and validates the declared file at path.
func Load(path string) (*catalog.DeclaredCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a declared file. file is used in error messages.
func Parse(data []byte, file string) (*catalog.DeclaredCatalog, error) {
	var raw rawFile
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, decodeError(file, err)
	}

	order, err := entryOrder(data)
	if err != nil {
		return nil, decodeError(file, err)
	}

	meta, err := convertMetadata(file, raw.Metadata)
	if err != nil {
		return nil, err
	}

	out := &catalog.DeclaredCatalog{Metadata: meta}
	for _, cat := range catalog.Categories() {
		rawEntries := raw.GamePasses
		if cat == catalog.Product {
			rawEntries = raw.Products
		}

		var entries []catalog.DeclaredEntry
		for _, key := range order.keys(cat, rawEntries) {
			entry, err := convertEntry(file, cat, key, rawEntries[key])
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		out.SetEntries(cat, entries)
	}
	return out, nil
}

func convertMetadata(file string, raw *rawMetadata) (catalog.Metadata, error) {
	if raw == nil {
		return catalog.Metadata{}, fieldError(file, "metadata", "missing [metadata] section")
	}
	if raw.UniverseID == nil {
		return catalog.Metadata{}, fieldError(file, "metadata.universe-id", "is required")
	}
	if *raw.UniverseID <= 0 {
		return catalog.Metadata{}, fieldError(file, "metadata.universe-id", fmt.Sprintf("must be positive, got %d", *raw.UniverseID))
	}

	meta := catalog.Metadata{
		UniverseID:          uint64(*raw.UniverseID),
		GeneratedFile:       strings.TrimSpace(raw.LuauFile),
		GeneratedFormat:     strings.ToLower(strings.TrimSpace(raw.LuauFormat)),
		NameFilters:         nonEmpty(raw.NameFilters),
		GamePassNameFilters: nonEmpty(raw.GamePassNameFilters),
		ProductNameFilters:  nonEmpty(raw.ProductNameFilters),
	}
	if raw.DiscountPrefix != nil {
		meta.DiscountPrefix = strings.TrimSpace(*raw.DiscountPrefix)
		if meta.DiscountPrefix == "" {
			return catalog.Metadata{}, fieldError(file, "metadata.discount-prefix", "must not be empty")
		}
	}

	switch meta.GeneratedFormat {
	case "", FormatLuau, FormatLua:
	default:
		return catalog.Metadata{}, fieldError(file, "metadata.luau-format", fmt.Sprintf("unknown format %q, want %q or %q", meta.GeneratedFormat, FormatLuau, FormatLua))
	}

	if _, err := catalog.NewNamer(meta); err != nil {
		return catalog.Metadata{}, &errors.ParseError{Format: format, File: file, Key: "metadata", Message: err.Error(), Err: err}
	}
	return meta, nil
}

func convertEntry(file string, cat catalog.Category, key string, raw rawEntry) (catalog.DeclaredEntry, error) {
	path := cat.Section() + "." + key
	entry := catalog.DeclaredEntry{Key: key, Category: cat}

	if strings.TrimSpace(key) == "" {
		return entry, fieldError(file, path, "entry key must not be blank")
	}
	if raw.Name == nil || strings.TrimSpace(*raw.Name) == "" {
		return entry, fieldError(file, path+".name", "is required")
	}
	if raw.Active == nil {
		return entry, fieldError(file, path+".active", "is required")
	}
	if raw.Price == nil {
		return entry, fieldError(file, path+".price", "is required")
	}
	if *raw.Price < 0 {
		return entry, fieldError(file, path+".price", fmt.Sprintf("must not be negative, got %d", *raw.Price))
	}

	entry.Name = *raw.Name
	entry.Active = *raw.Active
	entry.BasePrice = *raw.Price
	entry.Description = raw.Description
	if raw.Prefix != nil {
		if prefix := strings.TrimSpace(*raw.Prefix); prefix != "" {
			entry.Prefix = &prefix
		}
	}

	if raw.ID != nil {
		if *raw.ID <= 0 {
			return entry, fieldError(file, path+".id", fmt.Sprintf("must be positive, got %d", *raw.ID))
		}
		id := uint64(*raw.ID)
		entry.ID = &id
	}
	if raw.Discount != nil {
		if *raw.Discount < 0 || *raw.Discount > 100 {
			return entry, fieldError(file, path+".discount", fmt.Sprintf("must be between 0 and 100, got %d", *raw.Discount))
		}
		entry.Discount = int(*raw.Discount)
	}
	if raw.RegionalPricing != nil {
		entry.RegionalPricing = *raw.RegionalPricing
	}
	return entry, nil
}

func fieldError(file, key, message string) *errors.ParseError {
	perr := errors.NewParseError(format, file, message, nil)
	perr.Key = key
	return perr
}

func decodeError(file string, err error) error {
	perr := errors.NewParseError(format, file, err.Error(), err)

	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		perr.Line, perr.Column = derr.Position()
		perr.Message = derr.Error()
		if k := derr.Key(); len(k) > 0 {
			perr.Key = strings.Join(k, ".")
		}
	}
	return perr
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

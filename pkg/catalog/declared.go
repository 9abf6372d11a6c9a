package catalog

import "github.com/agentstation/rbxproducts/pkg/constants"

// DeclaredEntry is local intent for one catalog item. Key is the table key
// chosen by a human in the declared file; it is not the remote id.
type DeclaredEntry struct {
	Key             string   `json:"key" yaml:"key"`
	ID              *uint64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string   `json:"name" yaml:"name"`
	Prefix          *string  `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	BasePrice       int64    `json:"price" yaml:"price"`
	Active          bool     `json:"active" yaml:"active"`
	Discount        int      `json:"discount,omitempty" yaml:"discount,omitempty"`
	RegionalPricing bool     `json:"regional_pricing,omitempty" yaml:"regional_pricing,omitempty"`
	Description     *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Category        Category `json:"category" yaml:"category"`
}

// Linked reports whether the entry is bound to a remote Record.
func (e DeclaredEntry) Linked() bool {
	return e.ID != nil
}

// RemoteID returns the linked id, or 0 when unlinked.
func (e DeclaredEntry) RemoteID() uint64 {
	if e.ID == nil {
		return 0
	}
	return *e.ID
}

// Discounted reports whether the discount applies.
func (e DeclaredEntry) Discounted() bool {
	return e.Active && e.Discount > 0
}

// EffectivePrice is the price written to the remote catalog: the base price
// reduced by the discount and rounded down to a whole Robux.
func (e DeclaredEntry) EffectivePrice() int64 {
	if !e.Discounted() || e.BasePrice <= 0 {
		return max(e.BasePrice, 0)
	}
	discount := int64(min(e.Discount, 100))
	return e.BasePrice * (100 - discount) / 100
}

// Link returns a copy of e bound to id.
func (e DeclaredEntry) Link(id uint64) DeclaredEntry {
	e.ID = &id
	return e
}

// Metadata is the [metadata] section of the declared file.
type Metadata struct {
	UniverseID          uint64   `json:"universe_id" yaml:"universe_id"`
	GeneratedFile       string   `json:"luau_file,omitempty" yaml:"luau_file,omitempty"`
	GeneratedFormat     string   `json:"luau_format,omitempty" yaml:"luau_format,omitempty"`
	DiscountPrefix      string   `json:"discount_prefix,omitempty" yaml:"discount_prefix,omitempty"`
	NameFilters         []string `json:"name_filters,omitempty" yaml:"name_filters,omitempty"`
	GamePassNameFilters []string `json:"gamepass_name_filters,omitempty" yaml:"gamepass_name_filters,omitempty"`
	ProductNameFilters  []string `json:"product_name_filters,omitempty" yaml:"product_name_filters,omitempty"`
}

// PrefixTemplate returns the configured discount prefix or the default one.
func (m Metadata) PrefixTemplate() string {
	if m.DiscountPrefix == "" {
		return constants.DefaultDiscountPrefix
	}
	return m.DiscountPrefix
}

// Filters returns the filter patterns configured for a category, or nil
// when the built-in filters apply.
func (m Metadata) Filters(c Category) []string {
	switch {
	case c == GamePass && len(m.GamePassNameFilters) > 0:
		return m.GamePassNameFilters
	case c == Product && len(m.ProductNameFilters) > 0:
		return m.ProductNameFilters
	}
	return m.NameFilters
}

// DeclaredCatalog is the whole declared file. Entry slices keep the order
// in which entries appear in the file.
type DeclaredCatalog struct {
	Metadata   Metadata        `json:"metadata" yaml:"metadata"`
	GamePasses []DeclaredEntry `json:"gamepasses" yaml:"gamepasses"`
	Products   []DeclaredEntry `json:"products" yaml:"products"`
}

// Entries returns the entries of one category.
func (c *DeclaredCatalog) Entries(cat Category) []DeclaredEntry {
	switch cat {
	case GamePass:
		return c.GamePasses
	case Product:
		return c.Products
	}
	return nil
}

// SetEntries replaces the entries of one category.
func (c *DeclaredCatalog) SetEntries(cat Category, entries []DeclaredEntry) {
	switch cat {
	case GamePass:
		c.GamePasses = entries
	case Product:
		c.Products = entries
	}
}

// Len returns the number of declared entries across categories.
func (c *DeclaredCatalog) Len() int {
	return len(c.GamePasses) + len(c.Products)
}

// Find returns the entry with the given key in a category.
func (c *DeclaredCatalog) Find(cat Category, key string) (DeclaredEntry, bool) {
	for _, e := range c.Entries(cat) {
		if e.Key == key {
			return e, true
		}
	}
	return DeclaredEntry{}, false
}

// LinkAll binds freshly created remote ids to their entries. It returns the
// number of entries that changed.
func (c *DeclaredCatalog) LinkAll(cat Category, links map[string]uint64) int {
	entries := c.Entries(cat)
	changed := 0
	for i, e := range entries {
		id, ok := links[e.Key]
		if !ok || (e.ID != nil && *e.ID == id) {
			continue
		}
		entries[i] = e.Link(id)
		changed++
	}
	return changed
}

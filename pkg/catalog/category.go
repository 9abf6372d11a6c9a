// Package catalog defines the data model shared by every rbxproducts
// component: remote Records, declared entries, and the derived effective
// name and price rules that decide what gets written to the remote catalog.
package catalog

import (
	"fmt"
	"strings"
)

// Category distinguishes game passes from developer products. Records of
// different categories are never compared with each other.
type Category string

const (
	// GamePass is a one-time purchase tied to a player.
	GamePass Category = "gamepass"
	// Product is a developer product that can be bought repeatedly.
	Product Category = "product"
)

// Categories returns every category in processing order.
func Categories() []Category {
	return []Category{GamePass, Product}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Title returns a display label for the category.
func (c Category) Title() string {
	switch c {
	case GamePass:
		return "Game pass"
	case Product:
		return "Product"
	default:
		return string(c)
	}
}

// Section returns the declared-file table holding entries of this category.
func (c Category) Section() string {
	switch c {
	case GamePass:
		return "gamepasses"
	case Product:
		return "products"
	default:
		return string(c)
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == GamePass || c == Product
}

// ParseCategory parses a category name, accepting singular and plural forms.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gamepass", "gamepasses", "game-pass", "game-passes", "pass", "passes":
		return GamePass, nil
	case "product", "products", "devproduct", "developer-product", "developer-products":
		return Product, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

package catalog_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rbxproducts/pkg/catalog"
)

func TestSanitize(t *testing.T) {
	namer := catalog.DefaultNamer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Booster", want: "Booster"},
		{name: "collapses whitespace", in: "  Super   Booster \t", want: "Super Booster"},
		{name: "strips default prefix", in: "💲10% OFF💲 Booster", want: "Booster"},
		{name: "strips brackets", in: "[NEW] VIP [x2]", want: "VIP"},
		{name: "strips emoji", in: "🔥 Mega Pack 🔥", want: "Mega Pack"},
		{name: "keeps punctuation", in: "Wow! Really? Yes, v1.2-beta", want: "Wow! Really? Yes, v1.2-beta"},
		{name: "empty", in: "", want: ""},
		{name: "only filtered", in: "🔥🔥", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := namer.Sanitize(catalog.GamePass, tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	custom, err := catalog.NewNamer(catalog.Metadata{
		NameFilters:        []string{`ab`, `\s-\s`},
		ProductNameFilters: []string{`[0-9]+`},
	})
	require.NoError(t, err)

	inputs := []string{
		"", " ", "Booster", "💲10% OFF💲 Booster", "[a] [b] c", "aabb", "a - - b",
		"x ab y", "\t\nmulti\n\nline\t", "1 2 3 go", "日本語 name", "##", "a-b - c",
		"[unclosed", "💲💲 OFF💲", "!!!???",
	}

	// Each removal of "a b" exposes another match, so this input needs one
	// pass per character pair before it settles.
	chain, err := catalog.NewNamer(catalog.Metadata{NameFilters: []string{"a b"}})
	require.NoError(t, err)
	deep := strings.Repeat("a", 40) + " " + strings.Repeat("b", 40)
	inputs = append(inputs, "aaaaaaaaaaaa bbbbbbbbbbbb", deep, deep+" tail")
	assert.Equal(t, "", chain.Sanitize(catalog.GamePass, "aaaaaaaaaaaa bbbbbbbbbbbb"))
	assert.Equal(t, "tail", chain.Sanitize(catalog.GamePass, deep+" tail"))

	namers := map[string]*catalog.Namer{"default": catalog.DefaultNamer(), "custom": custom, "chain": chain}
	for label, namer := range namers {
		for _, cat := range catalog.Categories() {
			for _, in := range inputs {
				once := namer.Sanitize(cat, in)
				twice := namer.Sanitize(cat, once)
				assert.Equal(t, once, twice, "%s/%s: %q", label, cat, in)
			}
		}
	}
}

func TestCategorySpecificFilters(t *testing.T) {
	namer, err := catalog.NewNamer(catalog.Metadata{
		GamePassNameFilters: []string{`(?i)pass`},
	})
	require.NoError(t, err)

	assert.Equal(t, "VIP", namer.Sanitize(catalog.GamePass, "VIP Pass"))
	assert.Equal(t, "VIP Pass", namer.Sanitize(catalog.Product, "VIP Pass"))
}

func TestNewNamerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		meta catalog.Metadata
		want string
	}{
		{name: "no placeholder", meta: catalog.Metadata{DiscountPrefix: "SALE"}, want: "exactly one"},
		{name: "two placeholders", meta: catalog.Metadata{DiscountPrefix: "{}% {}"}, want: "exactly one"},
		{name: "invalid regex", meta: catalog.Metadata{NameFilters: []string{`(`}}, want: "invalid name filter"},
		{name: "empty match", meta: catalog.Metadata{NameFilters: []string{`x*`}}, want: "empty string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.NewNamer(tt.meta)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEffectiveName(t *testing.T) {
	namer := catalog.DefaultNamer()

	t.Run("zero discount adds no prefix", func(t *testing.T) {
		for _, name := range []string{"Booster", "[x] VIP", "💲5% OFF💲 Gold"} {
			e := catalog.DeclaredEntry{Name: name, Active: true, Discount: 0, Category: catalog.GamePass}
			assert.Equal(t, namer.Sanitize(catalog.GamePass, name), namer.EffectiveName(e))
		}
	})

	t.Run("inactive discount adds no prefix", func(t *testing.T) {
		e := catalog.DeclaredEntry{Name: "Booster", Active: false, Discount: 50, Category: catalog.Product}
		assert.Equal(t, "Booster", namer.EffectiveName(e))
	})

	t.Run("active discount starts with rendered prefix", func(t *testing.T) {
		for _, d := range []int{1, 10, 99, 100} {
			e := catalog.DeclaredEntry{Name: "Booster", Active: true, Discount: d, Category: catalog.GamePass}
			got := namer.EffectiveName(e)
			assert.True(t, strings.HasPrefix(got, namer.RenderPrefix(d)), got)
			assert.True(t, strings.HasSuffix(got, " Booster"), got)
		}
	})

	t.Run("booster", func(t *testing.T) {
		e := catalog.DeclaredEntry{Name: "Booster", Active: true, Discount: 10, Category: catalog.GamePass}
		assert.Equal(t, "💲10% OFF💲 Booster", namer.EffectiveName(e))
	})

	t.Run("custom template", func(t *testing.T) {
		custom, err := catalog.NewNamer(catalog.Metadata{DiscountPrefix: "  [-{}%]  "})
		require.NoError(t, err)
		e := catalog.DeclaredEntry{Name: "Booster", Active: true, Discount: 25, Category: catalog.GamePass}
		assert.Equal(t, "[-25%] Booster", custom.EffectiveName(e))
		assert.Equal(t, "Booster", custom.BaseName(catalog.GamePass, "[-25%] Booster"))
	})

	t.Run("entry prefix", func(t *testing.T) {
		prefix := " [VIP] "
		e := catalog.DeclaredEntry{Name: "Pass 🔥", Prefix: &prefix, Active: true, Category: catalog.GamePass}
		assert.Equal(t, "[VIP] Pass", namer.Title(e))
		assert.Equal(t, "[VIP] Pass", namer.EffectiveName(e))

		e.Discount = 10
		assert.Equal(t, "💲10% OFF💲 [VIP] Pass", namer.EffectiveName(e))

		e.Name = "🔥"
		assert.Equal(t, "💲10% OFF💲 [VIP]", namer.EffectiveName(e))
	})

	t.Run("blank entry prefix", func(t *testing.T) {
		blank := "  "
		e := catalog.DeclaredEntry{Name: "Pass", Prefix: &blank, Active: true, Category: catalog.GamePass}
		assert.Equal(t, "Pass", namer.EffectiveName(e))
	})

	t.Run("empty sanitized name", func(t *testing.T) {
		e := catalog.DeclaredEntry{Name: "🔥", Active: true, Discount: 10, Category: catalog.GamePass}
		assert.Equal(t, "💲10% OFF💲", namer.EffectiveName(e))
	})
}

func TestMatchKey(t *testing.T) {
	namer := catalog.DefaultNamer()

	same := []string{"Booster", "booster", "BOOSTER ", "💲10% OFF💲 Booster", "💲75% OFF💲 booster", "[HOT] Booster"}
	for _, name := range same {
		assert.Equal(t, "booster", namer.MatchKey(catalog.GamePass, name), name)
	}
	assert.NotEqual(t, namer.MatchKey(catalog.GamePass, "Booster"), namer.MatchKey(catalog.GamePass, "Booster 2"))

	custom, err := catalog.NewNamer(catalog.Metadata{NameFilters: []string{`#`}})
	require.NoError(t, err)
	prefix := "VIP"
	e := catalog.DeclaredEntry{Name: "Booster", Prefix: &prefix, Active: true, Discount: 10, Category: catalog.GamePass}
	assert.Equal(t, custom.MatchKey(catalog.GamePass, custom.EffectiveName(e)), custom.EntryMatchKey(e))
	assert.Equal(t, "vip booster", custom.EntryMatchKey(e))
}

func TestFormatKey(t *testing.T) {
	tests := map[string]string{
		"Super Booster":   "super-booster",
		"VIP!!":           "vip",
		"  Mega   Pack  ": "mega-pack",
		"x2 Coins, 100":   "x2-coins-100",
		"日本":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, catalog.FormatKey(in), in)
	}
}

func TestIsCensored(t *testing.T) {
	assert.True(t, catalog.IsCensored("####"))
	assert.True(t, catalog.IsCensored("## ###"))
	assert.False(t, catalog.IsCensored("#1 Pack"))
	assert.False(t, catalog.IsCensored(""))
}

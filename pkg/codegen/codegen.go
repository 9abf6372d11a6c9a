// Package codegen renders the synced catalog as a Luau or Lua module that
// maps each effective name to its id and price.
package codegen

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Format selects the output dialect.
type Format string

const (
	// FormatLuau is typed Luau, the default.
	FormatLuau Format = "luau"
	// FormatLua is a plain Lua 5.x table literal.
	FormatLua Format = "lua"
)

// ParseFormat maps a declared-file format name to a Format. Empty means Luau.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatLuau):
		return FormatLuau, nil
	case string(FormatLua):
		return FormatLua, nil
	}
	return "", &errors.ValidationError{Field: "luau-format", Value: s, Message: "must be luau or lua"}
}

const header = "-- This file is automatically generated by rbxproducts. Do not edit this file directly.\n"

// Entry is one generated mapping.
type Entry struct {
	Name  string `json:"name"`
	ID    uint64 `json:"id"`
	Price int64  `json:"price"`
}

// Data is the content of the generated file.
type Data struct {
	GamePasses []Entry `json:"gamepasses"`
	Products   []Entry `json:"products"`
}

// Len returns the number of entries.
func (d Data) Len() int {
	return len(d.GamePasses) + len(d.Products)
}

// Build selects the linked entries whose record still exists remotely and
// sorts each category by id.
func Build(c *catalog.DeclaredCatalog, remote []catalog.Record) (Data, error) {
	namer, err := catalog.NewNamer(c.Metadata)
	if err != nil {
		return Data{}, err
	}

	exists := make(map[catalog.Category]map[uint64]bool)
	for _, r := range remote {
		if exists[r.Category] == nil {
			exists[r.Category] = make(map[uint64]bool)
		}
		exists[r.Category][r.ID] = true
	}

	entries := func(cat catalog.Category) []Entry {
		var out []Entry
		for _, e := range c.Entries(cat) {
			if !e.Linked() || !exists[cat][e.RemoteID()] {
				continue
			}
			out = append(out, Entry{Name: namer.EffectiveName(e), ID: e.RemoteID(), Price: e.EffectivePrice()})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	return Data{GamePasses: entries(catalog.GamePass), Products: entries(catalog.Product)}, nil
}

// Render writes data in the given format.
func Render(w io.Writer, data Data, format Format) error {
	var buf bytes.Buffer
	switch format {
	case FormatLuau, "":
		renderLuau(&buf, data)
	case FormatLua:
		renderLua(&buf, data)
	default:
		return &errors.ValidationError{Field: "format", Value: format, Message: "must be luau or lua"}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.WrapIO("write", "generated file", err)
	}
	return nil
}

// WriteFile regenerates the file at path in full.
func WriteFile(path string, data Data, format Format) error {
	var buf bytes.Buffer
	if err := Render(&buf, data, format); err != nil {
		return err
	}
	return declared.WriteFileAtomic(path, buf.Bytes())
}

func renderLuau(b *bytes.Buffer, data Data) {
	b.WriteString(header)
	b.WriteString("export type Product = { id: number, price: number }\n\n")
	b.WriteString("return {\n\tGamepasses = {\n")
	writeEntries(b, data.GamePasses, false)
	b.WriteString("\t} :: {[string]: Product},\n\n\tProducts = {\n")
	writeEntries(b, data.Products, false)
	b.WriteString("\t} :: {[string]: Product}\n}")
}

func renderLua(b *bytes.Buffer, data Data) {
	b.WriteString(header)
	b.WriteString("return {\n\tGamepasses = {\n")
	writeEntries(b, data.GamePasses, true)
	b.WriteString("\t},\n\tProducts = {\n")
	writeEntries(b, data.Products, true)
	b.WriteString("\t},\n}\n")
}

func writeEntries(b *bytes.Buffer, entries []Entry, trailingComma bool) {
	for i, e := range entries {
		fmt.Fprintf(b, "\t\t[%s] = { id = %d, price = %d }", Quote(e.Name), e.ID, e.Price)
		if trailingComma || i < len(entries)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
}

// Quote returns s as a double-quoted Lua string literal. Printable UTF-8
// passes through unchanged.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

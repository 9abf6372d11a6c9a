package declared

import (
	"sort"

	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/agentstation/rbxproducts/pkg/catalog"
)

// keyOrder records the order in which entry keys first appear in the file.
// Decoding into maps loses it, and the reconciler's tie-break depends on it.
type keyOrder map[string][]string

func (o keyOrder) add(section, key string) {
	for _, k := range o[section] {
		if k == key {
			return
		}
	}
	o[section] = append(o[section], key)
}

// keys returns the keys of entries in file order. Keys the scan missed are
// appended in sorted order so the result is always deterministic.
func (o keyOrder) keys(cat catalog.Category, entries map[string]rawEntry) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, k := range o[cat.Section()] {
		if _, ok := entries[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}

	var rest []string
	for k := range entries {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// entryOrder walks the document with the low-level parser and collects the
// entry keys of [gamepasses] and [products] in the order they appear, whether
// declared as [gamepasses.key] tables, dotted keys or inline tables.
func entryOrder(data []byte) (keyOrder, error) {
	order := keyOrder{}
	sections := map[string]bool{
		catalog.GamePass.Section(): true,
		catalog.Product.Section():  true,
	}

	var table []string
	var p unstable.Parser
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr.Key())
			if len(table) >= 2 && sections[table[0]] {
				order.add(table[0], table[1])
			}
		case unstable.KeyValue:
			path := append(append([]string{}, table...), keyParts(expr.Key())...)
			switch {
			case len(path) >= 2 && sections[path[0]]:
				order.add(path[0], path[1])
			case len(path) == 1 && sections[path[0]] && expr.Value().Kind == unstable.InlineTable:
				children := expr.Value().Children()
				for children.Next() {
					child := children.Node()
					if child.Kind != unstable.KeyValue {
						continue
					}
					if parts := keyParts(child.Key()); len(parts) > 0 {
						order.add(path[0], parts[0])
					}
				}
			}
		}
	}
	return order, p.Error()
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

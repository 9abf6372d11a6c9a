package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/agentstation/rbxproducts/pkg/constants"
)

// DefaultNameFilters strip the default discount prefix, bracketed tags and
// every character the catalog does not display well.
var DefaultNameFilters = []string{
	`💲.*?% OFF💲`,
	`\[.*?\]`,
	`[^a-zA-Z0-9!?,.\-\s]`,
}

var whitespace = regexp.MustCompile(`\s+`)

// Namer derives display names from declared names. It holds the compiled
// filters and discount prefix of one declared file.
type Namer struct {
	template     string
	prefixPrefix string
	prefixSuffix string
	prefixStrip  *regexp.Regexp
	filters      map[Category][]*regexp.Regexp
}

// NewNamer compiles the naming rules declared in meta.
func NewNamer(meta Metadata) (*Namer, error) {
	template := strings.TrimSpace(meta.PrefixTemplate())
	if err := ValidatePrefixTemplate(template); err != nil {
		return nil, err
	}

	before, after, _ := strings.Cut(template, constants.DiscountPlaceholder)
	n := &Namer{
		template:     template,
		prefixPrefix: before,
		prefixSuffix: after,
		prefixStrip:  regexp.MustCompile(`^\s*` + regexp.QuoteMeta(before) + `\d{1,3}` + regexp.QuoteMeta(after) + `\s*`),
		filters:      make(map[Category][]*regexp.Regexp, 2),
	}

	for _, cat := range Categories() {
		patterns := meta.Filters(cat)
		if len(patterns) == 0 {
			patterns = DefaultNameFilters
		}
		compiled, err := CompileFilters(patterns)
		if err != nil {
			return nil, err
		}
		n.filters[cat] = compiled
	}
	return n, nil
}

// DefaultNamer returns a Namer using the default prefix and filters.
func DefaultNamer() *Namer {
	n, err := NewNamer(Metadata{})
	if err != nil {
		panic(err)
	}
	return n
}

// ValidatePrefixTemplate checks that a discount prefix has exactly one placeholder.
func ValidatePrefixTemplate(template string) error {
	if c := strings.Count(template, constants.DiscountPlaceholder); c != 1 {
		return fmt.Errorf("discount prefix %q must contain exactly one %s placeholder, found %d", template, constants.DiscountPlaceholder, c)
	}
	return nil
}

// CompileFilters compiles name filter patterns. A filter that matches the
// empty string is rejected because it would match between every character.
func CompileFilters(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid name filter %q: %w", p, err)
		}
		if re.MatchString("") {
			return nil, fmt.Errorf("invalid name filter %q: matches the empty string", p)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Sanitize replaces every filter match with a space, collapses whitespace
// and trims, repeating until nothing changes. The result is a fixed point:
// Sanitize(Sanitize(x)) == Sanitize(x).
//
// Filters never match the empty string and a collapsed string has no runs of
// spaces, so every pass that changes the string removes at least one
// non-space character. The loop therefore settles within len(name)+1 passes.
func (n *Namer) Sanitize(cat Category, name string) string {
	filters := n.filters[cat]
	out := collapse(name)
	for range len(out) + 1 {
		next := out
		for _, re := range filters {
			next = re.ReplaceAllLiteralString(next, " ")
		}
		next = collapse(next)
		if next == out {
			return out
		}
		out = next
	}
	return out
}

// RenderPrefix renders the discount prefix for a percentage.
func (n *Namer) RenderPrefix(discount int) string {
	return n.prefixPrefix + strconv.Itoa(discount) + n.prefixSuffix
}

// Template returns the discount prefix template in use.
func (n *Namer) Template() string {
	return n.template
}

// Title is the sanitized name of e with its own prefix in front. The entry
// prefix is written as declared; filters only apply to the name.
func (n *Namer) Title(e DeclaredEntry) string {
	name := n.Sanitize(e.Category, e.Name)
	if e.Prefix == nil {
		return name
	}
	prefix := strings.TrimSpace(*e.Prefix)
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + " " + name
}

// EffectiveName is the name written to the remote catalog: the Title,
// preceded by the rendered discount prefix while a discount applies.
func (n *Namer) EffectiveName(e DeclaredEntry) string {
	name := n.Title(e)
	if !e.Discounted() {
		return name
	}
	prefix := n.RenderPrefix(e.Discount)
	if name == "" {
		return prefix
	}
	return prefix + " " + name
}

// StripPrefix removes a leading rendered discount prefix of any percentage.
func (n *Namer) StripPrefix(name string) string {
	return n.prefixStrip.ReplaceAllLiteralString(name, "")
}

// BaseName recovers the undiscounted, sanitized name from a remote name.
func (n *Namer) BaseName(cat Category, remoteName string) string {
	return n.Sanitize(cat, n.StripPrefix(remoteName))
}

// MatchKey is the comparison key used to pair unlinked entries with remote
// records. It ignores discount prefixes, filtered characters and case.
func (n *Namer) MatchKey(cat Category, name string) string {
	return cases.Fold().String(n.BaseName(cat, name))
}

// EntryMatchKey is MatchKey applied to the Title of a declared entry, so it
// agrees with the key of the remote record that entry writes.
func (n *Namer) EntryMatchKey(e DeclaredEntry) string {
	return n.MatchKey(e.Category, n.Title(e))
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllLiteralString(s, " "))
}

// IsCensored reports whether the remote service replaced a name with hashes.
func IsCensored(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if r != '#' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// FormatKey turns a display name into a declared-file key: lower case ASCII
// letters and digits joined by dashes.
func FormatKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}

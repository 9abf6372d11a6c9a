package rbxproducts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/logging"
)

// DownloadResult describes one download run.
type DownloadResult struct {
	RunID      string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	File       string `json:"file" yaml:"file"`
	UniverseID uint64 `json:"universe_id" yaml:"universe_id"`
	DryRun     bool   `json:"dry_run" yaml:"dry_run"`
	// Added counts remote records that got a new declared entry.
	Added int `json:"added" yaml:"added"`
	// Adopted counts unlinked entries bound to a remote record by name.
	Adopted   int `json:"adopted" yaml:"adopted"`
	Updated   int `json:"updated" yaml:"updated"`
	Unchanged int `json:"unchanged" yaml:"unchanged"`

	Catalog       *catalog.DeclaredCatalog `json:"-" yaml:"-"`
	GeneratedFile string                   `json:"generated_file,omitempty" yaml:"generated_file,omitempty"`
	Duration      time.Duration            `json:"duration" yaml:"duration"`
}

// Download folds the remote catalog into the declared file.
//
// Entries already linked to a record keep their key, discount and
// description. Their name, prefix, price, regional pricing and for-sale
// status are kept too unless overwrite is set, in which case the remote
// values win and the remote name replaces name and prefix together;
// the price is still kept while a discount is active, since the remote
// price is the discounted one. Records no entry claims are added under a
// key derived from their name. The file is then rewritten in full.
func (s *Syncer) Download(ctx context.Context) (result *DownloadResult, err error) {
	ctx = s.context(ctx)
	start := time.Now()

	decl, source, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result = &DownloadResult{File: s.config.file, UniverseID: decl.Metadata.UniverseID, DryRun: s.config.dryRun, Catalog: decl}
	ctx = logging.WithField(ctx, "universe_id", decl.Metadata.UniverseID)

	var finish func(error)
	ctx, result.RunID, finish = s.startDownloadRun(ctx, result)
	defer func() {
		result.Duration = time.Since(start)
		finish(err)
	}()
	log := s.logger(ctx)

	records, err := source.List(ctx)
	if err != nil {
		return result, err
	}
	log.Info().Int("declared", decl.Len()).Int("remote", len(records)).Bool("overwrite", s.config.overwrite).Msg("Merging remote records")

	namer, err := catalog.NewNamer(decl.Metadata)
	if err != nil {
		return result, err
	}
	m := merger{namer: namer, overwrite: s.config.overwrite, result: result}
	for _, cat := range catalog.Categories() {
		var recs []catalog.Record
		for _, r := range records {
			if r.Category == cat {
				recs = append(recs, r)
			}
		}
		decl.SetEntries(cat, m.merge(cat, decl.Entries(cat), recs))
	}
	log.Info().
		Int("added", result.Added).
		Int("adopted", result.Adopted).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Msg("Merge complete")

	if s.config.dryRun {
		log.Info().Bool("dry_run", true).Msg("Dry run completed - declared file not written")
		return result, nil
	}

	if err := declared.Save(s.config.file, decl); err != nil {
		return result, err
	}
	log.Info().Str("path", s.config.file).Msg("Declared file written")

	if result.GeneratedFile, err = s.regenerate(ctx, decl, records); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Syncer) startDownloadRun(ctx context.Context, result *DownloadResult) (context.Context, string, func(error)) {
	ctx, runID, finish := s.startRun(ctx, "download", result.UniverseID, result.DryRun)
	return ctx, runID, func(err error) { finish(nil, err) }
}

type merger struct {
	namer     *catalog.Namer
	overwrite bool
	result    *DownloadResult
}

// merge folds the records of one category into entries, keeping entry
// order and appending new entries in record order.
func (m *merger) merge(cat catalog.Category, entries []catalog.DeclaredEntry, records []catalog.Record) []catalog.DeclaredEntry {
	out := append([]catalog.DeclaredEntry(nil), entries...)

	byID := make(map[uint64]int, len(out))
	keys := make(map[string]bool, len(out))
	for i, e := range out {
		keys[e.Key] = true
		if e.Linked() {
			if _, dup := byID[e.RemoteID()]; !dup {
				byID[e.RemoteID()] = i
			}
		}
	}
	adoptable := m.adoptable(out, records)

	for _, r := range records {
		i, ok := byID[r.ID]
		if !ok {
			if j, found := adoptable[r.ID]; found {
				out[j] = out[j].Link(r.ID)
				byID[r.ID] = j
				i, ok = j, true
				m.result.Adopted++
			}
		}
		if ok {
			merged := m.mergeLinked(out[i], r)
			if equalEntries(merged, out[i]) {
				m.result.Unchanged++
			} else {
				m.result.Updated++
			}
			out[i] = merged
			continue
		}

		entry := m.newEntry(cat, r)
		entry.Key = uniqueKey(keys, entry.Key, r.ID)
		keys[entry.Key] = true
		byID[r.ID] = len(out)
		out = append(out, entry)
		m.result.Added++
	}
	return out
}

// adoptable pairs records with unlinked entries whose names match exactly
// one record and one entry.
func (m *merger) adoptable(entries []catalog.DeclaredEntry, records []catalog.Record) map[uint64]int {
	linked := make(map[uint64]bool)
	for _, e := range entries {
		if e.Linked() {
			linked[e.RemoteID()] = true
		}
	}

	recordsByKey := make(map[string][]uint64)
	for _, r := range records {
		if linked[r.ID] || catalog.IsCensored(r.Name) {
			continue
		}
		k := m.namer.MatchKey(r.Category, r.Name)
		if k != "" {
			recordsByKey[k] = append(recordsByKey[k], r.ID)
		}
	}
	entriesByKey := make(map[string][]int)
	for i, e := range entries {
		if e.Linked() {
			continue
		}
		if k := m.namer.EntryMatchKey(e); k != "" {
			entriesByKey[k] = append(entriesByKey[k], i)
		}
	}

	out := make(map[uint64]int)
	for k, ids := range recordsByKey {
		if idx := entriesByKey[k]; len(ids) == 1 && len(idx) == 1 {
			out[ids[0]] = idx[0]
		}
	}
	return out
}

func (m *merger) mergeLinked(e catalog.DeclaredEntry, r catalog.Record) catalog.DeclaredEntry {
	if !m.overwrite {
		return e
	}
	if name := m.namer.BaseName(r.Category, r.Name); name != "" && !catalog.IsCensored(r.Name) {
		e.Name = name
		e.Prefix = nil
	}
	if !e.Discounted() {
		e.BasePrice = r.Price
	}
	e.RegionalPricing = r.RegionalPricing
	e.Active = r.ForSale
	return e
}

func (m *merger) newEntry(cat catalog.Category, r catalog.Record) catalog.DeclaredEntry {
	name := m.namer.BaseName(cat, r.Name)
	if name == "" || catalog.IsCensored(r.Name) {
		name = strings.TrimSpace(r.Name)
	}
	e := catalog.DeclaredEntry{
		Key:             catalog.FormatKey(name),
		Name:            name,
		BasePrice:       r.Price,
		Active:          r.ForSale,
		RegionalPricing: r.RegionalPricing,
		Category:        cat,
	}.Link(r.ID)
	if desc := strings.TrimSpace(r.Description); desc != "" && !catalog.IsCensored(desc) {
		e.Description = &r.Description
	}
	return e
}

// uniqueKey returns key, or key suffixed with the record id when taken.
func uniqueKey(taken map[string]bool, key string, id uint64) string {
	if key != "" && !taken[key] {
		return key
	}
	if key == "" {
		key = "item"
	}
	candidate := fmt.Sprintf("%s-%d", key, id)
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d-%d", key, id, n)
	}
	return candidate
}

func equalEntries(a, b catalog.DeclaredEntry) bool {
	return a.Key == b.Key && a.RemoteID() == b.RemoteID() && a.Name == b.Name &&
		a.BasePrice == b.BasePrice && a.Active == b.Active && a.Discount == b.Discount &&
		a.RegionalPricing == b.RegionalPricing && equalOptional(a.Description, b.Description) &&
		equalOptional(a.Prefix, b.Prefix)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Package reconciler computes the Plan that brings a remote catalog into
// agreement with a declared catalog. Planning is pure: it performs no I/O,
// never mutates its inputs and returns the same Plan for the same inputs.
package reconciler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/agentstation/rbxproducts/pkg/catalog"
)

// Reconciler pairs declared entries with remote Records.
type Reconciler struct {
	fields map[catalog.Field]bool
}

// New creates a new Reconciler with options.
func New(opts ...Option) (*Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Reconciler{fields: options.fields}, nil
}

// Plan computes one Operation per declared entry. Records no entry claims
// are listed in Plan.Unmanaged and never produce an operation. The only
// error is an invalid naming configuration, which a loaded declared file
// never has.
func (r *Reconciler) Plan(declared *catalog.DeclaredCatalog, remote []catalog.Record) (*Plan, error) {
	namer, err := catalog.NewNamer(declared.Metadata)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Operations: make([]Operation, 0, declared.Len())}
	for _, cat := range catalog.Categories() {
		var records []catalog.Record
		for _, rec := range remote {
			if rec.Category == cat {
				records = append(records, rec)
			}
		}
		ops, unmanaged := r.planCategory(namer, declared.Entries(cat), records)
		plan.Operations = append(plan.Operations, ops...)
		plan.Unmanaged = append(plan.Unmanaged, unmanaged...)
	}
	return plan, nil
}

func (r *Reconciler) planCategory(namer *catalog.Namer, entries []catalog.DeclaredEntry, records []catalog.Record) ([]Operation, []catalog.Record) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	byID := make(map[uint64]int, len(records))
	recordKeys := make([]string, len(records))
	for i, rec := range records {
		if _, dup := byID[rec.ID]; !dup {
			byID[rec.ID] = i
		}
		if !catalog.IsCensored(rec.Name) {
			recordKeys[i] = namer.MatchKey(rec.Category, rec.Name)
		}
	}

	linkedCount := make(map[uint64]int)
	nameCount := make(map[string]int)
	entryKeys := make([]string, len(entries))
	for i, e := range entries {
		if e.Linked() {
			linkedCount[*e.ID]++
			continue
		}
		entryKeys[i] = namer.EntryMatchKey(e)
		nameCount[entryKeys[i]]++
	}

	claimed := make([]bool, len(records))
	ops := make([]Operation, len(entries))

	// Linked entries claim their records first so name matching below can
	// never steal a record that some entry is bound to by id.
	for i, e := range entries {
		if !e.Linked() {
			continue
		}
		idx, found := byID[*e.ID]
		if found {
			claimed[idx] = true
		}
		switch {
		case linkedCount[*e.ID] > 1:
			ops[i] = conflict(e, fmt.Sprintf("%s %d", ReasonDuplicateID, *e.ID))
		case !found:
			ops[i] = conflict(e, ReasonMissingRemote)
		default:
			ops[i] = r.compare(namer, e, records[idx], MatchID)
		}
	}

	for i, e := range entries {
		if e.Linked() {
			continue
		}
		key := entryKeys[i]
		if key == "" {
			ops[i] = conflict(e, ReasonEmptyName)
			continue
		}
		if nameCount[key] > 1 {
			ops[i] = conflict(e, ReasonAmbiguousName)
			continue
		}

		var candidates []int
		for j := range records {
			if !claimed[j] && recordKeys[j] == key {
				candidates = append(candidates, j)
			}
		}
		switch len(candidates) {
		case 0:
			ops[i] = r.create(namer, e)
		case 1:
			claimed[candidates[0]] = true
			ops[i] = r.compare(namer, e, records[candidates[0]], MatchName)
		default:
			ops[i] = conflict(e, fmt.Sprintf("%s (%d remote records)", ReasonAmbiguousName, len(candidates)))
		}
	}

	var unmanaged []catalog.Record
	for j, rec := range records {
		if !claimed[j] {
			unmanaged = append(unmanaged, rec)
		}
	}
	return ops, unmanaged
}

func (r *Reconciler) create(namer *catalog.Namer, e catalog.DeclaredEntry) Operation {
	draft := &catalog.Draft{
		Category:        e.Category,
		Name:            namer.EffectiveName(e),
		Price:           e.EffectivePrice(),
		ForSale:         e.Active,
		RegionalPricing: e.RegionalPricing,
	}
	if e.Description != nil {
		draft.Description = *e.Description
	}
	return Operation{Kind: KindCreate, Category: e.Category, Key: e.Key, Entry: e, Draft: draft}
}

// compare diffs a matched pair over the tracked fields and returns a NoOp
// or an Update carrying only what changed. A price that would drop to 0 is a
// Conflict that still claims the record.
func (r *Reconciler) compare(namer *catalog.Namer, e catalog.DeclaredEntry, rec catalog.Record, match Match) Operation {
	var patch catalog.Patch
	var changes []Change

	if price := e.EffectivePrice(); r.fields[catalog.FieldPrice] && price == 0 && rec.Price != 0 {
		op := conflict(e, ReasonZeroPrice)
		op.Match = match
		op.Record = &rec
		return op
	}

	if name := namer.EffectiveName(e); r.fields[catalog.FieldName] && rec.Name != name {
		patch.Name = &name
		changes = append(changes, Change{Field: catalog.FieldName, Old: rec.Name, New: name})
	}
	if price := e.EffectivePrice(); r.fields[catalog.FieldPrice] && rec.Price != price {
		patch.Price = &price
		changes = append(changes, Change{Field: catalog.FieldPrice, Old: strconv.FormatInt(rec.Price, 10), New: strconv.FormatInt(price, 10)})
	}
	if r.fields[catalog.FieldDescription] && e.Description != nil && *e.Description != rec.Description {
		desc := *e.Description
		patch.Description = &desc
		changes = append(changes, Change{Field: catalog.FieldDescription, Old: rec.Description, New: desc})
	}
	if r.fields[catalog.FieldForSale] && rec.ForSale != e.Active {
		forSale := e.Active
		patch.ForSale = &forSale
		changes = append(changes, Change{Field: catalog.FieldForSale, Old: strconv.FormatBool(rec.ForSale), New: strconv.FormatBool(forSale)})
	}
	if r.fields[catalog.FieldRegionalPricing] && rec.RegionalPricing != e.RegionalPricing {
		regional := e.RegionalPricing
		patch.RegionalPricing = &regional
		changes = append(changes, Change{Field: catalog.FieldRegionalPricing, Old: strconv.FormatBool(rec.RegionalPricing), New: strconv.FormatBool(regional)})
	}

	op := Operation{Category: e.Category, Key: e.Key, Entry: e, Match: match, Record: &rec, Kind: KindNoOp}
	if len(changes) > 0 {
		op.Kind = KindUpdate
		op.Patch = &patch
		op.Changes = changes
	}
	return op
}

func conflict(e catalog.DeclaredEntry, reason string) Operation {
	return Operation{Kind: KindConflict, Category: e.Category, Key: e.Key, Entry: e, Reason: reason}
}

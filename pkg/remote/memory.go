package remote

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Memory is a thread-safe in-memory Source.
type Memory struct {
	mu      sync.RWMutex
	records map[recordKey]catalog.Record
	nextID  uint64

	// Fail, when set, is consulted before every Create and Update. A non-nil
	// return value fails that call without touching the catalog.
	Fail func(op string, category catalog.Category, name string) error

	calls []string
}

type recordKey struct {
	category catalog.Category
	id       uint64
}

// NewMemory returns a Memory seeded with records. New ids start above the
// highest seeded id.
func NewMemory(records ...catalog.Record) *Memory {
	m := &Memory{records: make(map[recordKey]catalog.Record, len(records)), nextID: 1}
	for _, r := range records {
		m.records[recordKey{r.Category, r.ID}] = r
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

// List implements Source. Records are ordered by category, then id.
func (m *Memory) List(ctx context.Context) ([]catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Create implements Source.
func (m *Memory) Create(ctx context.Context, draft catalog.Draft) (catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Record{}, err
	}
	if err := m.fail("create", draft.Category, draft.Name); err != nil {
		return catalog.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create:"+draft.Name)

	r := catalog.Record{
		ID:              m.nextID,
		Category:        draft.Category,
		Name:            draft.Name,
		Price:           draft.Price,
		Description:     draft.Description,
		ForSale:         draft.ForSale,
		RegionalPricing: draft.RegionalPricing,
	}
	m.nextID++
	m.records[recordKey{r.Category, r.ID}] = r
	return r, nil
}

// Update implements Source.
func (m *Memory) Update(ctx context.Context, current catalog.Record, patch catalog.Patch) (catalog.Record, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Record{}, err
	}
	if err := m.fail("update", current.Category, current.Name); err != nil {
		return catalog.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "update:"+strconv.FormatUint(current.ID, 10))

	key := recordKey{current.Category, current.ID}
	existing, ok := m.records[key]
	if !ok {
		return catalog.Record{}, errors.NewNotFoundError(current.Category.String(), strconv.FormatUint(current.ID, 10))
	}
	updated := patch.Apply(existing)
	m.records[key] = updated
	return updated, nil
}

// Calls returns the mutating calls made so far, in order.
func (m *Memory) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

func (m *Memory) fail(op string, category catalog.Category, name string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, category, name)
}

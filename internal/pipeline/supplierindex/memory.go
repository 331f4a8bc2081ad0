package supplierindex

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rfq-pipeline/internal/models"
)

// MemoryIndex is a fixture-backed driver for tests and local development.
type MemoryIndex struct {
	mu        sync.RWMutex
	suppliers []models.SupplierProfile
}

func NewMemoryIndex(suppliers ...models.SupplierProfile) *MemoryIndex {
	return &MemoryIndex{suppliers: suppliers}
}

// Add registers a supplier. Safe for concurrent use.
func (m *MemoryIndex) Add(s models.SupplierProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers = append(m.suppliers, s)
}

func (m *MemoryIndex) Candidates(ctx context.Context, category string, filters Filters) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.SupplierProfile
	for _, s := range m.suppliers {
		if !hasCategory(s.Categories, category) {
			continue
		}
		if filters.Region != "" && !strings.EqualFold(s.Location.Region, filters.Region) {
			continue
		}
		if filters.Country != "" && !strings.EqualFold(s.Location.Country, filters.Country) {
			continue
		}
		if filters.Verified != nil && s.Verified != *filters.Verified {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return &sliceIterator{profiles: matched}, nil
}

func hasCategory(categories []string, category string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

type sliceIterator struct {
	profiles []models.SupplierProfile
	pos      int
}

func (it *sliceIterator) Next(ctx context.Context) (models.SupplierProfile, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.SupplierProfile{}, false, err
	}
	if it.pos >= len(it.profiles) {
		return models.SupplierProfile{}, false, nil
	}
	p := it.profiles[it.pos]
	it.pos++
	return p, true, nil
}

func (it *sliceIterator) Close() error { return nil }

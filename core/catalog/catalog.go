// Package catalog - the read-only product catalog collaborator.
// The engine only ever looks products up by identifier or name; how
// products are stored and edited is not this package's concern.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"pvquote/core/types"
	"pvquote/internal/errors"
)

// Product is a flat catalog record. Every field a line item may leave
// blank has a counterpart here.
type Product struct {
	// ID uniquely identifies the product
	ID string `json:"id"`

	// Name is the human-readable product name
	Name string `json:"name"`

	// Category classifies the product
	Category types.Category `json:"category"`

	// UnitNetPrice is the net list price per unit
	UnitNetPrice decimal.Decimal `json:"unit_net_price"`

	// Method is the product's default calculation method
	Method types.Method `json:"method"`

	// Technical attributes
	CapacityKW decimal.Decimal `json:"capacity_kw,omitempty"`
	PowerKW    decimal.Decimal `json:"power_kw,omitempty"`
	LengthM    decimal.Decimal `json:"length_m,omitempty"`
	WidthM     decimal.Decimal `json:"width_m,omitempty"`
	AreaM2     decimal.Decimal `json:"area_m2,omitempty"`
	LaborHours decimal.Decimal `json:"labor_hours,omitempty"`

	// Feature attributes
	Technology     string `json:"technology,omitempty"`
	FeatureSet     string `json:"feature_set,omitempty"`
	Design         string `json:"design,omitempty"`
	Upgrade        string `json:"upgrade,omitempty"`
	EfficiencyTier string `json:"efficiency_tier,omitempty"`

	// VATCategory is the product's tax category
	VATCategory types.VATCategory `json:"vat_category,omitempty"`
}

// Store is the lookup interface the engine consumes
type Store interface {
	// Lookup returns the product with the given id
	Lookup(ctx context.Context, id string) (*Product, error)

	// LookupByName returns the product with the given name
	LookupByName(ctx context.Context, name string) (*Product, error)

	// IDs returns all product ids in sorted order
	IDs() []string
}

// MemoryStore is an in-memory Store implementation
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Product
	byName map[string]*Product
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Product),
		byName: make(map[string]*Product),
	}
}

// Register adds a product, overwriting any previous record with the
// same id
func (s *MemoryStore) Register(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[p.ID]; ok {
		delete(s.byName, nameKey(prev.Name))
	}
	s.byID[p.ID] = &p
	if p.Name != "" {
		s.byName[nameKey(p.Name)] = &p
	}
}

// Lookup returns the product with the given id
func (s *MemoryStore) Lookup(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, errors.ProductNotFound(id)
}

// LookupByName returns the product with the given name. Matching is
// case-insensitive.
func (s *MemoryStore) LookupByName(_ context.Context, name string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byName[nameKey(name)]; ok {
		return p, nil
	}
	return nil, errors.ProductNotFound(name)
}

// IDs returns all product ids in sorted order
func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of products
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Merge fills a line item's blank fields from its product. Fields set
// on the line win; for decimals a zero value counts as blank.
func Merge(item types.LineItem, p *Product) types.LineItem {
	if p == nil {
		return item
	}
	if item.Label == "" {
		item.Label = p.Name
	}
	if item.Category == "" {
		item.Category = p.Category
	}
	if item.Method == "" {
		item.Method = p.Method
	}
	if item.UnitNetPrice.IsZero() {
		item.UnitNetPrice = p.UnitNetPrice
	}
	if item.CapacityKW.IsZero() {
		item.CapacityKW = p.CapacityKW
	}
	if item.PowerKW.IsZero() {
		item.PowerKW = p.PowerKW
	}
	if item.LengthM.IsZero() {
		item.LengthM = p.LengthM
	}
	if item.WidthM.IsZero() {
		item.WidthM = p.WidthM
	}
	if item.AreaM2.IsZero() {
		item.AreaM2 = p.AreaM2
	}
	if item.LaborHours.IsZero() {
		item.LaborHours = p.LaborHours
	}
	if item.Technology == "" {
		item.Technology = p.Technology
	}
	if item.FeatureSet == "" {
		item.FeatureSet = p.FeatureSet
	}
	if item.Design == "" {
		item.Design = p.Design
	}
	if item.Upgrade == "" {
		item.Upgrade = p.Upgrade
	}
	if item.EfficiencyTier == "" {
		item.EfficiencyTier = p.EfficiencyTier
	}
	if item.VATCategory == "" {
		item.VATCategory = p.VATCategory
	}
	return item
}

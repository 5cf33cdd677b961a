// Package catalog - catalog record validation
package catalog

import (
	"sort"

	"pvquote/internal/errors"
)

// ValidationRule checks one product record
type ValidationRule func(*Product) error

// DefaultValidationRules returns the standard record checks
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateIdentity,
		validatePrice,
		validateMethod,
	}
}

// Validate checks every product against the given rules and returns
// all violations in id order
func (s *MemoryStore) Validate(rules []ValidationRule) []error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		p := s.byID[id]
		for _, rule := range rules {
			if err := rule(p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func validateIdentity(p *Product) error {
	if p.ID == "" {
		return errors.Validation("product id must not be empty").
			WithContext("product_name", p.Name)
	}
	return nil
}

func validatePrice(p *Product) error {
	if p.UnitNetPrice.IsNegative() {
		return errors.Validation("product price must not be negative").
			WithContext("product_id", p.ID).
			WithContext("value", p.UnitNetPrice.String())
	}
	return nil
}

func validateMethod(p *Product) error {
	// An unknown method is tolerated at calculation time (per-piece
	// fallback), so it only rates a finding here, where the record is
	// editable. Custom vat categories are legitimate aliases and are
	// not checked.
	if p.Method != "" && !p.Method.IsValid() {
		return errors.Validationf("product method %q is not a known calculation method", p.Method).
			WithContext("product_id", p.ID)
	}
	return nil
}

// Package query holds the pure record operations: filtering by a FilterSpec
// and resolving a single record by identifier.
package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"cryptointel/internal/domain"
)

var ErrInvalidFilter = errors.New("invalid filter")

// FilterSpec combines up to three criteria with logical AND. A zero field
// disables its criterion, so the zero FilterSpec matches every record.
type FilterSpec struct {
	// SearchTerm is matched case-insensitively as a substring of the address.
	SearchTerm string
	// Categories is a set; order and duplicates are irrelevant.
	Categories []domain.Category
	// MinRiskScore keeps records with riskScore >= MinRiskScore. Zero means
	// no minimum.
	MinRiskScore decimal.Decimal
}

// Validate rejects thresholds outside [0, 10] and unknown categories.
func (s FilterSpec) Validate() error {
	if s.MinRiskScore.IsNegative() {
		return fmt.Errorf("%w: minRiskScore %s is negative", ErrInvalidFilter, s.MinRiskScore)
	}
	if s.MinRiskScore.GreaterThan(domain.MaxRiskScore) {
		return fmt.Errorf("%w: minRiskScore %s exceeds %s", ErrInvalidFilter, s.MinRiskScore, domain.MaxRiskScore)
	}
	for _, c := range s.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, c)
		}
	}
	return nil
}

// IsEmpty reports whether every criterion is disabled.
func (s FilterSpec) IsEmpty() bool {
	return s.SearchTerm == "" && len(s.Categories) == 0 && s.MinRiskScore.IsZero()
}

// Toggle returns a copy of s with c added to the category set, or removed if
// it was already present.
func (s FilterSpec) Toggle(c domain.Category) FilterSpec {
	out := s
	if i := slices.Index(s.Categories, c); i >= 0 {
		out.Categories = slices.Delete(slices.Clone(s.Categories), i, i+1)
		return out
	}
	out.Categories = append(slices.Clone(s.Categories), c)
	return out
}

// Predicate decides whether a record belongs to a result view.
type Predicate func(domain.InvestigationRecord) bool

// All is the identity predicate.
func All(domain.InvestigationRecord) bool { return true }

// And combines predicates; an empty list matches everything.
func And(preds ...Predicate) Predicate {
	if len(preds) == 0 {
		return All
	}
	return func(r domain.InvestigationRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// AddressContains matches term against the address using Unicode case
// folding.
func AddressContains(term string) Predicate {
	needle := cases.Fold().String(term)
	return func(r domain.InvestigationRecord) bool {
		return strings.Contains(cases.Fold().String(r.Address), needle)
	}
}

// InCategories matches records whose category is in set.
func InCategories(set []domain.Category) Predicate {
	m := make(map[domain.Category]struct{}, len(set))
	for _, c := range set {
		m[c] = struct{}{}
	}
	return func(r domain.InvestigationRecord) bool {
		_, ok := m[r.Category]
		return ok
	}
}

// RiskAtLeast compares exact decimals; a record scored 7.95 does not clear a
// threshold of 8 even though it displays as "8.0".
func RiskAtLeast(min decimal.Decimal) Predicate {
	return func(r domain.InvestigationRecord) bool {
		return r.RiskScore.GreaterThanOrEqual(min)
	}
}

// Predicate builds the combined predicate of the enabled criteria.
func (s FilterSpec) Predicate() Predicate {
	var preds []Predicate
	if s.SearchTerm != "" {
		preds = append(preds, AddressContains(s.SearchTerm))
	}
	if len(s.Categories) > 0 {
		preds = append(preds, InCategories(s.Categories))
	}
	if !s.MinRiskScore.IsZero() {
		preds = append(preds, RiskAtLeast(s.MinRiskScore))
	}
	return And(preds...)
}

// Apply returns a new slice holding the records that satisfy p, in input
// order. The input is never modified.
func Apply(records []domain.InvestigationRecord, p Predicate) []domain.InvestigationRecord {
	out := make([]domain.InvestigationRecord, 0, len(records))
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

// Filter validates spec and applies it to records.
func Filter(records []domain.InvestigationRecord, spec FilterSpec) ([]domain.InvestigationRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return Apply(records, spec.Predicate()), nil
}

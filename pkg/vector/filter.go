package vector

import "fmt"

// Filter is the metadata filter language of §4.8: equality, range,
// in-set, and boolean and/or over metadata fields. Filters are
// evaluated before ranking; top-k is applied after filtering.
//
// Exactly one field is set per Filter node; And/Or recurse.
type Filter struct {
	Eq *EqFilter
	In *InFilter

	Range *RangeFilter

	And []Filter
	Or  []Filter
}

type EqFilter struct {
	Field string
	Value any
}

type InFilter struct {
	Field  string
	Values []any
}

type RangeFilter struct {
	Field string
	Min   *float64
	Max   *float64
}

// Eq builds an equality filter leaf.
func Eq(field string, value any) Filter { return Filter{Eq: &EqFilter{Field: field, Value: value}} }

// In builds an in-set filter leaf.
func In(field string, values ...any) Filter { return Filter{In: &InFilter{Field: field, Values: values}} }

// Between builds an inclusive numeric range filter leaf.
func Between(field string, min, max float64) Filter {
	return Filter{Range: &RangeFilter{Field: field, Min: &min, Max: &max}}
}

// And combines filters with conjunction.
func And(filters ...Filter) Filter { return Filter{And: filters} }

// Or combines filters with disjunction.
func Or(filters ...Filter) Filter { return Filter{Or: filters} }

// IsZero reports whether f carries no condition (matches everything).
func (f Filter) IsZero() bool {
	return f.Eq == nil && f.In == nil && f.Range == nil && len(f.And) == 0 && len(f.Or) == 0
}

// Match evaluates f against metadata. A zero Filter matches anything,
// matching the "unknown index is a hard error, unknown filter matches
// nothing" asymmetry is avoided by treating every provider-specific
// evaluator the same way: no filter means no restriction.
func (f Filter) Match(metadata map[string]any) bool {
	switch {
	case f.Eq != nil:
		v, ok := metadata[f.Eq.Field]
		return ok && equalValues(v, f.Eq.Value)
	case f.In != nil:
		v, ok := metadata[f.In.Field]
		if !ok {
			return false
		}
		for _, want := range f.In.Values {
			if equalValues(v, want) {
				return true
			}
		}
		return false
	case f.Range != nil:
		v, ok := metadata[f.Range.Field]
		if !ok {
			return false
		}
		n, ok := toFloat64(v)
		if !ok {
			return false
		}
		if f.Range.Min != nil && n < *f.Range.Min {
			return false
		}
		if f.Range.Max != nil && n > *f.Range.Max {
			return false
		}
		return true
	case len(f.And) > 0:
		for _, sub := range f.And {
			if !sub.Match(metadata) {
				return false
			}
		}
		return true
	case len(f.Or) > 0:
		for _, sub := range f.Or {
			if sub.Match(metadata) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func equalValues(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

package screener

import (
	"sort"
	"time"

	"screener-systemv1/internal/model"
)

// DefaultPageSize bounds result pages when the caller passes none.
const DefaultPageSize = 50

// Evaluate matches a validated filter against a store snapshot and returns
// a ranked, paginated result. The snapshot slice is the store's consistent
// read; snapshot order is preserved when SortBy is unset.
//
// Conditions are ANDed with short-circuit on the first failure. A symbol
// missing a referenced field never matches that condition. A filter with
// zero conditions matches every symbol that carries its sort field.
func Evaluate(f *Filter, snapshot []*model.IndicatorVector, page, pageSize int) Result {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	matched := make([]*model.IndicatorVector, 0, len(snapshot))
	for _, v := range snapshot {
		if matchesAll(f, v) {
			matched = append(matched, v)
		}
	}

	if f.SortBy != "" {
		desc := f.SortOrder == SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := f.SortBy.Lookup(matched[i])
			b, _ := f.SortBy.Lookup(matched[j])
			if a != b {
				if desc {
					return a > b
				}
				return a < b
			}
			// Ties broken by symbol lexical order for determinism
			return matched[i].Symbol < matched[j].Symbol
		})
	}

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Result{
		Stocks:     matched[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		FilterID:   f.ID,
		ComputedAt: time.Now().UTC(),
		matches:    matched,
	}
}

func matchesAll(f *Filter, v *model.IndicatorVector) bool {
	for i := range f.Conditions {
		if !f.Conditions[i].matches(v) {
			return false
		}
	}
	// Zero-condition filters still require the sort field to be present,
	// so sorting never compares undefined values.
	if len(f.Conditions) == 0 && f.SortBy != "" {
		if _, ok := f.SortBy.Lookup(v); !ok {
			return false
		}
	}
	return true
}

// Membership returns the set of matching symbols ignoring pagination,
// including matches past the returned page. The coordinator diffs
// membership between evaluations to decide whether a full re-broadcast
// is required.
func Membership(r Result) map[string]*model.IndicatorVector {
	m := make(map[string]*model.IndicatorVector, len(r.matches))
	for _, v := range r.matches {
		m[v.Symbol] = v
	}
	return m
}

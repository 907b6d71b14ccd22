package screener

import (
	"encoding/json"
	"fmt"
	"time"

	"screener-systemv1/internal/model"
)

// Operator represents a numeric comparison for a filter condition.
type Operator string

const (
	OpGreaterThan      Operator = "gt"
	OpGreaterThanEqual Operator = "gte"
	OpLessThan         Operator = "lt"
	OpLessThanEqual    Operator = "lte"
	OpEqual            Operator = "eq"
	OpNotEqual         Operator = "neq"
	OpBetween          Operator = "between"
)

// SortOrder controls result ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Condition tests one vector field against a value. Value carries either a
// single number, or an ordered [low, high] pair for the between operator.
type Condition struct {
	Field    Field           `json:"field"`
	Operator Operator        `json:"operator"`
	Value    json.RawMessage `json:"value"`

	// decoded forms, populated by Validate
	scalar float64
	low    float64
	high   float64
}

// Filter is a named, ordered AND-combination of conditions with an
// optional sort.
type Filter struct {
	ID         string      `json:"id"`
	Conditions []Condition `json:"conditions"`
	SortBy     Field       `json:"sortBy,omitempty"`
	SortOrder  SortOrder   `json:"sortOrder,omitempty"`
}

// Result is the outcome of evaluating a filter against a store snapshot.
type Result struct {
	Stocks     []*model.IndicatorVector `json:"stocks"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"pageSize"`
	FilterID   string                   `json:"filterId"`
	ComputedAt time.Time                `json:"computedAt"`

	// matches is the full unpaginated match set. Membership diffing must
	// see every match, not one page; never serialized.
	matches []*model.IndicatorVector
}

// ValidationError reports a malformed filter or condition. Surfaced at
// registration time; a registered filter never fails evaluation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid filter: " + e.Reason }

// Validate checks the filter shape and decodes condition values.
// It must be called (once) before the filter is evaluated.
func (f *Filter) Validate() error {
	if f.ID == "" {
		return &ValidationError{Reason: "missing id"}
	}
	if f.SortBy != "" && !f.SortBy.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown sort field %q", f.SortBy)}
	}
	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown sort order %q", f.SortOrder)}
	}
	if f.SortOrder == "" {
		f.SortOrder = SortAsc
	}
	for i := range f.Conditions {
		if err := f.Conditions[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Condition) validate() error {
	if !c.Field.Valid() {
		return &ValidationError{Reason: fmt.Sprintf("unknown field %q", c.Field)}
	}

	switch c.Operator {
	case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual, OpEqual, OpNotEqual:
		if err := json.Unmarshal(c.Value, &c.scalar); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("operator %q requires a single numeric value", c.Operator)}
		}
	case OpBetween:
		var pair []float64
		if err := json.Unmarshal(c.Value, &pair); err != nil || len(pair) != 2 {
			return &ValidationError{Reason: `operator "between" requires a [low, high] pair`}
		}
		c.low, c.high = pair[0], pair[1]
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown operator %q", c.Operator)}
	}
	return nil
}

// matches tests a single vector against this condition. A vector with the
// tested field absent never matches.
func (c *Condition) matches(v *model.IndicatorVector) bool {
	val, ok := c.Field.Lookup(v)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpGreaterThan:
		return val > c.scalar
	case OpGreaterThanEqual:
		return val >= c.scalar
	case OpLessThan:
		return val < c.scalar
	case OpLessThanEqual:
		return val <= c.scalar
	case OpEqual:
		return val == c.scalar
	case OpNotEqual:
		return val != c.scalar
	case OpBetween:
		return val >= c.low && val <= c.high
	}
	return false
}

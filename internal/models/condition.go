package models

import (
	"fmt"
	"strings"
)

// Condition operators for leaf comparisons
const (
	OpLessThan       = "lt"
	OpLessOrEqual    = "lte"
	OpGreaterThan    = "gt"
	OpGreaterOrEqual = "gte"
	OpEqual          = "eq"
	OpContains       = "contains"
)

var validOperators = map[string]bool{
	OpLessThan:       true,
	OpLessOrEqual:    true,
	OpGreaterThan:    true,
	OpGreaterOrEqual: true,
	OpEqual:          true,
	OpContains:       true,
}

// FieldSource is anything a condition leaf can read a field from.
type FieldSource interface {
	Field(name string) (interface{}, bool)
}

// Condition is a predicate tree over feedback fields. A node is exactly one
// of: an AND group (All), an OR group (Any), a negation (Not), or a leaf
// comparison (Field/Operator/Value).
type Condition struct {
	All []Condition `json:"all,omitempty"`
	Any []Condition `json:"any,omitempty"`
	Not *Condition  `json:"not,omitempty"`

	Field    string      `json:"field,omitempty"`
	Operator string      `json:"operator,omitempty"`
	Value    interface{} `json:"value,omitempty"`
}

// Validate rejects structurally malformed trees up front so the engine can
// skip the owning rule instead of guessing at its meaning.
func (c *Condition) Validate() error {
	branches := 0
	if len(c.All) > 0 {
		branches++
	}
	if len(c.Any) > 0 {
		branches++
	}
	if c.Not != nil {
		branches++
	}
	if c.Field != "" || c.Operator != "" {
		branches++
	}

	if branches == 0 {
		return fmt.Errorf("empty condition node")
	}
	if branches > 1 {
		return fmt.Errorf("condition node mixes branch kinds")
	}

	switch {
	case len(c.All) > 0:
		for i := range c.All {
			if err := c.All[i].Validate(); err != nil {
				return err
			}
		}
	case len(c.Any) > 0:
		for i := range c.Any {
			if err := c.Any[i].Validate(); err != nil {
				return err
			}
		}
	case c.Not != nil:
		return c.Not.Validate()
	default:
		if c.Field == "" {
			return fmt.Errorf("leaf condition missing field")
		}
		if !validOperators[c.Operator] {
			return fmt.Errorf("unknown operator %q", c.Operator)
		}
	}

	return nil
}

// Matches evaluates the tree against a feedback event. Leaves referencing a
// missing or type-mismatched field evaluate to false; evaluation never
// raises on malformed input.
func (c *Condition) Matches(src FieldSource) bool {
	switch {
	case len(c.All) > 0:
		for i := range c.All {
			if !c.All[i].Matches(src) {
				return false
			}
		}
		return true
	case len(c.Any) > 0:
		for i := range c.Any {
			if c.Any[i].Matches(src) {
				return true
			}
		}
		return false
	case c.Not != nil:
		return !c.Not.Matches(src)
	default:
		return c.matchLeaf(src)
	}
}

func (c *Condition) matchLeaf(src FieldSource) bool {
	actual, ok := src.Field(c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
		a, aok := toNumber(actual)
		b, bok := toNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case OpLessThan:
			return a < b
		case OpLessOrEqual:
			return a <= b
		case OpGreaterThan:
			return a > b
		default:
			return a >= b
		}
	case OpEqual:
		return equalValues(actual, c.Value)
	case OpContains:
		return containsValue(actual, c.Value)
	default:
		return false
	}
}

func toNumber(v interface{}) (float64, bool) {
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

func equalValues(actual, expected interface{}) bool {
	if a, ok := toNumber(actual); ok {
		b, bok := toNumber(expected)
		return bok && a == b
	}
	switch a := actual.(type) {
	case string:
		b, ok := expected.(string)
		return ok && strings.EqualFold(a, b)
	case bool:
		b, ok := expected.(bool)
		return ok && a == b
	default:
		return false
	}
}

// containsValue handles substring matching on text fields and membership
// on tag lists.
func containsValue(actual, expected interface{}) bool {
	needle, ok := expected.(string)
	if !ok {
		return false
	}

	switch a := actual.(type) {
	case string:
		return strings.Contains(strings.ToLower(a), strings.ToLower(needle))
	case []string:
		for _, tag := range a {
			if strings.EqualFold(tag, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

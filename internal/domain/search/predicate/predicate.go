// Package predicate builds the metadata pre-filter applied to index queries:
// a conjunction of equality conditions derived from a flat key-value map.
package predicate

import (
	"sort"
	"strings"
)

// Condition is a single metadata equality constraint.
type Condition struct {
	key   string
	value string
}

// Key returns the metadata field name.
func (c Condition) Key() string { return c.key }

// Value returns the required field value.
func (c Condition) Value() string { return c.value }

// Predicate is an ordered conjunction of equality conditions.
// An empty Predicate matches all documents.
type Predicate struct {
	conditions []Condition
}

// FromMap derives a Predicate from a flat filter map. Entries whose key or
// value is empty after trimming are dropped, not rejected. Conditions are
// emitted in sorted key order so the derivation is deterministic.
func FromMap(filters map[string]string) Predicate {
	if len(filters) == 0 {
		return Predicate{}
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(filters[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, k := range keys {
		conditions = append(conditions, Condition{key: k, value: filters[k]})
	}
	return Predicate{conditions: conditions}
}

// Conditions returns the equality conditions in derivation order.
func (p Predicate) Conditions() []Condition { return p.conditions }

// IsEmpty reports whether the predicate matches all documents.
func (p Predicate) IsEmpty() bool { return len(p.conditions) == 0 }

package litetable

import "bytes"

// Condition is an equality check against the latest version of a single cell.
type Condition struct {
	Family    string `json:"family"`
	Qualifier []byte `json:"qualifier"`
	Value     []byte `json:"value"`
	// FilterIfMissing excludes rows that lack the targeted cell instead of letting them pass.
	FilterIfMissing bool `json:"filter_if_missing"`
}

// Matches evaluates the condition against a row.
func (c Condition) Matches(row Row) bool {
	latest, ok := row.Latest(c.Family, c.Qualifier)
	if !ok {
		return !c.FilterIfMissing
	}
	return bytes.Equal(latest, c.Value)
}

// Predicate is the logical AND of its conditions. A predicate without conditions accepts every
// row.
type Predicate struct {
	Conditions []Condition `json:"conditions"`
}

// Matches reports whether every condition accepts the row.
func (p Predicate) Matches(row Row) bool {
	for _, c := range p.Conditions {
		if !c.Matches(row) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the predicate accepts every row.
func (p Predicate) IsEmpty() bool {
	return len(p.Conditions) == 0
}

package litetable

import (
	"bytes"
	"slices"
)

// ScanQuery describes a range scan. StartRow is inclusive and StopRow exclusive; an empty bound
// is unbounded. No families means every family.
type ScanQuery struct {
	Families  []string   `json:"families,omitempty"`
	StartRow  []byte     `json:"start,omitempty"`
	StopRow   []byte     `json:"stop,omitempty"`
	Predicate *Predicate `json:"predicate,omitempty"`
}

// InRange reports whether a row key falls within the query bounds.
func (q ScanQuery) InRange(key []byte) bool {
	if len(q.StartRow) > 0 && bytes.Compare(key, q.StartRow) < 0 {
		return false
	}
	if len(q.StopRow) > 0 && bytes.Compare(key, q.StopRow) >= 0 {
		return false
	}
	return true
}

// WantsFamily reports whether cells of a family are part of the result.
func (q ScanQuery) WantsFamily(family string) bool {
	return len(q.Families) == 0 || slices.Contains(q.Families, family)
}

// Accepts reports whether the predicate, if any, accepts the row.
func (q ScanQuery) Accepts(row Row) bool {
	return q.Predicate == nil || q.Predicate.Matches(row)
}

// Project returns a copy of the row restricted to the queried families. The second return is
// false when nothing is left.
func (q ScanQuery) Project(row Row) (Row, bool) {
	out := Row{
		Key:     row.Key,
		Columns: make(map[string]VersionedQualifier, len(row.Columns)),
	}
	for family, qualifiers := range row.Columns {
		if !q.WantsFamily(family) || len(qualifiers) == 0 {
			continue
		}
		out.Columns[family] = qualifiers
	}
	return out, len(out.Columns) > 0
}

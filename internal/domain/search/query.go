package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// NoLimit asks the backend for every matching row it is willing to return.
const NoLimit = -1

// Operator identifies how a condition compares a field with its value.
type Operator string

const (
	// OpEqual matches rows whose field equals the value.
	OpEqual Operator = "="
	// OpNotEqual matches rows whose field differs from the value (or is missing).
	OpNotEqual Operator = "<>"
	// OpContains is a case-insensitive substring match.
	OpContains Operator = "CONTAINS"
)

// Conjunction joins the members of a condition group.
type Conjunction string

const (
	ConjunctionAnd Conjunction = "AND"
	ConjunctionOr  Conjunction = "OR"
)

// Condition is a single field predicate.
type Condition struct {
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Operator Operator `json:"operator"`
}

// ConditionGroup is a nested boolean tree of conditions.
type ConditionGroup struct {
	Conjunction Conjunction      `json:"conjunction"`
	Conditions  []Condition      `json:"conditions,omitempty"`
	Groups      []ConditionGroup `json:"groups,omitempty"`
}

// FacetRequest asks the backend to group-and-count the matching rows by Field.
// Limit < 0 means unbounded, MinCount drops smaller buckets, Missing adds a
// bucket for rows without the field.
type FacetRequest struct {
	Field    string `json:"field"`
	Limit    int    `json:"limit"`
	MinCount int    `json:"min_count"`
	Missing  bool   `json:"missing"`
}

// Query is an engine-neutral search request.
//
// The zero Limit is a count-only window; NewQuery starts with NoLimit.
type Query struct {
	Index      string         `json:"index"`
	Conditions ConditionGroup `json:"conditions"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
	Facets     []FacetRequest `json:"facets,omitempty"`
}

// NewQuery returns an unbounded query against index.
func NewQuery(index string) Query {
	return Query{
		Index:      index,
		Conditions: ConditionGroup{Conjunction: ConjunctionAnd},
		Limit:      NoLimit,
	}
}

// Where returns a copy of q with an extra top-level condition.
func (q Query) Where(field string, op Operator, value string) Query {
	out := q.clone()
	out.Conditions.Conditions = append(out.Conditions.Conditions, Condition{Field: field, Value: value, Operator: op})
	return out
}

// Range returns a copy of q with the given result window.
func (q Query) Range(offset, limit int) Query {
	out := q.clone()
	out.Offset = offset
	out.Limit = limit
	return out
}

// WithFacet returns a copy of q faceting on req.Field, replacing any earlier
// request for the same field.
func (q Query) WithFacet(req FacetRequest) Query {
	out := q.clone()
	facets := out.Facets[:0]
	for _, existing := range out.Facets {
		if existing.Field != req.Field {
			facets = append(facets, existing)
		}
	}
	out.Facets = append(facets, req)
	return out
}

// WithoutEquality returns an equivalent query with every equality condition on
// field removed, at any depth of the condition tree.
func (q Query) WithoutEquality(field string) Query {
	out := q.clone()
	out.Conditions = stripEquality(out.Conditions, field)
	return out
}

// Fingerprint is a stable digest of the query, usable as a cache key.
func (q Query) Fingerprint() string {
	payload, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:12])
}

// HasConditions reports whether the tree holds any condition at all.
func (g ConditionGroup) HasConditions() bool {
	if len(g.Conditions) > 0 {
		return true
	}
	for _, child := range g.Groups {
		if child.HasConditions() {
			return true
		}
	}
	return false
}

func stripEquality(group ConditionGroup, field string) ConditionGroup {
	out := ConditionGroup{Conjunction: group.Conjunction}
	for _, cond := range group.Conditions {
		if cond.Field == field && cond.Operator == OpEqual {
			continue
		}
		out.Conditions = append(out.Conditions, cond)
	}
	for _, child := range group.Groups {
		stripped := stripEquality(child, field)
		if !stripped.HasConditions() {
			continue
		}
		out.Groups = append(out.Groups, stripped)
	}
	return out
}

func (q Query) clone() Query {
	out := q
	out.Conditions = cloneGroup(q.Conditions)
	if q.Facets != nil {
		out.Facets = append([]FacetRequest(nil), q.Facets...)
	}
	return out
}

func cloneGroup(group ConditionGroup) ConditionGroup {
	out := ConditionGroup{Conjunction: group.Conjunction}
	if group.Conditions != nil {
		out.Conditions = append([]Condition(nil), group.Conditions...)
	}
	for _, child := range group.Groups {
		out.Groups = append(out.Groups, cloneGroup(child))
	}
	return out
}

package search

import (
	"sort"
	"strings"
)

// Match evaluates the condition tree against a row. An empty group matches.
func Match(row Row, group ConditionGroup) bool {
	or := group.Conjunction == ConjunctionOr
	seen := false
	for _, cond := range group.Conditions {
		ok := matchCondition(row, cond)
		seen = true
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	for _, child := range group.Groups {
		if !child.HasConditions() {
			continue
		}
		ok := Match(row, child)
		seen = true
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	if or {
		return !seen
	}
	return true
}

func matchCondition(row Row, cond Condition) bool {
	value, present := row.Fields[cond.Field]
	switch cond.Operator {
	case OpEqual:
		return present && value == cond.Value
	case OpNotEqual:
		return !present || value != cond.Value
	case OpContains:
		return present && strings.Contains(strings.ToLower(value), strings.ToLower(cond.Value))
	default:
		return false
	}
}

// CountFacet groups rows by field the way a faceting engine would, honouring
// the request's limit, min count and missing flag. Buckets are ordered by
// count descending, then value ascending.
func CountFacet(rows []Row, req FacetRequest) []FacetBucket {
	counts := make(map[string]int)
	missing := 0
	for _, row := range rows {
		value, ok := row.Fields[req.Field]
		if !ok || strings.TrimSpace(value) == "" {
			missing++
			continue
		}
		counts[value]++
	}
	minCount := req.MinCount
	if minCount < 1 {
		minCount = 1
	}
	buckets := make([]FacetBucket, 0, len(counts))
	for value, count := range counts {
		if count < minCount {
			continue
		}
		buckets = append(buckets, FacetBucket{Filter: QuoteValue(value), Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count == buckets[j].Count {
			return buckets[i].Filter < buckets[j].Filter
		}
		return buckets[i].Count > buckets[j].Count
	})
	if req.Limit >= 0 && len(buckets) > req.Limit {
		buckets = buckets[:req.Limit]
	}
	if req.Missing && missing >= minCount {
		buckets = append(buckets, FacetBucket{Filter: "!", Count: missing})
	}
	return buckets
}

// QuoteValue renders a facet value the way the engine reports it in Filter.
func QuoteValue(value string) string {
	return `"` + value + `"`
}

package metrics

// AggregateStats captures how a result set was folded into day events.
type AggregateStats struct {
	Rows    int `json:"rows"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
	Days    int `json:"days"`
}

// IsZero reports whether no rows were seen.
func (s AggregateStats) IsZero() bool {
	return s.Rows == 0 && s.Parsed == 0 && s.Skipped == 0 && s.Days == 0
}

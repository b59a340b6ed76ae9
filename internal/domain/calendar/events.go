package calendar

import (
	"fmt"
	"sort"

	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/pkg/metrics"
)

// EventOptions controls how day events are linked.
type EventOptions struct {
	DateField    string
	DayLinks     bool
	DayBase      string
	DirectToItem bool
}

type dayBucket struct {
	count   int
	itemURL string
}

// BuildEvents folds rows into one DayEvent per distinct calendar date, sorted
// by date. Rows whose date field is empty are skipped silently; rows whose
// date cannot be parsed are skipped with one notice each.
func BuildEvents(rows []search.Row, opts EventOptions) ([]DayEvent, []Notice, metrics.AggregateStats) {
	stats := metrics.AggregateStats{Rows: len(rows)}
	buckets := make(map[string]*dayBucket)
	var notices []Notice

	for _, row := range rows {
		text := StripMarkup(row.Field(opts.DateField))
		if text == "" {
			stats.Skipped++
			continue
		}
		date, err := ParseDate(text)
		if err != nil {
			stats.Skipped++
			notices = append(notices, Notice{
				Level:   NoticeStatus,
				Message: fmt.Sprintf("The date %q does not conform to a supported date format.", text),
			})
			continue
		}
		stats.Parsed++
		key := FormatDate(date)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &dayBucket{itemURL: row.URL}
			buckets[key] = bucket
		}
		bucket.count++
	}

	events := make([]DayEvent, 0, len(buckets))
	for date, bucket := range buckets {
		events = append(events, DayEvent{
			ID:    date,
			Start: date,
			Count: bucket.count,
			URL:   eventURL(date, bucket, opts),
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	stats.Days = len(events)
	return events, notices, stats
}

func eventURL(date string, bucket *dayBucket, opts EventOptions) string {
	if !opts.DayLinks {
		return ""
	}
	if bucket.count == 1 && opts.DirectToItem && bucket.itemURL != "" {
		return bucket.itemURL
	}
	return opts.DayBase + "/" + date
}

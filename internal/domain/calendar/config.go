package calendar

import "time"

// Config holds runtime knobs for the aggregator.
type Config struct {
	Index           string
	DateField       string
	YearField       string
	DayLinks        bool
	DayPath         string
	DirectToItem    bool
	QueryPolicy     QueryPolicy
	HeadingTemplate string
	Widget          WidgetConfig
	YearCacheTTL    time.Duration
}

// WidgetConfig carries the presentational options forwarded to the widget.
type WidgetConfig struct {
	EventBackgroundColor string
	MultiMonthMinWidth   int
	MultiMonthMaxColumns int
}

// DefaultHeadingTemplate is used when no heading template is configured.
const DefaultHeadingTemplate = "All results for {year}"

func (c Config) missingMappings() []string {
	var warnings []string
	if c.DateField == "" {
		warnings = append(warnings, "The Date field mapping cannot be empty in the calendar settings.")
	}
	if c.YearField == "" {
		warnings = append(warnings, "The Year field mapping cannot be empty in the calendar settings.")
	}
	return warnings
}

func (c Config) headingTemplate() string {
	if c.HeadingTemplate == "" {
		return DefaultHeadingTemplate
	}
	return c.HeadingTemplate
}

func (c Config) queryPolicy() QueryPolicy {
	switch c.QueryPolicy {
	case QueryAlways, QueryNever, QueryDayViewOnly:
		return c.QueryPolicy
	default:
		return QueryDayViewOnly
	}
}

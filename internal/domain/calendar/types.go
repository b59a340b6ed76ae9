package calendar

import (
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/pkg/metrics"
)

// DateLayout is the calendar-date wire format used for ids, starts and day paths.
const DateLayout = "2006-01-02"

// DayEvent is one calendar day with at least one matching result.
type DayEvent struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	Count int    `json:"count"`
	URL   string `json:"url,omitempty"`
}

// QueryPolicy decides when a day link carries the page's query string along.
type QueryPolicy string

const (
	// QueryDayViewOnly preserves the query string for day-view links but not
	// for direct item links.
	QueryDayViewOnly QueryPolicy = "day_view_only"
	// QueryAlways preserves the query string for every link.
	QueryAlways QueryPolicy = "always"
	// QueryNever drops the query string for every link.
	QueryNever QueryPolicy = "never"
)

// Options are the per-instance widget settings carried in the payload.
type Options struct {
	NavLinks             bool        `json:"navLinks"`
	DirectToItem         bool        `json:"directToItem"`
	EventBackgroundColor string      `json:"eventBackgroundColor"`
	MultiMonthMinWidth   int         `json:"multiMonthMinWidth"`
	MultiMonthMaxColumns int         `json:"multiMonthMaxColumns"`
	InitialDate          string      `json:"initialDate"`
	QueryPolicy          QueryPolicy `json:"queryPolicy,omitempty"`
}

// Payload is the serialized contract handed to the calendar controller.
// Events and Years are JSON documents embedded as strings.
type Payload struct {
	Index           int     `json:"index"`
	Events          string  `json:"events"`
	Years           string  `json:"years"`
	HeadingTemplate string  `json:"headingTemplate"`
	Options         Options `json:"options"`
}

// NoticeLevel classifies user-visible messages.
type NoticeLevel string

const (
	NoticeStatus  NoticeLevel = "status"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a non-fatal, user-visible message raised while aggregating.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Request describes one calendar render.
type Request struct {
	// Instance is the per-page calendar index.
	Instance int
	// Path is the page path, expected to contain a "year" segment.
	Path string
	// Filters narrow the search beyond the year scope.
	Filters []search.Condition
}

// View is the aggregate for one render. Payload is nil when rendering was
// suppressed by a configuration problem; Warnings then explain why.
type View struct {
	Payload     *Payload               `json:"payload,omitempty"`
	Events      []DayEvent             `json:"events"`
	Years       []int                  `json:"years"`
	InitialYear int                    `json:"initialYear"`
	Notices     []Notice               `json:"notices,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	Stats       metrics.AggregateStats `json:"stats"`
}

// Rendered reports whether the calendar should be drawn.
func (v View) Rendered() bool {
	return v.Payload != nil
}

// DayRequest asks for the rows of one calendar day.
type DayRequest struct {
	Path    string
	Date    string
	Filters []search.Condition
}

// DayView lists the rows falling on one date.
type DayView struct {
	Date     string       `json:"date"`
	YearPath string       `json:"yearPath"`
	Rows     []search.Row `json:"rows"`
	Notices  []Notice     `json:"notices,omitempty"`
}

package calendarview

import (
	"html/template"
	"time"

	"github.com/yanqian/searchcal/internal/domain/calendar"
)

// Widget is the contract of the calendar grid library.
type Widget interface {
	Render() error
	Destroy()
	// EventByID looks up an event by its id (the calendar date).
	EventByID(id string) (calendar.DayEvent, bool)
	// CurrentDate is the date the widget actually displays after Render.
	CurrentDate() time.Time
	// DayCells returns the rendered day cells in grid order.
	DayCells() []DayCell
	// ApplyDayCells replaces the cell attributes after a correction pass.
	ApplyDayCells(cells []DayCell)
	HTML() (template.HTML, error)
}

// WidgetFactory constructs a widget from fully merged options.
type WidgetFactory func(opts Options) (Widget, error)

// DayCell is a neutral view of one rendered grid cell.
type DayCell struct {
	Date        time.Time
	Title       string
	LabelledBy  string
	LabelExists bool
	AriaLabel   string
	HasEvents   bool
	TabIndex    int
	NavData     string
}

// Options is the merged widget configuration.
type Options struct {
	InitialView     string
	ContentHeight   string
	EventDisplay    string
	HeaderToolbar   bool
	DayHeaderFormat string

	NavLinks             bool
	DirectToItem         bool
	EventBackgroundColor string
	MultiMonthMinWidth   int
	MultiMonthMaxColumns int
	InitialDate          string

	// DayLinkBase prefixes the href of clickable day cells; DayLinkQuery is
	// appended to it so the click handler sees the page's filters.
	DayLinkBase  string
	DayLinkQuery string

	Events []calendar.DayEvent

	NavLinkDayClick func(day time.Time)
	NavLinkHint     func(label string, day time.Time) string
}

// Presets returns the built-in widget defaults.
func Presets() Options {
	return Options{
		InitialView:     "multiMonthYear",
		ContentHeight:   "auto",
		EventDisplay:    "background",
		HeaderToolbar:   false,
		DayHeaderFormat: "narrow",
	}
}

// MergeOptions layers the per-instance options over the presets and the
// events over both.
func MergeOptions(presets Options, instance calendar.Options, events []calendar.DayEvent) Options {
	merged := presets
	merged.NavLinks = instance.NavLinks
	merged.DirectToItem = instance.DirectToItem
	if instance.EventBackgroundColor != "" {
		merged.EventBackgroundColor = instance.EventBackgroundColor
	}
	if instance.MultiMonthMinWidth > 0 {
		merged.MultiMonthMinWidth = instance.MultiMonthMinWidth
	}
	if instance.MultiMonthMaxColumns > 0 {
		merged.MultiMonthMaxColumns = instance.MultiMonthMaxColumns
	}
	if instance.InitialDate != "" {
		merged.InitialDate = instance.InitialDate
	}
	merged.Events = append([]calendar.DayEvent(nil), events...)
	return merged
}

package yeargrid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/calendarview"
	"github.com/yanqian/searchcal/pkg/util"
)

const viewMultiMonthYear = "multiMonthYear"

var errDestroyed = errors.New("yeargrid: widget destroyed")

// Grid renders a whole year as twelve month tables. Cells padding a month
// with days of the adjacent months reference labels that are never emitted,
// which is what the accessibility pass has to repair.
type Grid struct {
	opts   calendarview.Options
	year   int
	events map[string]calendar.DayEvent

	months    []month
	cells     []calendarview.DayCell
	rendered  bool
	destroyed bool
}

type month struct {
	Title string
	Weeks [][]int // indexes into Grid.cells
}

// NewFactory returns a widget factory falling back to clock's year when the
// options carry no initial date.
func NewFactory(clock util.Clock) calendarview.WidgetFactory {
	if clock == nil {
		clock = util.NowUTC
	}
	return func(opts calendarview.Options) (calendarview.Widget, error) {
		return New(opts, clock())
	}
}

// New constructs a grid for the year of opts.InitialDate, or of now.
func New(opts calendarview.Options, now time.Time) (*Grid, error) {
	if opts.InitialView != "" && opts.InitialView != viewMultiMonthYear {
		return nil, fmt.Errorf("yeargrid: unsupported view %q", opts.InitialView)
	}
	year := now.Year()
	if opts.InitialDate != "" {
		initial, err := time.Parse(calendar.DateLayout, opts.InitialDate)
		if err != nil {
			return nil, fmt.Errorf("yeargrid: initial date: %w", err)
		}
		year = initial.Year()
	}
	events := make(map[string]calendar.DayEvent, len(opts.Events))
	for _, ev := range opts.Events {
		events[ev.ID] = ev
	}
	return &Grid{opts: opts, year: year, events: events}, nil
}

// Render lays out the twelve months with Sunday-first weeks.
func (g *Grid) Render() error {
	if g.destroyed {
		return errDestroyed
	}
	g.months = g.months[:0]
	g.cells = g.cells[:0]
	label := 0
	for m := time.January; m <= time.December; m++ {
		first := time.Date(g.year, m, 1, 0, 0, 0, 0, time.UTC)
		start := first.AddDate(0, 0, -int(first.Weekday()))
		last := first.AddDate(0, 1, -1)
		end := last.AddDate(0, 0, 6-int(last.Weekday()))

		mo := month{Title: first.Format("January 2006")}
		var week []int
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			label++
			inMonth := day.Month() == m
			_, hasEvent := g.events[day.Format(calendar.DateLayout)]
			cell := calendarview.DayCell{
				Date:        day,
				Title:       day.Format("January 2, 2006"),
				LabelledBy:  fmt.Sprintf("yg-label-%d", label),
				LabelExists: inMonth,
				HasEvents:   inMonth && hasEvent,
			}
			if g.opts.NavLinks && inMonth {
				nav, err := json.Marshal(map[string]string{"date": day.Format(calendar.DateLayout), "type": "day"})
				if err != nil {
					return err
				}
				cell.NavData = string(nav)
			}
			g.cells = append(g.cells, cell)
			week = append(week, len(g.cells)-1)
			if len(week) == 7 {
				mo.Weeks = append(mo.Weeks, week)
				week = nil
			}
		}
		g.months = append(g.months, mo)
	}
	g.rendered = true
	return nil
}

// Destroy drops the rendered state; the grid cannot be rendered again.
func (g *Grid) Destroy() {
	g.destroyed = true
	g.rendered = false
	g.months = nil
	g.cells = nil
	g.events = nil
}

// EventByID implements calendarview.Widget.
func (g *Grid) EventByID(id string) (calendar.DayEvent, bool) {
	ev, ok := g.events[id]
	return ev, ok
}

// CurrentDate is January 1st of the displayed year.
func (g *Grid) CurrentDate() time.Time {
	if g.destroyed {
		return time.Time{}
	}
	return time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// DayCells returns a copy of the rendered cells.
func (g *Grid) DayCells() []calendarview.DayCell {
	return append([]calendarview.DayCell(nil), g.cells...)
}

// ApplyDayCells replaces the cells; extra or missing entries are ignored.
func (g *Grid) ApplyDayCells(cells []calendarview.DayCell) {
	for i := range g.cells {
		if i < len(cells) {
			g.cells[i] = cells[i]
		}
	}
}

type cellView struct {
	Day         int
	InMonth     bool
	LabelID     string
	LabelledBy  string
	AriaLabel   string
	TabIndex    int
	NavData     string
	Hint        string
	Href        string
	Color       string
	HasEvents   bool
	Placeholder bool
}

type monthView struct {
	Title string
	Weeks [][]cellView
}

type gridView struct {
	Year     int
	MinWidth int
	Columns  int
	Months   []monthView
}

// HTML renders the grid markup. Render must have been called.
func (g *Grid) HTML() (template.HTML, error) {
	if !g.rendered {
		return "", errors.New("yeargrid: not rendered")
	}
	view := gridView{Year: g.year, MinWidth: g.opts.MultiMonthMinWidth, Columns: g.opts.MultiMonthMaxColumns}
	for i, mo := range g.months {
		mv := monthView{Title: mo.Title}
		for _, week := range mo.Weeks {
			row := make([]cellView, 0, len(week))
			for _, idx := range week {
				row = append(row, g.cellView(time.Month(i+1), g.cells[idx], idx))
			}
			mv.Weeks = append(mv.Weeks, row)
		}
		view.Months = append(view.Months, mv)
	}

	var buf bytes.Buffer
	if err := gridTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (g *Grid) cellView(m time.Month, cell calendarview.DayCell, idx int) cellView {
	inMonth := cell.Date.Month() == m
	cv := cellView{
		Day:        cell.Date.Day(),
		InMonth:    inMonth,
		LabelledBy: cell.LabelledBy,
		AriaLabel:  cell.AriaLabel,
		TabIndex:   cell.TabIndex,
		NavData:    cell.NavData,
		HasEvents:  cell.HasEvents,
	}
	if !inMonth {
		cv.Placeholder = true
		cv.TabIndex = -1
		return cv
	}
	cv.LabelID = fmt.Sprintf("yg-label-%d", idx+1)
	if cell.HasEvents {
		cv.Color = g.opts.EventBackgroundColor
	}
	if g.opts.NavLinks && g.opts.NavLinkHint != nil {
		cv.Hint = g.opts.NavLinkHint(cell.Title, cell.Date)
	}
	if g.opts.NavLinks && cell.HasEvents && g.opts.DayLinkBase != "" {
		cv.Href = g.opts.DayLinkBase + "/" + cell.Date.Format(calendar.DateLayout)
		if g.opts.DayLinkQuery != "" {
			cv.Href += "?" + g.opts.DayLinkQuery
		}
	}
	return cv
}

var gridTemplate = template.Must(template.New("yeargrid").Parse(`<div class="yg-year" data-year="{{.Year}}"{{if .Columns}} data-columns="{{.Columns}}"{{end}}>
{{- range .Months}}
<table class="yg-month"{{if $.MinWidth}} style="min-width: {{$.MinWidth}}px"{{end}}>
<caption>{{.Title}}</caption>
<thead><tr><th>S</th><th>M</th><th>T</th><th>W</th><th>T</th><th>F</th><th>S</th></tr></thead>
<tbody>
{{- range .Weeks}}
<tr>
{{- range .}}
<td class="yg-day{{if .Placeholder}} yg-day-other{{end}}{{if .HasEvents}} yg-day-event{{end}}"
{{- if .LabelledBy}} aria-labelledby="{{.LabelledBy}}"{{end}}
{{- if .AriaLabel}} aria-label="{{.AriaLabel}}"{{end}}
{{- if .NavData}} data-navlink="{{.NavData}}"{{end}}
{{- if .Hint}} title="{{.Hint}}"{{end}}
{{- if .Color}} style="background-color: {{.Color}}"{{end}} tabindex="{{.TabIndex}}">
{{- if .Placeholder}}<span class="yg-day-number">{{.Day}}</span>
{{- else if .Href}}<a id="{{.LabelID}}" class="yg-day-number" href="{{.Href}}">{{.Day}}</a>
{{- else}}<span id="{{.LabelID}}" class="yg-day-number">{{.Day}}</span>
{{- end}}</td>
{{- end}}
</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</div>`))

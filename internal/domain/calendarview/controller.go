package calendarview

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
)

// State tracks how far a controller got through attachment.
type State int

const (
	StateUninitialized State = iota
	StateConfiguring
	StateRendered
	StateAccessibilityPatched
	StateHeaderBound
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateRendered:
		return "rendered"
	case StateAccessibilityPatched:
		return "accessibility_patched"
	case StateHeaderBound:
		return "header_bound"
	default:
		return "uninitialized"
	}
}

// Attacher binds calendar controllers to page elements.
type Attacher struct {
	factory WidgetFactory
	logger  *slog.Logger
}

// NewAttacher constructs an Attacher around a widget factory.
func NewAttacher(factory WidgetFactory, logger *slog.Logger) *Attacher {
	return &Attacher{factory: factory, logger: logger}
}

// Controller owns the single widget bound to one element for one page view.
type Controller struct {
	element  *Element
	widget   Widget
	options  Options
	policy   calendar.QueryPolicy
	years    []int
	header   Header
	location Location
	nav      Navigator
	logger   *slog.Logger
	state    State
}

// Attach destroys whatever controller was bound to el, then configures,
// renders, patches and binds a fresh one from the payload.
func (a *Attacher) Attach(el *Element, payload calendar.Payload, loc Location, nav Navigator, dayLinkBase string) (*Controller, error) {
	if el == nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "calendar element is required", nil)
	}
	if prev := el.controller; prev != nil {
		prev.Destroy()
	}

	events, err := decodeEvents(payload.Events)
	if err != nil {
		return nil, err
	}
	years, err := decodeYears(payload.Years)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		element:  el,
		policy:   payload.Options.QueryPolicy,
		years:    years,
		location: loc,
		nav:      nav,
		logger:   a.logger.With("instance", el.Index),
		state:    StateConfiguring,
	}

	opts := MergeOptions(Presets(), payload.Options, events)
	opts.DayLinkBase = dayLinkBase
	opts.DayLinkQuery = loc.RawQuery
	if opts.NavLinks {
		// c.widget is assigned right after the factory returns; the handlers
		// only run once the widget is rendered.
		opts.NavLinkDayClick = c.DayClick
		opts.NavLinkHint = c.NavLinkHint
	}
	c.options = opts

	widget, err := a.factory(opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "construct calendar widget", err)
	}
	c.widget = widget
	el.controller = c

	if err := widget.Render(); err != nil {
		c.Destroy()
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "render calendar widget", err)
	}
	c.state = StateRendered

	widget.ApplyDayCells(PatchAccessibility(widget.DayCells()))
	c.state = StateAccessibilityPatched

	c.header = BuildHeader(payload.HeadingTemplate, years, c.DisplayedYear())
	c.state = StateHeaderBound

	c.logger.Debug("calendar attached", "events", len(events), "years", len(years), "displayed", c.DisplayedYear())
	return c, nil
}

func decodeEvents(raw string) ([]calendar.DayEvent, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var events []calendar.DayEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "decode calendar events", err)
	}
	return events, nil
}

func decodeYears(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "decode calendar years", err)
	}
	years := make([]int, 0, len(labels))
	for _, label := range labels {
		if y, ok := calendar.ParseYear(label); ok {
			years = append(years, y)
		}
	}
	return years, nil
}

// State reports the attachment progress.
func (c *Controller) State() State {
	return c.state
}

// Widget returns the live widget, or nil after Destroy.
func (c *Controller) Widget() Widget {
	return c.widget
}

// Options returns the merged options the widget was built from.
func (c *Controller) Options() Options {
	return c.options
}

// Header returns the bound year header.
func (c *Controller) Header() Header {
	return c.header
}

// DisplayedYear is the year the widget actually shows, or 0 when unknown.
func (c *Controller) DisplayedYear() int {
	if c.widget == nil {
		return 0
	}
	current := c.widget.CurrentDate()
	if current.IsZero() {
		return 0
	}
	return current.Year()
}

// Destroy releases the widget and unbinds the controller from its element.
func (c *Controller) Destroy() {
	if c.widget != nil {
		c.widget.Destroy()
		c.widget = nil
	}
	if c.element != nil && c.element.controller == c {
		c.element.controller = nil
	}
	c.state = StateUninitialized
}

// DayClick navigates to the url of the event on day. Days without an event
// or without a url are ignored.
func (c *Controller) DayClick(day time.Time) {
	if c.widget == nil || c.nav == nil {
		return
	}
	ev, ok := c.widget.EventByID(day.Format(calendar.DateLayout))
	if !ok || ev.URL == "" {
		return
	}
	target := ev.URL
	if c.preserveQuery(ev) {
		target = appendQuery(target, c.location.RawQuery)
	}
	c.logger.Debug("calendar day click", "date", ev.ID, "target", target)
	c.nav.Navigate(target)
}

// NavLinkHint describes how many results fall on day.
func (c *Controller) NavLinkHint(label string, day time.Time) string {
	count := 0
	if c.widget != nil {
		if ev, ok := c.widget.EventByID(day.Format(calendar.DateLayout)); ok {
			count = ev.Count
		}
	}
	switch {
	case count <= 0:
		return "No results for " + label
	case count == 1:
		return "1 result for " + label
	default:
		return fmt.Sprintf("%d results for %s", count, label)
	}
}

// ChangeYear navigates to the current path with its year segment set to
// year. It reports false when the path has no year segment.
func (c *Controller) ChangeYear(year int) bool {
	target, ok := RewriteYearPath(c.location.Path, year)
	if !ok || c.nav == nil {
		return false
	}
	c.nav.Navigate(appendQuery(target, c.location.RawQuery))
	return true
}

// HTML renders the header followed by the widget grid.
func (c *Controller) HTML() (template.HTML, error) {
	if c.widget == nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "calendar widget is not attached", nil)
	}
	header, err := c.header.HTML()
	if err != nil {
		return "", err
	}
	grid, err := c.widget.HTML()
	if err != nil {
		return "", err
	}
	return header + grid, nil
}

func (c *Controller) preserveQuery(ev calendar.DayEvent) bool {
	switch c.policy {
	case calendar.QueryAlways:
		return true
	case calendar.QueryNever:
		return false
	default:
		return !c.isDirectLink(ev)
	}
}

// Day-view urls always end in the event date; a single-result day linking
// anywhere else is a direct item link.
func (c *Controller) isDirectLink(ev calendar.DayEvent) bool {
	return c.options.DirectToItem && ev.Count == 1 && !strings.HasSuffix(ev.URL, "/"+ev.ID)
}

func appendQuery(target, rawQuery string) string {
	if rawQuery == "" {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + rawQuery
	}
	return target + "?" + rawQuery
}

// RewriteYearPath replaces the segment after the first literal "year"
// segment with year, appending it when missing.
func RewriteYearPath(path string, year int) (string, bool) {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != calendar.YearToken {
			continue
		}
		label := fmt.Sprintf("%d", year)
		if i+1 < len(segments) {
			segments[i+1] = label
		} else {
			segments = append(segments, label)
		}
		return strings.Join(segments, "/"), true
	}
	return "", false
}

package calendarview

import (
	"bytes"
	"html/template"
	"sort"
	"strconv"
	"strings"
)

// YearOption is one entry of the year selector.
type YearOption struct {
	Year     int
	Selected bool
}

// Header is the custom heading and year selector above the grid.
type Header struct {
	Heading string
	Options []YearOption
}

// Empty reports whether there is nothing to show.
func (h Header) Empty() bool {
	return len(h.Options) == 0
}

// BuildHeader substitutes the displayed year into the heading template and
// lists years ∪ {displayed} ascending with displayed selected. A zero
// displayed year means none; with no years either the header is empty.
func BuildHeader(headingTemplate string, years []int, displayed int) Header {
	set := make(map[int]struct{}, len(years)+1)
	for _, y := range years {
		if y > 0 {
			set[y] = struct{}{}
		}
	}
	if displayed > 0 {
		set[displayed] = struct{}{}
	}
	if len(set) == 0 {
		return Header{}
	}

	sorted := make([]int, 0, len(set))
	for y := range set {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)

	options := make([]YearOption, len(sorted))
	for i, y := range sorted {
		options[i] = YearOption{Year: y, Selected: y == displayed}
	}

	label := ""
	if displayed > 0 {
		label = strconv.Itoa(displayed)
	}
	heading := strings.NewReplacer("{year}", label, "<year>", label).Replace(headingTemplate)
	return Header{Heading: heading, Options: options}
}

var headerTemplate = template.Must(template.New("header").Parse(
	`<h3 class="fc-solr-header-label">{{.Heading}}</h3>` +
		`<select class="fc-solr-year-dropdown" name="year" aria-label="Select year">` +
		`{{range .Options}}<option value="{{.Year}}"{{if .Selected}} selected{{end}}>{{.Year}}</option>{{end}}` +
		`</select>`))

// HTML renders the header markup, or "" when the header is empty.
func (h Header) HTML() (template.HTML, error) {
	if h.Empty() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := headerTemplate.Execute(&buf, h); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

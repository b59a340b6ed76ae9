package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
)

var errUnparseableDate = errors.New("unparseable date")

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006-01",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
}

// StripMarkup returns the text content of rendered field output.
func StripMarkup(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return strings.TrimSpace(markup)
	}
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var builder strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(builder.String())
		case html.TextToken:
			builder.Write(tokenizer.Text())
		}
	}
}

// ParseDate parses the text of a date field into a calendar date at UTC
// midnight. Purely numeric text is treated as a bare year.
func ParseDate(text string) (time.Time, error) {
	value := strings.TrimSpace(text)
	if value == "" {
		return time.Time{}, errUnparseableDate
	}
	if isDigits(value) {
		value += "-01-01"
	}
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnparseableDate, text)
}

// FormatDate renders a calendar date in the wire layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package calendar

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/searchcal/internal/domain/search"
)

const (
	// YearToken is the literal path segment preceding the active year.
	YearToken = "year"
	// DayToken replaces YearToken in the sibling day-view path.
	DayToken = "day"
)

// CollectYears turns facet buckets into an ascending, de-duplicated list of
// years. Quoting artifacts are trimmed; non-numeric keys (including the
// missing bucket) are ignored.
func CollectYears(buckets []search.FacetBucket) []int {
	seen := make(map[int]struct{}, len(buckets))
	years := make([]int, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket.Count < 1 {
			continue
		}
		year, ok := ParseYear(bucket.Value())
		if !ok {
			continue
		}
		if _, dup := seen[year]; dup {
			continue
		}
		seen[year] = struct{}{}
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// ParseYear accepts a purely numeric year string.
func ParseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if !isDigits(value) {
		return 0, false
	}
	year, err := strconv.Atoi(value)
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

// YearFromPath returns the numeric segment following the "year" token.
func YearFromPath(path string) (int, bool) {
	segments := strings.Split(path, "/")
	idx := yearTokenIndex(segments)
	if idx < 0 || idx+1 >= len(segments) {
		return 0, false
	}
	return ParseYear(segments[idx+1])
}

// HasYearToken reports whether path carries the year routing token.
func HasYearToken(path string) bool {
	return yearTokenIndex(strings.Split(path, "/")) >= 0
}

// DayBasePath derives the sibling day-view base from a year page path:
// "/calendar/year/2022" becomes "/calendar/day".
func DayBasePath(path string) (string, bool) {
	segments := strings.Split(path, "/")
	idx := yearTokenIndex(segments)
	if idx < 0 {
		return "", false
	}
	base := append([]string(nil), segments[:idx]...)
	base = append(base, DayToken)
	return strings.Join(base, "/"), true
}

// YearPathFromDay maps a day-view path back to its year page:
// "/calendar/day/2022-03-04" becomes "/calendar/year/2022".
func YearPathFromDay(path string, year int) (string, bool) {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment != DayToken {
			continue
		}
		base := append([]string(nil), segments[:i]...)
		base = append(base, YearToken, strconv.Itoa(year))
		return strings.Join(base, "/"), true
	}
	return "", false
}

// ResolveInitialYear picks the year to display: the path year when present,
// else the earliest year with results, else the current year.
func ResolveInitialYear(pathYear int, hasPathYear bool, years []int, now time.Time) int {
	if hasPathYear {
		return pathYear
	}
	if len(years) > 0 {
		return years[0]
	}
	return now.Year()
}

func yearTokenIndex(segments []string) int {
	for i, segment := range segments {
		if segment == YearToken {
			return i
		}
	}
	return -1
}

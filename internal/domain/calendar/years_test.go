package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/search"
)

func TestCollectYears(t *testing.T) {
	buckets := []search.FacetBucket{
		{Filter: `"2022"`, Count: 3},
		{Filter: `"2019"`, Count: 1},
		{Filter: `2020`, Count: 4},
		{Filter: `"2022"`, Count: 1},
		{Filter: "!", Count: 9},
		{Filter: `"n/a"`, Count: 2},
	}
	require.Equal(t, []int{2019, 2020, 2022}, CollectYears(buckets))
	require.Equal(t, []int{}, CollectYears(nil))
}

func TestCollectYearsSortsNumerically(t *testing.T) {
	buckets := []search.FacetBucket{{Filter: `"10000"`, Count: 1}, {Filter: `"999"`, Count: 1}}
	require.Equal(t, []int{999, 10000}, CollectYears(buckets))
}

func TestYearFromPath(t *testing.T) {
	year, ok := YearFromPath("/calendar/year/2022")
	require.True(t, ok)
	require.Equal(t, 2022, year)

	_, ok = YearFromPath("/calendar/year")
	require.False(t, ok)
	_, ok = YearFromPath("/calendar/year/latest")
	require.False(t, ok)
	_, ok = YearFromPath("/calendar/2022")
	require.False(t, ok)
}

func TestDayBasePath(t *testing.T) {
	base, ok := DayBasePath("/calendar/year/2022")
	require.True(t, ok)
	require.Equal(t, "/calendar/day", base)

	base, ok = DayBasePath("/archive/issues/year")
	require.True(t, ok)
	require.Equal(t, "/archive/issues/day", base)

	_, ok = DayBasePath("/calendar")
	require.False(t, ok)
}

func TestYearPathFromDay(t *testing.T) {
	path, ok := YearPathFromDay("/calendar/day/2022-03-04", 2022)
	require.True(t, ok)
	require.Equal(t, "/calendar/year/2022", path)
}

func TestResolveInitialYear(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 2031, ResolveInitialYear(2031, true, []int{2020, 2022}, now))
	require.Equal(t, 2020, ResolveInitialYear(0, false, []int{2020, 2022}, now))
	require.Equal(t, 2026, ResolveInitialYear(0, false, nil, now))
}

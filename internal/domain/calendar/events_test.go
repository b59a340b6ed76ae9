package calendar

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/search"
)

func dateRow(id, date string) search.Row {
	return search.Row{ID: id, URL: "/node/" + id, Fields: map[string]string{"date": date}}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "2022", want: "2022-01-01"},
		{in: " 2022-03-04 ", want: "2022-03-04"},
		{in: "2022-03-04T23:30:00-05:00", want: "2022-03-04"},
		{in: "2022-03-04 08:15:00", want: "2022-03-04"},
		{in: "2022/03/04", want: "2022-03-04"},
		{in: "2022-03", want: "2022-03-01"},
		{in: "March 4, 2022", want: "2022-03-04"},
		{in: "4 March 2022", want: "2022-03-04"},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, FormatDate(got), tc.in)
	}

	_, err := ParseDate("not-a-date")
	require.Error(t, err)
}

func TestStripMarkup(t *testing.T) {
	require.Equal(t, "2022-03-04", StripMarkup(`<time datetime="2022-03-04T00:00:00Z">2022-03-04</time>`))
	require.Equal(t, "Q&A 2022", StripMarkup("<span>Q&amp;A</span> 2022"))
	require.Equal(t, "1999", StripMarkup("  1999 "))
	require.Equal(t, "", StripMarkup("<div></div>"))
}

func TestBuildEventsCountsAndLinks(t *testing.T) {
	rows := []search.Row{
		dateRow("1", "2022-03-04"),
		dateRow("2", "<time>2022-03-04T10:00:00Z</time>"),
		dateRow("3", "2022-05-06"),
		dateRow("4", "not-a-date"),
		dateRow("5", ""),
		dateRow("6", "2022"),
	}

	events, notices, stats := BuildEvents(rows, EventOptions{
		DateField:    "date",
		DayLinks:     true,
		DayBase:      "/calendar/day",
		DirectToItem: true,
	})

	require.Equal(t, []DayEvent{
		{ID: "2022-01-01", Start: "2022-01-01", Count: 1, URL: "/node/6"},
		{ID: "2022-03-04", Start: "2022-03-04", Count: 2, URL: "/calendar/day/2022-03-04"},
		{ID: "2022-05-06", Start: "2022-05-06", Count: 1, URL: "/node/3"},
	}, events)
	require.Len(t, notices, 1)
	require.Contains(t, notices[0].Message, `"not-a-date"`)
	require.Equal(t, 6, stats.Rows)
	require.Equal(t, 4, stats.Parsed)
	require.Equal(t, 2, stats.Skipped)
	require.Equal(t, 3, stats.Days)
}

func TestBuildEventsKeepsFirstItemURL(t *testing.T) {
	rows := []search.Row{dateRow("a", "2021-07-01"), dateRow("b", "2021-07-01")}

	events, _, _ := BuildEvents(rows, EventOptions{DateField: "date", DayLinks: true, DayBase: "/c/day", DirectToItem: true})
	require.Equal(t, "/c/day/2021-07-01", events[0].URL)

	events, _, _ = BuildEvents(rows[:1], EventOptions{DateField: "date", DayLinks: true, DayBase: "/c/day", DirectToItem: true})
	require.Equal(t, "/node/a", events[0].URL)
}

func TestBuildEventsWithoutNavigation(t *testing.T) {
	events, _, _ := BuildEvents([]search.Row{dateRow("1", "2020-02-02")}, EventOptions{DateField: "date", DirectToItem: true})
	require.Equal(t, "", events[0].URL)
}

func TestBuildEventsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 25; round++ {
		var rows []search.Row
		parseable := 0
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%d-%d", round, i)
			if rng.Intn(10) == 0 {
				rows = append(rows, dateRow(id, "garbage"))
				continue
			}
			day := start.AddDate(0, 0, rng.Intn(900))
			rows = append(rows, dateRow(id, day.Format(time.RFC3339)))
			parseable++
		}
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

		opts := EventOptions{DateField: "date", DayLinks: true, DayBase: "/cal/day"}
		events, _, _ := BuildEvents(rows, opts)

		total := 0
		starts := make(map[string]struct{}, len(events))
		for _, ev := range events {
			require.Equal(t, ev.ID, ev.Start)
			require.GreaterOrEqual(t, ev.Count, 1)
			_, dup := starts[ev.Start]
			require.False(t, dup, "duplicate start %s", ev.Start)
			starts[ev.Start] = struct{}{}
			total += ev.Count
		}
		require.Equal(t, parseable, total)

		again, _, _ := BuildEvents(rows, opts)
		require.Equal(t, events, again)
	}
}

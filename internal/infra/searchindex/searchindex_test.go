package searchindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/search"
)

func fixtureRows() []search.Row {
	return []search.Row{
		{ID: "a", URL: "/node/a", Fields: map[string]string{"title": "Flood report", "year": "2021", "type": "report"}},
		{ID: "b", URL: "/node/b", Fields: map[string]string{"title": "River levels", "year": "2022", "type": "report"}},
		{ID: "c", URL: "/node/c", Fields: map[string]string{"title": "Flood_warning", "year": "2022", "type": "issue"}},
		{ID: "d", URL: "/node/d", Fields: map[string]string{"title": "Undated", "type": "issue"}},
	}
}

type backend struct {
	name  string
	index search.Index
}

func backends(t *testing.T) []backend {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return []backend{
		{name: "memory", index: NewMemoryIndex(true)},
		{name: "sqlite", index: sqlite},
	}
}

func TestBackendsAgree(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			require.NoError(t, b.index.Put(ctx, "docs", fixtureRows()))
			require.NoError(t, b.index.Put(ctx, "other", []search.Row{{ID: "z", Fields: map[string]string{"year": "1999"}}}))

			res, err := b.index.Search(ctx, search.NewQuery("docs").Where("year", search.OpEqual, "2022"))
			require.NoError(t, err)
			require.Equal(t, 2, res.Total)
			require.Equal(t, []string{"b", "c"}, ids(res.Rows))
			require.Equal(t, "River levels", res.Rows[0].Field("title"))

			res, err = b.index.Search(ctx, search.NewQuery("docs").Where("title", search.OpContains, "flood"))
			require.NoError(t, err)
			require.Equal(t, []string{"a", "c"}, ids(res.Rows))

			res, err = b.index.Search(ctx, search.NewQuery("docs").Where("title", search.OpContains, "_"))
			require.NoError(t, err)
			require.Equal(t, []string{"c"}, ids(res.Rows))

			res, err = b.index.Search(ctx, search.NewQuery("docs").Where("year", search.OpNotEqual, "2022"))
			require.NoError(t, err)
			require.Equal(t, []string{"a", "d"}, ids(res.Rows))

			or := search.NewQuery("docs")
			or.Conditions.Groups = []search.ConditionGroup{{
				Conjunction: search.ConjunctionOr,
				Conditions: []search.Condition{
					{Field: "year", Value: "2021", Operator: search.OpEqual},
					{Field: "type", Value: "issue", Operator: search.OpEqual},
				},
			}}
			res, err = b.index.Search(ctx, or)
			require.NoError(t, err)
			require.Equal(t, []string{"a", "c", "d"}, ids(res.Rows))

			res, err = b.index.Search(ctx, search.NewQuery("docs").Range(1, 2))
			require.NoError(t, err)
			require.Equal(t, 4, res.Total)
			require.Equal(t, []string{"b", "c"}, ids(res.Rows))
		})
	}
}

func TestBackendsFacet(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			require.NoError(t, b.index.Put(ctx, "docs", fixtureRows()))

			q := search.NewQuery("docs").Range(0, 0).WithFacet(search.FacetRequest{Field: "year", Limit: search.NoLimit, MinCount: 1, Missing: true})
			res, err := b.index.Search(ctx, q)
			require.NoError(t, err)
			require.Empty(t, res.Rows)
			require.Equal(t, 4, res.Total)
			require.Equal(t, []search.FacetBucket{
				{Filter: `"2022"`, Count: 2},
				{Filter: `"2021"`, Count: 1},
				{Filter: "!", Count: 1},
			}, res.Facets["year"])

			q = search.NewQuery("docs").Range(0, 0).WithFacet(search.FacetRequest{Field: "year", Limit: 1, MinCount: 1})
			res, err = b.index.Search(ctx, q)
			require.NoError(t, err)
			require.Equal(t, []search.FacetBucket{{Filter: `"2022"`, Count: 2}}, res.Facets["year"])

			q = search.NewQuery("docs").Where("type", search.OpEqual, "report").Range(0, 0).WithFacet(search.FacetRequest{Field: "year", Limit: search.NoLimit, MinCount: 1})
			res, err = b.index.Search(ctx, q)
			require.NoError(t, err)
			require.Equal(t, []search.FacetBucket{{Filter: `"2021"`, Count: 1}, {Filter: `"2022"`, Count: 1}}, res.Facets["year"])
		})
	}
}

func TestPutReplacesRowsWithSameID(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			require.NoError(t, b.index.Put(ctx, "docs", []search.Row{{ID: "a", URL: "/old", Fields: map[string]string{"year": "2020"}}}))
			require.NoError(t, b.index.Put(ctx, "docs", []search.Row{{ID: "a", URL: "/new", Fields: map[string]string{"year": "2021"}}}))

			res, err := b.index.Search(ctx, search.NewQuery("docs"))
			require.NoError(t, err)
			require.Len(t, res.Rows, 1)
			require.Equal(t, "/new", res.Rows[0].URL)
			require.Equal(t, "2021", res.Rows[0].Field("year"))
		})
	}
}

func TestMemoryIndexWithoutFacets(t *testing.T) {
	idx := NewMemoryIndex(false)
	require.False(t, idx.Capabilities().Facets)
	_, err := idx.Search(context.Background(), search.NewQuery("docs").WithFacet(search.FacetRequest{Field: "year"}))
	require.ErrorIs(t, err, search.ErrFacetsUnsupported)
}

func TestMemoryIndexReturnsCopies(t *testing.T) {
	idx := NewMemoryIndex(true)
	row := search.Row{ID: "a", Fields: map[string]string{"year": "2020"}}
	require.NoError(t, idx.Put(context.Background(), "docs", []search.Row{row}))
	row.Fields["year"] = "1900"

	res, err := idx.Search(context.Background(), search.NewQuery("docs"))
	require.NoError(t, err)
	res.Rows[0].Fields["year"] = "1800"

	res, err = idx.Search(context.Background(), search.NewQuery("docs"))
	require.NoError(t, err)
	require.Equal(t, "2020", res.Rows[0].Field("year"))
	require.Equal(t, 1, idx.Len("docs"))
}

func TestSQLBuilderPlaceholders(t *testing.T) {
	q := search.NewQuery("docs").
		Where("year", search.OpEqual, "2022").
		Where("title", search.OpContains, "50%").
		Range(10, 5)

	stmt, args := selectRows(postgresDialect, q)
	require.Equal(t,
		`SELECT id, url, fields FROM documents WHERE index_name = $1 AND ((fields ->> $2::text) = $3 AND LOWER((fields ->> $4::text)) LIKE $5 ESCAPE '\') ORDER BY id LIMIT $6 OFFSET $7`,
		stmt)
	require.Equal(t, []any{"docs", "year", "2022", "title", `%50\%%`, 5, 10}, args)

	stmt, args = selectRows(sqliteDialect, q)
	require.Equal(t,
		`SELECT id, url, fields FROM documents WHERE index_name = ? AND (json_extract(fields, ?) = ? AND LOWER(json_extract(fields, ?)) LIKE ? ESCAPE '\') ORDER BY id LIMIT ? OFFSET ?`,
		stmt)
	require.Equal(t, []any{"docs", `$."year"`, "2022", `$."title"`, `%50\%%`, 5, 10}, args)

	stmt, _ = selectRows(sqliteDialect, q.Range(0, 0))
	require.Empty(t, stmt)

	stmt, _ = selectRows(sqliteDialect, q.Range(3, search.NoLimit))
	require.Contains(t, stmt, "LIMIT -1 OFFSET ?")
}

func TestSQLBuilderFacetBindsEveryOccurrence(t *testing.T) {
	q := search.NewQuery("docs").Where("type", search.OpNotEqual, "page")
	stmt, args := facetValues(sqliteDialect, q, search.FacetRequest{Field: "year", Limit: search.NoLimit})
	placeholders := 0
	for _, r := range stmt {
		if r == '?' {
			placeholders++
		}
	}
	require.Equal(t, len(args), placeholders)
	require.NotContains(t, stmt, "LIMIT")
	require.Equal(t, 1, args[len(args)-1])
}

func ids(rows []search.Row) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ID)
	}
	return out
}

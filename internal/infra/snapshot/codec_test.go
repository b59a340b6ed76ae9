package snapshot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/search"
)

func TestFormatFor(t *testing.T) {
	require.Equal(t, FormatJSON, FormatFor("seed/rows.json"))
	require.Equal(t, FormatJSONL, FormatFor("seed/rows.JSONL"))
	require.Equal(t, FormatJSONL, FormatFor("rows.ndjson"))
	require.Equal(t, FormatJSON, FormatFor("rows"))
}

func TestDecodeJSONL(t *testing.T) {
	input := `{"id":"a","url":"/node/a","fields":{"date":"2022-03-04"}}

{"id":"b","fields":{"date":"2022-03-05"}}
`
	rows, err := Decode(strings.NewReader(input), FormatJSONL)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "/node/a", rows[0].URL)
	require.Equal(t, "2022-03-05", rows[1].Field("date"))

	_, err = Decode(strings.NewReader("{\"id\":\"a\"}\nnot json\n"), FormatJSONL)
	require.ErrorContains(t, err, "line 2")
}

func TestEncodeThenDecode(t *testing.T) {
	rows := []search.Row{
		{ID: "a", URL: "/node/a", Fields: map[string]string{"date": "2022-03-04", "year": "2022"}},
		{ID: "b", Fields: map[string]string{"date": "2023-01-01"}},
	}
	for _, format := range []Format{FormatJSON, FormatJSONL} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, rows, format))
		decoded, err := Decode(&buf, format)
		require.NoError(t, err)
		require.Equal(t, rows, decoded)
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "abc.r2.cloudflarestorage.com", sanitizeEndpoint("https://abc.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
	require.Equal(t, "", sanitizeEndpoint(""))
}

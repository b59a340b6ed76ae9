package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/calendarview"
	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/internal/infra/config"
	"github.com/yanqian/searchcal/internal/infra/yeargrid"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
)

func TestRouter_CalendarPageRendersGridAndHeader(t *testing.T) {
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			require.Equal(t, "/calendar/year/2022", req.Path)
			require.Equal(t, []search.Condition{{Field: "title", Operator: search.OpContains, Value: "flood"}}, req.Filters)
			return renderedView(t, 2022, []calendar.DayEvent{{ID: "2022-03-04", Start: "2022-03-04", Count: 2, URL: "/calendar/day/2022-03-04"}}, []int{2021, 2022}), nil
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/year/2022?q=flood", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := recorder.Body.String()
	require.Contains(t, body, `All results for 2022`)
	require.Contains(t, body, `<option value="2022" selected>2022</option>`)
	require.Contains(t, body, `<option value="2021">2021</option>`)
	require.Contains(t, body, `action="/calendar/year/2022/select"`)
	require.Contains(t, body, `<input type="hidden" name="q" value="flood">`)
	require.Contains(t, body, `href="/calendar/year/2022/click/2022-03-04?q=flood"`)
	require.Contains(t, body, `title="2 results for March 4, 2022"`)
	require.Contains(t, body, `aria-label="Go to March 4, 2022"`)
}

func TestRouter_CalendarPageShowsWarningsWhenSuppressed(t *testing.T) {
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			return calendar.View{Warnings: []string{"The Date field mapping cannot be empty in the calendar settings."}}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/year", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "The Date field mapping cannot be empty")
	require.NotContains(t, recorder.Body.String(), "yg-year")
}

func TestRouter_CalendarPagePreview(t *testing.T) {
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			return renderedView(t, 2022, []calendar.DayEvent{{ID: "2022-03-04", Start: "2022-03-04", Count: 1}}, nil), nil
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/year/2022?preview=1", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `<pre class="searchcal-preview">`)
	require.Contains(t, recorder.Body.String(), "2022-03-04")
	require.NotContains(t, recorder.Body.String(), "yg-year")
}

func TestRouter_CalendarPageSearchFailure(t *testing.T) {
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			return calendar.View{}, apperrors.Wrap(apperrors.CodeSearch, "calendar search failed", errors.New("connection refused"))
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/year/2022", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusBadGateway, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "search_unavailable", errBody["error"]["code"])
}

func TestRouter_SelectYearRewritesPathAndKeepsQuery(t *testing.T) {
	server := newRouterUnderTest(t, &stubCalendar{}, &stubIngest{}, nil)

	recorder := performRequest(http.MethodGet, "/calendar/year/2021/select?q=flood&year=2023", "", server)
	require.Equal(t, http.StatusFound, recorder.Code)
	require.Equal(t, "/calendar/year/2023?q=flood", recorder.Header().Get("Location"))

	recorder = performRequest(http.MethodGet, "/calendar/year/2021/select?year=abc", "", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_ClickDay(t *testing.T) {
	events := []calendar.DayEvent{
		{ID: "2022-03-04", Start: "2022-03-04", Count: 2, URL: "/calendar/day/2022-03-04"},
		{ID: "2022-05-06", Start: "2022-05-06", Count: 1, URL: "/node/7"},
	}
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			require.Equal(t, "/calendar/year/2022", req.Path)
			view := renderedView(t, 2022, events, []int{2022})
			view.Payload.Options.DirectToItem = true
			return view, nil
		},
	}
	server := newRouterUnderTest(t, cal, &stubIngest{}, nil)

	recorder := performRequest(http.MethodGet, "/calendar/year/2022/click/2022-03-04?q=flood", "", server)
	require.Equal(t, http.StatusFound, recorder.Code)
	require.Equal(t, "/calendar/day/2022-03-04?q=flood", recorder.Header().Get("Location"))

	recorder = performRequest(http.MethodGet, "/calendar/year/2022/click/2022-05-06?q=flood", "", server)
	require.Equal(t, http.StatusFound, recorder.Code)
	require.Equal(t, "/node/7", recorder.Header().Get("Location"))

	recorder = performRequest(http.MethodGet, "/calendar/year/2022/click/2022-07-08?q=flood", "", server)
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	require.Equal(t, "/calendar/year/2022?q=flood", recorder.Header().Get("Location"))

	recorder = performRequest(http.MethodGet, "/calendar/year/2022/click/march", "", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_DayPage(t *testing.T) {
	cal := &stubCalendar{
		dayFn: func(ctx context.Context, req calendar.DayRequest) (calendar.DayView, error) {
			require.Equal(t, "/calendar/day/2022-03-04", req.Path)
			require.Equal(t, "2022-03-04", req.Date)
			return calendar.DayView{
				Date:     "2022-03-04",
				YearPath: "/calendar/year/2022",
				Rows: []search.Row{
					{ID: "a", URL: "/node/a", Fields: map[string]string{"title": "Flood report"}},
					{ID: "b"},
				},
			}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/day/2022-03-04?type=report", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	require.Contains(t, body, `<a href="/node/a">Flood report</a>`)
	require.Contains(t, body, `<li>b</li>`)
	require.Contains(t, body, `href="/calendar/year/2022?type=report"`)
}

func TestRouter_DayPageInvalidDate(t *testing.T) {
	cal := &stubCalendar{
		dayFn: func(ctx context.Context, req calendar.DayRequest) (calendar.DayView, error) {
			return calendar.DayView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "day must be formatted YYYY-MM-DD", nil)
		},
	}

	recorder := performRequest(http.MethodGet, "/calendar/day/yesterday", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_PayloadAPI(t *testing.T) {
	cal := &stubCalendar{
		buildFn: func(ctx context.Context, req calendar.Request) (calendar.View, error) {
			require.Equal(t, "/calendar/year/2022", req.Path)
			require.Equal(t, []search.Condition{{Field: "type", Operator: search.OpEqual, Value: "report"}}, req.Filters)
			return renderedView(t, 2022, nil, []int{2022}), nil
		},
	}
	server := newRouterUnderTest(t, cal, &stubIngest{}, nil)

	recorder := performRequest(http.MethodGet, "/api/v1/calendar/payload?year=2022&type=report", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	var got calendar.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, 2022, got.InitialYear)
	require.NotNil(t, got.Payload)
	require.Equal(t, "2022-01-01", got.Payload.Options.InitialDate)

	recorder = performRequest(http.MethodGet, "/api/v1/calendar/payload?year=twenty", "", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_YearsAPI(t *testing.T) {
	cal := &stubCalendar{
		yearsFn: func(ctx context.Context, req calendar.Request) ([]int, error) {
			return []int{2020, 2022}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/calendar/years", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"years":[2020,2022]}`, recorder.Body.String())
}

func TestRouter_YearsAPINotConfigured(t *testing.T) {
	cal := &stubCalendar{
		yearsFn: func(ctx context.Context, req calendar.Request) ([]int, error) {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "The Year field mapping cannot be empty in the calendar settings.", nil)
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/calendar/years", "", newRouterUnderTest(t, cal, &stubIngest{}, nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Equal(t, "not_configured", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

func TestRouter_IngestRequiresBearerToken(t *testing.T) {
	ing := &stubIngest{
		validateFn: func(ctx context.Context, token string) (ingest.Claims, error) {
			if token == "good" {
				return ingest.Claims{Subject: "crawler", Scope: "ingest"}, nil
			}
			return ingest.Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "invalid token", nil)
		},
		ingestFn: func(ctx context.Context, req ingest.Request) (ingest.Result, error) {
			require.Len(t, req.Documents, 1)
			return ingest.Result{Index: "content", Indexed: 1, IDs: []string{"a"}}, nil
		},
	}
	server := newRouterUnderTest(t, &stubCalendar{}, ing, nil)
	body := `{"documents":[{"id":"a","fields":{"date":"2022-03-04"}}]}`

	recorder := performRequest(http.MethodPost, "/api/v1/documents", body, server)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = performAuthorizedRequest(http.MethodPost, "/api/v1/documents", body, "bad", server)
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Equal(t, "invalid_token", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])

	recorder = performAuthorizedRequest(http.MethodPost, "/api/v1/documents", body, "good", server)
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.JSONEq(t, `{"index":"content","indexed":1,"ids":["a"]}`, recorder.Body.String())
}

func TestRouter_IngestInvalidInput(t *testing.T) {
	ing := &stubIngest{
		validateFn: func(ctx context.Context, token string) (ingest.Claims, error) {
			return ingest.Claims{Subject: "crawler"}, nil
		},
		ingestFn: func(ctx context.Context, req ingest.Request) (ingest.Result, error) {
			return ingest.Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, "documents cannot be empty", nil)
		},
	}
	server := newRouterUnderTest(t, &stubCalendar{}, ing, nil)

	recorder := performAuthorizedRequest(http.MethodPost, "/api/v1/documents", `{"documents":[]}`, "good", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, decodeErrorBody(t, recorder.Body.Bytes())["error"]["message"], "documents cannot be empty")

	recorder = performAuthorizedRequest(http.MethodPost, "/api/v1/documents", `{"documents":"nope"}`, "good", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_RetriesTransientReadFailures(t *testing.T) {
	calls := 0
	cal := &stubCalendar{
		yearsFn: func(ctx context.Context, req calendar.Request) ([]int, error) {
			calls++
			if calls == 1 {
				return nil, apperrors.Wrap(apperrors.CodeSearch, "year facet failed", errors.New("timeout"))
			}
			return []int{2022}, nil
		},
	}
	retry := &config.RetryConfig{Enabled: true, MaxAttempts: 2}

	recorder := performRequest(http.MethodGet, "/api/v1/calendar/years", "", newRouterUnderTest(t, cal, &stubIngest{}, retry))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 2, calls)
	require.JSONEq(t, `{"years":[2022]}`, recorder.Body.String())
}

func TestRouter_Health(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, &stubCalendar{}, &stubIngest{}, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
}

func renderedView(t *testing.T, year int, events []calendar.DayEvent, years []int) calendar.View {
	t.Helper()
	if events == nil {
		events = []calendar.DayEvent{}
	}
	eventsJSON, err := json.Marshal(events)
	require.NoError(t, err)
	yearLabels := make([]string, 0, len(years))
	for _, y := range years {
		yearLabels = append(yearLabels, time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006"))
	}
	yearsJSON, err := json.Marshal(yearLabels)
	require.NoError(t, err)
	return calendar.View{
		Payload: &calendar.Payload{
			Events:          string(eventsJSON),
			Years:           string(yearsJSON),
			HeadingTemplate: calendar.DefaultHeadingTemplate,
			Options: calendar.Options{
				NavLinks:    true,
				InitialDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(calendar.DateLayout),
				QueryPolicy: calendar.QueryDayViewOnly,
			},
		},
		Events:      events,
		Years:       years,
		InitialYear: year,
	}
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	return performAuthorizedRequest(method, path, body, "", server)
}

func performAuthorizedRequest(method, path, body, token string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, body []byte) map[string]map[string]string {
	t.Helper()
	var got map[string]map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	return got
}

func newRouterUnderTest(t *testing.T, cal calendar.Service, ing ingest.Service, retry *config.RetryConfig) *http.Server {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Calendar: config.CalendarConfig{
			BasePath:   "/calendar",
			TitleField: "title",
			TypeField:  "type",
		},
	}
	if retry != nil {
		cfg.HTTP.Retry = *retry
	}
	logger := newTestLogger()
	attacher := calendarview.NewAttacher(yeargrid.NewFactory(nil), logger)
	return NewRouter(cfg, NewHandler(cal, ing, attacher, cfg, logger))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubCalendar struct {
	buildFn func(ctx context.Context, req calendar.Request) (calendar.View, error)
	yearsFn func(ctx context.Context, req calendar.Request) ([]int, error)
	dayFn   func(ctx context.Context, req calendar.DayRequest) (calendar.DayView, error)
}

func (s *stubCalendar) Build(ctx context.Context, req calendar.Request) (calendar.View, error) {
	if s.buildFn != nil {
		return s.buildFn(ctx, req)
	}
	return calendar.View{}, nil
}

func (s *stubCalendar) Years(ctx context.Context, req calendar.Request) ([]int, error) {
	if s.yearsFn != nil {
		return s.yearsFn(ctx, req)
	}
	return []int{}, nil
}

func (s *stubCalendar) Day(ctx context.Context, req calendar.DayRequest) (calendar.DayView, error) {
	if s.dayFn != nil {
		return s.dayFn(ctx, req)
	}
	return calendar.DayView{}, nil
}

type stubIngest struct {
	ingestFn   func(ctx context.Context, req ingest.Request) (ingest.Result, error)
	validateFn func(ctx context.Context, token string) (ingest.Claims, error)
}

func (s *stubIngest) Ingest(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	if s.ingestFn != nil {
		return s.ingestFn(ctx, req)
	}
	return ingest.Result{}, nil
}

func (s *stubIngest) ValidateToken(ctx context.Context, token string) (ingest.Claims, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, token)
	}
	return ingest.Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "invalid token", nil)
}

func (s *stubIngest) IssueToken(subject string, ttl time.Duration) (string, error) {
	return "token-" + subject, nil
}

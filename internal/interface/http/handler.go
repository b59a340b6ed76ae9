package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/calendarview"
	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/internal/infra/config"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	calendarSvc calendar.Service
	ingestSvc   ingest.Service
	attacher    *calendarview.Attacher
	cfg         config.CalendarConfig
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(calendarSvc calendar.Service, ingestSvc ingest.Service, attacher *calendarview.Attacher, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		calendarSvc: calendarSvc,
		ingestSvc:   ingestSvc,
		attacher:    attacher,
		cfg:         cfg.Calendar,
		logger:      logger.With("component", "http.handler"),
	}
}

func (h *Handler) basePath() string {
	return "/" + strings.Trim(h.cfg.BasePath, "/")
}

func (h *Handler) yearPath(year string) string {
	if year == "" {
		return h.basePath() + "/" + calendar.YearToken
	}
	return h.basePath() + "/" + calendar.YearToken + "/" + year
}

// filters maps the page's own query parameters onto search conditions.
func (h *Handler) filters(c *gin.Context) []search.Condition {
	var out []search.Condition
	if q := strings.TrimSpace(c.Query("q")); q != "" && h.cfg.TitleField != "" {
		out = append(out, search.Condition{Field: h.cfg.TitleField, Operator: search.OpContains, Value: q})
	}
	if t := strings.TrimSpace(c.Query("type")); t != "" && h.cfg.TypeField != "" {
		out = append(out, search.Condition{Field: h.cfg.TypeField, Operator: search.OpEqual, Value: t})
	}
	return out
}

type hiddenInput struct {
	Name  string
	Value string
}

type calendarPage struct {
	Title        string
	Classes      string
	CalendarType string
	Warnings     []string
	Notices      []calendar.Notice
	Calendar     template.HTML
	SelectAction string
	Hidden       []hiddenInput
	Preview      string
	Total        int
}

// CalendarPage renders the yearly calendar for /{base}/year[/{year}].
func (h *Handler) CalendarPage(c *gin.Context) {
	path := h.yearPath(c.Param("year"))
	view, err := h.calendarSvc.Build(c.Request.Context(), calendar.Request{
		Path:    path,
		Filters: h.filters(c),
	})
	if err != nil {
		h.abortWithServiceError(c, "calendar_failed", err)
		return
	}

	page := calendarPage{
		Title:        "Calendar",
		Classes:      h.cfg.CSSClasses,
		CalendarType: h.cfg.CalendarType,
		Warnings:     view.Warnings,
		Notices:      view.Notices,
		Total:        view.Stats.Rows,
	}
	if !view.Rendered() {
		c.HTML(http.StatusOK, "calendar", page)
		return
	}

	if c.Query("preview") == "1" {
		page.Preview = view.Payload.Events
		c.HTML(http.StatusOK, "calendar", page)
		return
	}

	year := fmt.Sprintf("%04d", view.InitialYear)
	el := calendarview.NewElement(view.Payload.Index)
	el.Classes = h.cfg.CSSClasses
	loc := calendarview.Location{Path: path, RawQuery: c.Request.URL.RawQuery}
	ctrl, err := h.attacher.Attach(el, *view.Payload, loc, nil, h.yearPath(year)+"/click")
	if err != nil {
		h.abortWithServiceError(c, "calendar_failed", err)
		return
	}
	defer ctrl.Destroy()

	markup, err := ctrl.HTML()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "render_failed", errMessage(err), err))
		return
	}
	page.Calendar = markup
	page.SelectAction = h.yearPath(year) + "/select"
	page.Hidden = hiddenInputs(c.Request.URL.Query(), "year", "preview")
	c.HTML(http.StatusOK, "calendar", page)
}

// SelectYear handles the year dropdown: it moves to the same page with the
// year segment replaced, keeping the remaining query string.
func (h *Handler) SelectYear(c *gin.Context) {
	year, ok := calendar.ParseYear(c.Query("year"))
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "year must be a number", nil))
		return
	}
	query := c.Request.URL.Query()
	query.Del("year")
	target, ok := calendarview.RewriteYearPath(h.yearPath(c.Param("year")), year)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "calendar path has no year segment", nil))
		return
	}
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	c.Redirect(http.StatusFound, target)
}

// ClickDay replays a day click against a freshly attached calendar and
// redirects to wherever the click navigates. Days with nothing to open go
// back to the calendar page.
func (h *Handler) ClickDay(c *gin.Context) {
	day, err := time.Parse(calendar.DateLayout, c.Param("date"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "day must be formatted YYYY-MM-DD", err))
		return
	}
	path := h.yearPath(c.Param("year"))
	back := path
	if raw := c.Request.URL.RawQuery; raw != "" {
		back += "?" + raw
	}

	view, err := h.calendarSvc.Build(c.Request.Context(), calendar.Request{Path: path, Filters: h.filters(c)})
	if err != nil {
		h.abortWithServiceError(c, "calendar_failed", err)
		return
	}
	if !view.Rendered() {
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	var target string
	nav := calendarview.NavigatorFunc(func(to string) { target = to })
	loc := calendarview.Location{Path: path, RawQuery: c.Request.URL.RawQuery}
	ctrl, err := h.attacher.Attach(calendarview.NewElement(view.Payload.Index), *view.Payload, loc, nav, path+"/click")
	if err != nil {
		h.abortWithServiceError(c, "calendar_failed", err)
		return
	}
	defer ctrl.Destroy()

	ctrl.DayClick(day)
	if target == "" {
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	c.Redirect(http.StatusFound, target)
}

type dayPage struct {
	Title   string
	Date    string
	Back    string
	Rows    []dayRow
	Notices []calendar.Notice
}

type dayRow struct {
	Title string
	URL   string
}

// DayPage lists the results falling on one date.
func (h *Handler) DayPage(c *gin.Context) {
	path := h.basePath() + "/day/" + c.Param("date")
	view, err := h.calendarSvc.Day(c.Request.Context(), calendar.DayRequest{
		Path:    path,
		Date:    c.Param("date"),
		Filters: h.filters(c),
	})
	if err != nil {
		h.abortWithServiceError(c, "day_failed", err)
		return
	}

	page := dayPage{Title: "Results for " + view.Date, Date: view.Date, Back: view.YearPath, Notices: view.Notices}
	if raw := c.Request.URL.RawQuery; raw != "" && page.Back != "" {
		page.Back += "?" + raw
	}
	for _, row := range view.Rows {
		title := row.Field(h.cfg.TitleField)
		if title == "" {
			title = row.ID
		}
		page.Rows = append(page.Rows, dayRow{Title: title, URL: row.URL})
	}
	c.HTML(http.StatusOK, "day", page)
}

// Payload returns the aggregated calendar view as JSON.
func (h *Handler) Payload(c *gin.Context) {
	year := strings.TrimSpace(c.Query("year"))
	if year != "" {
		if _, ok := calendar.ParseYear(year); !ok {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "year must be a number", nil))
			return
		}
	}
	view, err := h.calendarSvc.Build(c.Request.Context(), calendar.Request{
		Path:    h.yearPath(year),
		Filters: h.filters(c),
	})
	if err != nil {
		h.abortWithServiceError(c, "calendar_failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Years returns the years holding at least one matching result.
func (h *Handler) Years(c *gin.Context) {
	years, err := h.calendarSvc.Years(c.Request.Context(), calendar.Request{Filters: h.filters(c)})
	if err != nil {
		h.abortWithServiceError(c, "years_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

// Ingest stores a batch of documents.
func (h *Handler) Ingest(c *gin.Context) {
	var req ingest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if claims, ok := getClaims(c); ok {
		h.logger.Info("ingest request", "subject", claims.Subject, "documents", len(req.Documents))
	}

	result, err := h.ingestSvc.Ingest(c.Request.Context(), req)
	if err != nil {
		h.abortWithServiceError(c, "ingest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) abortWithServiceError(c *gin.Context, fallback string, err error) {
	status := http.StatusInternalServerError
	code := fallback
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput:
		status, code = http.StatusBadRequest, "invalid_request"
	case apperrors.CodeSearch:
		status, code = http.StatusBadGateway, "search_unavailable"
	case apperrors.CodeConfig:
		status, code = http.StatusServiceUnavailable, "not_configured"
	case apperrors.CodeInvalidToken:
		status, code = http.StatusForbidden, "invalid_token"
	}
	abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
}

func hiddenInputs(values url.Values, skip ...string) []hiddenInput {
	for _, name := range skip {
		values.Del(name)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []hiddenInput
	for _, name := range names {
		for _, v := range values[name] {
			out = append(out, hiddenInput{Name: name, Value: v})
		}
	}
	return out
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yanqian/searchcal/internal/domain/search"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
	"github.com/yanqian/searchcal/pkg/util"
)

// Service aggregates search results into calendar payloads.
type Service interface {
	Build(ctx context.Context, req Request) (View, error)
	Years(ctx context.Context, req Request) ([]int, error)
	Day(ctx context.Context, req DayRequest) (DayView, error)
}

type service struct {
	cfg      Config
	searcher search.Searcher
	cache    YearCache
	logger   *slog.Logger
	now      util.Clock
}

// NewService wires up the aggregator.
func NewService(cfg Config, searcher search.Searcher, cache YearCache, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		searcher: searcher,
		cache:    cache,
		logger:   logger.With("component", "calendar.service"),
		now:      util.NowUTC,
	}
}

func (s *service) Build(ctx context.Context, req Request) (View, error) {
	if warnings := s.configWarnings(req.Path); len(warnings) > 0 {
		for _, w := range warnings {
			s.logger.Warn("calendar render suppressed", "path", req.Path, "reason", w)
		}
		return View{Warnings: warnings}, nil
	}

	pathYear, hasPathYear := YearFromPath(req.Path)
	query := s.baseQuery(req.Filters)
	if hasPathYear {
		query = query.Where(s.cfg.YearField, search.OpEqual, strconv.Itoa(pathYear))
	}

	result, err := s.searcher.Search(ctx, query)
	if err != nil {
		return View{}, apperrors.Wrap(apperrors.CodeSearch, "calendar search failed", err)
	}

	dayBase, err := s.dayBase(req.Path)
	if err != nil {
		return View{}, err
	}
	events, notices, stats := BuildEvents(result.Rows, EventOptions{
		DateField:    s.cfg.DateField,
		DayLinks:     s.cfg.DayLinks,
		DayBase:      dayBase,
		DirectToItem: s.cfg.DirectToItem,
	})
	for _, notice := range notices {
		s.logger.Warn("date field skipped", "path", req.Path, "notice", notice.Message)
	}

	years := s.yearIndex(ctx, query)
	initialYear := ResolveInitialYear(pathYear, hasPathYear, years, s.now())

	payload, err := s.payload(req.Instance, events, years, initialYear)
	if err != nil {
		return View{}, err
	}

	return View{
		Payload:     payload,
		Events:      events,
		Years:       years,
		InitialYear: initialYear,
		Notices:     notices,
		Stats:       stats,
	}, nil
}

func (s *service) Years(ctx context.Context, req Request) ([]int, error) {
	if warnings := s.cfg.missingMappings(); len(warnings) > 0 {
		return nil, apperrors.Wrap(apperrors.CodeConfig, strings.Join(warnings, " "), nil)
	}
	return s.yearIndex(ctx, s.baseQuery(req.Filters)), nil
}

func (s *service) Day(ctx context.Context, req DayRequest) (DayView, error) {
	if warnings := s.cfg.missingMappings(); len(warnings) > 0 {
		return DayView{}, apperrors.Wrap(apperrors.CodeConfig, strings.Join(warnings, " "), nil)
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return DayView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "day must be formatted YYYY-MM-DD", err)
	}

	query := s.baseQuery(req.Filters).Where(s.cfg.YearField, search.OpEqual, strconv.Itoa(date.Year()))
	result, err := s.searcher.Search(ctx, query)
	if err != nil {
		return DayView{}, apperrors.Wrap(apperrors.CodeSearch, "day search failed", err)
	}

	view := DayView{Date: FormatDate(date), Rows: []search.Row{}}
	if yearPath, ok := YearPathFromDay(req.Path, date.Year()); ok {
		view.YearPath = yearPath
	}
	for _, row := range result.Rows {
		text := StripMarkup(row.Field(s.cfg.DateField))
		if text == "" {
			continue
		}
		parsed, err := ParseDate(text)
		if err != nil {
			view.Notices = append(view.Notices, Notice{
				Level:   NoticeStatus,
				Message: fmt.Sprintf("The date %q does not conform to a supported date format.", text),
			})
			continue
		}
		if parsed.Equal(date) {
			view.Rows = append(view.Rows, row)
		}
	}
	return view, nil
}

func (s *service) configWarnings(path string) []string {
	warnings := s.cfg.missingMappings()
	if !HasYearToken(path) {
		warnings = append(warnings, fmt.Sprintf("The calendar path %q must contain a %q segment.", path, YearToken))
	}
	return warnings
}

func (s *service) baseQuery(filters []search.Condition) search.Query {
	query := search.NewQuery(s.cfg.Index)
	for _, f := range filters {
		query = query.Where(f.Field, f.Operator, f.Value)
	}
	return query
}

func (s *service) dayBase(path string) (string, error) {
	if s.cfg.DayPath != "" {
		return "/" + strings.Trim(s.cfg.DayPath, "/"), nil
	}
	base, ok := DayBasePath(path)
	if !ok {
		return "", apperrors.Wrap(apperrors.CodeConfig, "cannot derive day view path", nil)
	}
	return base, nil
}

// yearIndex facets the year-scoped query with its year filter removed. Any
// failure degrades to an empty index.
func (s *service) yearIndex(ctx context.Context, query search.Query) []int {
	if !s.searcher.Capabilities().Facets {
		s.logger.Debug("search backend cannot facet, year index disabled")
		return []int{}
	}

	facetQuery := query.
		WithoutEquality(s.cfg.YearField).
		Range(0, 0).
		WithFacet(search.FacetRequest{Field: s.cfg.YearField, Limit: search.NoLimit, MinCount: 1, Missing: false})
	key := s.cfg.Index + ":" + s.cfg.YearField + ":" + facetQuery.Fingerprint()

	if s.cache != nil {
		years, ok, err := s.cache.GetYears(ctx, key)
		if err != nil {
			s.logger.Warn("year cache lookup failed", "error", err)
		} else if ok {
			return years
		}
	}

	result, err := s.searcher.Search(ctx, facetQuery)
	if err != nil {
		s.logger.Warn("year facet query failed", "error", err)
		return []int{}
	}
	years := CollectYears(result.Facets[s.cfg.YearField])

	if s.cache != nil {
		if err := s.cache.PutYears(ctx, key, years, s.cfg.YearCacheTTL); err != nil {
			s.logger.Warn("year cache save failed", "error", err)
		}
	}
	return years
}

func (s *service) payload(instance int, events []DayEvent, years []int, initialYear int) (*Payload, error) {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	yearStrings := make([]string, len(years))
	for i, y := range years {
		yearStrings[i] = fmt.Sprintf("%04d", y)
	}
	yearsJSON, err := json.Marshal(yearStrings)
	if err != nil {
		return nil, fmt.Errorf("encode years: %w", err)
	}
	return &Payload{
		Index:           instance,
		Events:          string(eventsJSON),
		Years:           string(yearsJSON),
		HeadingTemplate: s.cfg.headingTemplate(),
		Options: Options{
			NavLinks:             s.cfg.DayLinks,
			DirectToItem:         s.cfg.DirectToItem,
			EventBackgroundColor: s.cfg.Widget.EventBackgroundColor,
			MultiMonthMinWidth:   s.cfg.Widget.MultiMonthMinWidth,
			MultiMonthMaxColumns: s.cfg.Widget.MultiMonthMaxColumns,
			InitialDate:          fmt.Sprintf("%04d-01-01", initialYear),
			QueryPolicy:          s.cfg.queryPolicy(),
		},
	}, nil
}

package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/calendarview"
	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/internal/infra/config"
	"github.com/yanqian/searchcal/internal/infra/searchindex"
	"github.com/yanqian/searchcal/internal/infra/snapshot"
	"github.com/yanqian/searchcal/internal/infra/yearcache"
	"github.com/yanqian/searchcal/internal/infra/yeargrid"
	"github.com/yanqian/searchcal/pkg/util"
)

// YearCache is the year index cache that is also dropped after ingestion.
type YearCache interface {
	calendar.YearCache
	ingest.Invalidator
}

// ProvideCalendarConfig maps the calendar section onto the aggregator config.
func ProvideCalendarConfig(cfg *config.Config) calendar.Config {
	return calendar.Config{
		Index:           cfg.Calendar.Index,
		DateField:       cfg.Calendar.DateField,
		YearField:       cfg.Calendar.YearField,
		DayLinks:        cfg.Calendar.DayLinks,
		DayPath:         cfg.Calendar.DayPath,
		DirectToItem:    cfg.Calendar.DirectToItem,
		QueryPolicy:     calendar.QueryPolicy(cfg.Calendar.QueryPolicy),
		HeadingTemplate: cfg.Calendar.HeadingTemplate,
		YearCacheTTL:    cfg.Calendar.YearCacheTTL,
		Widget: calendar.WidgetConfig{
			EventBackgroundColor: cfg.Calendar.Widget.EventBackgroundColor,
			MultiMonthMinWidth:   cfg.Calendar.Widget.MultiMonthMinWidth,
			MultiMonthMaxColumns: cfg.Calendar.Widget.MultiMonthMaxColumns,
		},
	}
}

// ProvideIngestConfig maps the ingest section; documents land in the
// calendar's index unless a request names another.
func ProvideIngestConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		Index:    cfg.Calendar.Index,
		Secret:   cfg.Ingest.Secret,
		Issuer:   cfg.Ingest.Issuer,
		TokenTTL: cfg.Ingest.TokenTTL,
		MaxBatch: cfg.Ingest.MaxBatch,
	}
}

// ProvideSearchIndex opens the configured backend. Postgres falls back to
// the in-memory index when unreachable; sqlite failures are fatal since the
// file is local.
func ProvideSearchIndex(cfg *config.Config, logger *slog.Logger) (search.Index, func(), error) {
	switch cfg.Search.Backend {
	case config.BackendPostgres:
		if idx, cleanup, ok := openPostgresIndex(cfg, logger); ok {
			return idx, cleanup, nil
		}
	case config.BackendSQLite:
		idx, err := searchindex.OpenSQLite(context.Background(), cfg.Search.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite search index enabled", "path", cfg.Search.SQLite.Path)
		return idx, func() { _ = idx.Close() }, nil
	}
	logger.Info("using memory search index", "facets", cfg.Search.Facets)
	return searchindex.NewMemoryIndex(cfg.Search.Facets), func() {}, nil
}

func openPostgresIndex(cfg *config.Config, logger *slog.Logger) (search.Index, func(), bool) {
	dsn := strings.TrimSpace(cfg.Search.Postgres.DSN)
	if dsn == "" {
		logger.Info("search postgres dsn not set, using memory index")
		return nil, nil, false
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory index", "error", err)
		return nil, nil, false
	}
	if cfg.Search.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Search.Postgres.MaxConns
	}
	if cfg.Search.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Search.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory index", "error", err)
		return nil, nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory index", "error", err)
		pool.Close()
		return nil, nil, false
	}
	idx := searchindex.NewPostgresIndex(pool)
	if err := idx.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory index", "error", err)
		pool.Close()
		return nil, nil, false
	}
	logger.Info("postgres search index enabled")
	return idx, pool.Close, true
}

// ProvideSearcher narrows the index to its query side.
func ProvideSearcher(idx search.Index) search.Searcher {
	return idx
}

// ProvideIndexer narrows the index to its write side.
func ProvideIndexer(idx search.Index) search.Indexer {
	return idx
}

// ProvideYearCache returns the valkey-backed cache when enabled and
// reachable, otherwise a process-local one.
func ProvideYearCache(cfg *config.Config, logger *slog.Logger) YearCache {
	if !cfg.Cache.Enabled {
		return yearcache.NewMemoryStore()
	}
	opt, err := buildValkeyOptions(cfg.Cache.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return yearcache.NewMemoryStore()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return yearcache.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return yearcache.NewMemoryStore()
	}
	logger.Info("valkey year cache enabled", "addr", cfg.Cache.Addr)
	return yearcache.NewValkeyStore(client, cfg.Cache.Prefix)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// ProvideCalendarCache exposes the cache to the aggregator.
func ProvideCalendarCache(c YearCache) calendar.YearCache {
	return c
}

// ProvideInvalidator exposes the cache to ingestion.
func ProvideInvalidator(c YearCache) ingest.Invalidator {
	return c
}

// ProvideSnapshot returns the object storage snapshot source, or nil when
// snapshots are disabled.
func ProvideSnapshot(cfg *config.Config, logger *slog.Logger) (*snapshot.MinioSource, error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	s := cfg.Snapshot
	return snapshot.NewMinioSource(s.Endpoint, s.AccessKey, s.SecretKey, s.Bucket, s.Region, logger)
}

// ProvideWidgetFactory builds year grids on the wall clock.
func ProvideWidgetFactory() calendarview.WidgetFactory {
	return yeargrid.NewFactory(util.NowUTC)
}

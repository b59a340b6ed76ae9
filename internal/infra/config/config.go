package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Search backends understood by the search section.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Calendar CalendarConfig `yaml:"calendar"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	AllowOrigins []string        `yaml:"allowOrigins"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// CalendarConfig holds the per-deployment calendar settings.
type CalendarConfig struct {
	BasePath        string        `yaml:"basePath"`
	Index           string        `yaml:"index"`
	DateField       string        `yaml:"dateField"`
	YearField       string        `yaml:"yearField"`
	TypeField       string        `yaml:"typeField"`
	TitleField      string        `yaml:"titleField"`
	DayLinks        bool          `yaml:"dayLinks"`
	DayPath         string        `yaml:"dayPath"`
	DirectToItem    bool          `yaml:"directToItem"`
	QueryPolicy     string        `yaml:"queryPolicy"`
	HeadingTemplate string        `yaml:"headingTemplate"`
	CalendarType    string        `yaml:"calendarType"`
	CSSClasses      string        `yaml:"cssClasses"`
	YearCacheTTL    time.Duration `yaml:"yearCacheTtl"`
	Widget          WidgetConfig  `yaml:"widget"`
}

// WidgetConfig are the grid presentation options.
type WidgetConfig struct {
	EventBackgroundColor string `yaml:"eventBackgroundColor"`
	MultiMonthMinWidth   int    `yaml:"multiMonthMinWidth"`
	MultiMonthMaxColumns int    `yaml:"multiMonthMaxColumns"`
}

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	Backend  string         `yaml:"backend"`
	Facets   bool           `yaml:"facets"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig contains connection information for the year index cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// SnapshotConfig locates an optional seed snapshot in object storage.
type SnapshotConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Object    string `yaml:"object"`
}

// IngestConfig guards the document ingestion endpoint.
type IngestConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
	MaxBatch int           `yaml:"maxBatch"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOW_ORIGINS"); v != "" {
		cfg.HTTP.AllowOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("CALENDAR_BASE_PATH"); v != "" {
		cfg.Calendar.BasePath = v
	}
	if v := os.Getenv("CALENDAR_INDEX"); v != "" {
		cfg.Calendar.Index = v
	}
	if v := os.Getenv("CALENDAR_DATE_FIELD"); v != "" {
		cfg.Calendar.DateField = v
	}
	if v := os.Getenv("CALENDAR_YEAR_FIELD"); v != "" {
		cfg.Calendar.YearField = v
	}
	if v := os.Getenv("CALENDAR_DAY_LINKS"); v != "" {
		cfg.Calendar.DayLinks = parseBool(v)
	}
	if v := os.Getenv("CALENDAR_DIRECT_TO_ITEM"); v != "" {
		cfg.Calendar.DirectToItem = parseBool(v)
	}
	if v := os.Getenv("CALENDAR_QUERY_POLICY"); v != "" {
		cfg.Calendar.QueryPolicy = v
	}
	if v := os.Getenv("CALENDAR_YEAR_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Calendar.YearCacheTTL = parsed
		}
	}
	if v := os.Getenv("SEARCH_BACKEND"); v != "" {
		cfg.Search.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SEARCH_FACETS"); v != "" {
		cfg.Search.Facets = parseBool(v)
	}
	if v := os.Getenv("SEARCH_POSTGRES_DSN"); v != "" {
		cfg.Search.Postgres.DSN = v
	}
	if v := os.Getenv("SEARCH_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Search.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("SEARCH_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Search.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("SEARCH_SQLITE_PATH"); v != "" {
		cfg.Search.SQLite.Path = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SNAPSHOT_ENABLED"); v != "" {
		cfg.Snapshot.Enabled = parseBool(v)
	}
	if v := os.Getenv("SNAPSHOT_ENDPOINT"); v != "" {
		cfg.Snapshot.Endpoint = v
	}
	if v := os.Getenv("SNAPSHOT_ACCESS_KEY"); v != "" {
		cfg.Snapshot.AccessKey = v
	}
	if v := os.Getenv("SNAPSHOT_SECRET_KEY"); v != "" {
		cfg.Snapshot.SecretKey = v
	}
	if v := os.Getenv("SNAPSHOT_BUCKET"); v != "" {
		cfg.Snapshot.Bucket = v
	}
	if v := os.Getenv("SNAPSHOT_OBJECT"); v != "" {
		cfg.Snapshot.Object = v
	}
	if v := os.Getenv("INGEST_SECRET"); v != "" {
		cfg.Ingest.Secret = v
	}
	if v := os.Getenv("INGEST_ISSUER"); v != "" {
		cfg.Ingest.Issuer = v
	}
	if v := os.Getenv("INGEST_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Ingest.TokenTTL = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             40,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 100 * time.Millisecond,
			},
		},
		Calendar: CalendarConfig{
			BasePath:        "/calendar",
			Index:           "content",
			DateField:       "date",
			YearField:       "year",
			TypeField:       "type",
			TitleField:      "title",
			DayLinks:        true,
			QueryPolicy:     "day_view_only",
			HeadingTemplate: "All results for {year}",
			CalendarType:    "multiMonthYear",
			YearCacheTTL:    10 * time.Minute,
			Widget: WidgetConfig{
				EventBackgroundColor: "#3788d8",
				MultiMonthMinWidth:   200,
				MultiMonthMaxColumns: 4,
			},
		},
		Search: SearchConfig{
			Backend: BackendMemory,
			Facets:  true,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			SQLite: SQLiteConfig{
				Path: "searchcal.db",
			},
		},
		Cache: CacheConfig{
			Prefix: "searchcal",
		},
		Ingest: IngestConfig{
			Issuer:   "searchcal",
			TokenTTL: 24 * time.Hour,
			MaxBatch: 1000,
		},
	}
}

// Validate ensures the configuration is safe to use. Empty calendar field
// mappings are not rejected here; the calendar renders a warning instead.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if !strings.HasPrefix(c.Calendar.BasePath, "/") {
		return errors.New("calendar.basePath must start with /")
	}
	if strings.TrimSpace(c.Calendar.Index) == "" {
		return errors.New("calendar.index cannot be empty")
	}
	switch c.Calendar.QueryPolicy {
	case "", "day_view_only", "always", "never":
	default:
		return fmt.Errorf("calendar.queryPolicy %q is not one of day_view_only, always, never", c.Calendar.QueryPolicy)
	}
	if c.Calendar.CalendarType != "" && c.Calendar.CalendarType != "multiMonthYear" {
		return fmt.Errorf("calendar.calendarType %q is not supported", c.Calendar.CalendarType)
	}
	if c.Calendar.YearCacheTTL < 0 {
		return errors.New("calendar.yearCacheTtl cannot be negative")
	}
	if c.Calendar.Widget.MultiMonthMinWidth < 0 || c.Calendar.Widget.MultiMonthMaxColumns < 0 {
		return errors.New("calendar.widget sizes cannot be negative")
	}
	switch c.Search.Backend {
	case BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.Search.Postgres.DSN) == "" {
			return errors.New("search.postgres.dsn cannot be empty for the postgres backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Search.SQLite.Path) == "" {
			return errors.New("search.sqlite.path cannot be empty for the sqlite backend")
		}
	default:
		return fmt.Errorf("search.backend %q is not one of memory, postgres, sqlite", c.Search.Backend)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when the cache is enabled")
	}
	if c.Snapshot.Enabled {
		if strings.TrimSpace(c.Snapshot.Endpoint) == "" || strings.TrimSpace(c.Snapshot.Bucket) == "" || strings.TrimSpace(c.Snapshot.Object) == "" {
			return errors.New("snapshot.endpoint, bucket and object are required when snapshots are enabled")
		}
	}
	if c.Ingest.MaxBatch < 0 {
		return errors.New("ingest.maxBatch cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/searchcal/internal/bootstrap"
	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/internal/infra/config"
	"github.com/yanqian/searchcal/pkg/logger"
)

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the searchcalctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "searchcalctl",
		Short:         "Administer the searchcal index",
		Long:          "searchcalctl imports and exports calendar documents, inspects year indexes and payloads, and issues ingest tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (overrides CONFIG_PATH)")

	root.AddCommand(newImportCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newYearsCmd(opts))
	root.AddCommand(newPayloadCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is the set of services one command invocation works with.
type env struct {
	cfg      *config.Config
	log      *slog.Logger
	index    search.Index
	calendar calendar.Service
	ingest   ingest.Service
	cleanup  func()
}

func (o *rootOptions) open(cmd *cobra.Command) (*env, error) {
	if o.configPath != "" {
		if err := os.Setenv("CONFIG_PATH", o.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewTo(cmd.ErrOrStderr())

	idx, cleanup, err := bootstrap.ProvideSearchIndex(cfg, log)
	if err != nil {
		return nil, err
	}
	cache := bootstrap.ProvideYearCache(cfg, log)
	return &env{
		cfg:      cfg,
		log:      log,
		index:    idx,
		calendar: calendar.NewService(bootstrap.ProvideCalendarConfig(cfg), idx, cache, log),
		ingest:   ingest.NewService(bootstrap.ProvideIngestConfig(cfg), idx, cache, log),
		cleanup:  cleanup,
	}, nil
}

func (e *env) filters(q, typ string) []search.Condition {
	var out []search.Condition
	if q = strings.TrimSpace(q); q != "" {
		out = append(out, search.Condition{Field: e.cfg.Calendar.TitleField, Operator: search.OpContains, Value: q})
	}
	if typ = strings.TrimSpace(typ); typ != "" {
		out = append(out, search.Condition{Field: e.cfg.Calendar.TypeField, Operator: search.OpEqual, Value: typ})
	}
	return out
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/searchcal/internal/domain/calendar"
)

func newYearsCmd(opts *rootOptions) *cobra.Command {
	var q, typ string
	cmd := &cobra.Command{
		Use:   "years",
		Short: "Print the years holding matching documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.cleanup()

			years, err := e.calendar.Years(cmd.Context(), calendar.Request{Filters: e.filters(q, typ)})
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string][]int{"years": years})
		},
	}
	cmd.Flags().StringVar(&q, "q", "", "substring filter on the title field")
	cmd.Flags().StringVar(&typ, "type", "", "equality filter on the type field")
	return cmd
}

func newPayloadCmd(opts *rootOptions) *cobra.Command {
	var q, typ, year string
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print the calendar payload a page would receive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year != "" {
				if _, ok := calendar.ParseYear(year); !ok {
					return fmt.Errorf("invalid year %q", year)
				}
			}
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.cleanup()

			path := "/" + strings.Trim(e.cfg.Calendar.BasePath, "/") + "/" + calendar.YearToken
			if year != "" {
				path += "/" + year
			}
			view, err := e.calendar.Build(cmd.Context(), calendar.Request{Path: path, Filters: e.filters(q, typ)})
			if err != nil {
				return err
			}
			return writeJSON(cmd, view)
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "year to render (defaults to the earliest year with results)")
	cmd.Flags().StringVar(&q, "q", "", "substring filter on the title field")
	cmd.Flags().StringVar(&typ, "type", "", "equality filter on the type field")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the ingest API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--subject is required")
			}
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.cleanup()

			token, err := e.ingest.IssueToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. the producer name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ingest.tokenTtl)")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

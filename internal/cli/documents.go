package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/searchcal/internal/bootstrap"
	"github.com/yanqian/searchcal/internal/domain/search"
	"github.com/yanqian/searchcal/internal/infra/snapshot"
)

var errSnapshotDisabled = errors.New("snapshot storage is not enabled in the config")

func newImportCmd(opts *rootOptions) *cobra.Command {
	var object, index string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import documents from a JSON/JSONL file or a snapshot object",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (object == "") {
				return errors.New("pass either a file or --object")
			}
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.cleanup()
			if index == "" {
				index = e.cfg.Calendar.Index
			}

			var loader bootstrap.RowLoader
			key := object
			if len(args) == 1 {
				loader = fileLoader{}
				key = args[0]
			} else {
				src, err := bootstrap.ProvideSnapshot(e.cfg, e.log)
				if err != nil {
					return err
				}
				if src == nil {
					return errSnapshotDisabled
				}
				loader = src
			}

			stored, err := bootstrap.SeedFrom(cmd.Context(), loader, key, e.ingest, index, e.cfg.Ingest.MaxBatch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents into %s\n", stored, index)
			return nil
		},
	}
	cmd.Flags().StringVar(&object, "object", "", "snapshot object key to import instead of a file")
	cmd.Flags().StringVar(&index, "index", "", "target index (defaults to calendar.index)")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var object, out, index string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every document of an index to a file or a snapshot object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (out == "") == (object == "") {
				return errors.New("pass either --out or --object")
			}
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.cleanup()
			if index == "" {
				index = e.cfg.Calendar.Index
			}

			res, err := e.index.Search(cmd.Context(), search.NewQuery(index))
			if err != nil {
				return err
			}

			if out != "" {
				if err := writeRowsFile(out, res.Rows); err != nil {
					return err
				}
			} else {
				src, err := bootstrap.ProvideSnapshot(e.cfg, e.log)
				if err != nil {
					return err
				}
				if src == nil {
					return errSnapshotDisabled
				}
				if err := src.Save(cmd.Context(), object, res.Rows); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d documents from %s\n", len(res.Rows), index)
			return nil
		},
	}
	cmd.Flags().StringVar(&object, "object", "", "snapshot object key to write")
	cmd.Flags().StringVar(&out, "out", "", "local file to write (.json or .jsonl)")
	cmd.Flags().StringVar(&index, "index", "", "source index (defaults to calendar.index)")
	return cmd
}

type fileLoader struct{}

func (fileLoader) Load(_ context.Context, path string) ([]search.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return snapshot.Decode(f, snapshot.FormatFor(path))
}

func writeRowsFile(path string, rows []search.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snapshot.Encode(f, rows, snapshot.FormatFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/index"
	"github.com/roach88/reqtrack/internal/record"
)

// IndexFileName is the lookup index database inside the reports directory.
const IndexFileName = "index.db"

// NewIndexCommand creates the index command and its query subcommands.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the SQLite lookup index",
		Long: `Rebuild <reports_dir>/index.db from the record files.

The index holds one row per record and one row per reference, so reverse
lookups ("what points at REQ-004?") need no scan of the JSON files. It is
derived data: rebuilding never touches the record files.

Examples:
  reqtrack index
  reqtrack index refs REQ-004
  reqtrack index show EPIC-002 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexBuild(rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one indexed record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, db *index.DB) error {
				entry, err := db.Record(ctx, args[0])
				if err != nil {
					return reportFault(f, err)
				}
				if f.Format == "json" {
					return f.Success(entry)
				}
				return f.Success(formatEntry(entry))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refs <id>",
		Short: "List records that reference an id",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, db *index.DB) error {
				refs, err := db.Referrers(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "query failed", err)
				}
				if f.Format == "json" {
					return f.Success(refs)
				}
				if len(refs) == 0 {
					return f.Success(fmt.Sprintf("No references to %s", args[0]))
				}
				return f.Success(formatRefs(refs))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dangling",
		Short: "List references whose target is not indexed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, db *index.DB) error {
				refs, err := db.Dangling(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "query failed", err)
				}
				if f.Format == "json" {
					return f.Success(refs)
				}
				if len(refs) == 0 {
					return f.Success("No dangling references")
				}
				return f.Success(formatRefs(refs))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the latest build and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIndex(rootOpts, cmd, func(ctx context.Context, f *OutputFormatter, db *index.DB) error {
				b, ok, err := db.LatestBuild(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "query failed", err)
				}
				if !ok {
					return f.Success("Index has never been built")
				}
				counts, err := db.Counts(ctx)
				if err != nil {
					return WrapExitError(ExitCommandError, "query failed", err)
				}
				if f.Format == "json" {
					return f.Success(map[string]interface{}{"build": b, "counts": counts})
				}
				return f.Success(formatBuild(b, counts))
			})
		},
	})

	return cmd
}

func indexPath(e *env) string {
	return filepath.Join(e.cfg.ReportsPath(), IndexFileName)
}

func runIndexBuild(opts *RootOptions, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.flushMetrics()
	f := formatterFor(opts, cmd)

	snap, err := e.store.LoadAll()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load records", err)
	}
	if err := os.MkdirAll(e.cfg.ReportsPath(), 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create reports directory", err)
	}

	path := indexPath(e)
	f.VerboseLog("Building index at %s", path)
	db, err := index.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open index", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			e.logger.Error("error closing index", "error", cerr)
		}
	}()

	b, err := db.Rebuild(cmd.Context(), snap, uuid.Must(uuid.NewV7()).String(), time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build index", err)
	}
	e.logger.Info("index built", "path", path, "build_id", b.ID, "records", b.RecordCount, "refs", b.RefCount)

	if f.Format == "json" {
		return f.Success(b)
	}
	msg := fmt.Sprintf("Indexed %d record(s) and %d reference(s) into %s", b.RecordCount, b.RefCount, path)
	if b.Skipped > 0 {
		msg += fmt.Sprintf("\n  skipped %d record(s) with duplicate IDs (run validate)", b.Skipped)
	}
	return f.Success(msg)
}

// withIndex opens an existing index for a read-only query.
func withIndex(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, *OutputFormatter, *index.DB) error) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	path := indexPath(e)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("index not found at %s: run 'reqtrack index' first", path))
	}

	db, err := index.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open index", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			e.logger.Error("error closing index", "error", cerr)
		}
	}()

	return fn(cmd.Context(), formatterFor(opts, cmd), db)
}

// reportFault prints a domain fault and exits with ExitFailure; other
// errors are command errors.
func reportFault(f *OutputFormatter, err error) error {
	fe, ok := fault.As(err)
	if !ok {
		return WrapExitError(ExitCommandError, "query failed", err)
	}
	if perr := f.Error(string(fe.Code), fe.Message, fe.Details); perr != nil {
		return perr
	}
	return NewExitError(ExitFailure, "")
}

func formatEntry(e index.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", e.ID, e.Family.Singular())
	fmt.Fprintf(&b, "  title:   %s\n", e.Title)
	fmt.Fprintf(&b, "  status:  %s\n", e.Status)
	if e.CurrentVersion != nil {
		fmt.Fprintf(&b, "  version: %d\n", *e.CurrentVersion)
	}
	fmt.Fprintf(&b, "  hash:    %s", e.ContentHash)
	return b.String()
}

func formatRefs(refs []index.Ref) string {
	lines := make([]string, len(refs))
	for i, r := range refs {
		src := r.Source
		if r.SourceVersion != nil {
			src = fmt.Sprintf("%s v%d", r.Source, *r.SourceVersion)
		}
		lines[i] = fmt.Sprintf("%s %s -> %s", src, r.Field, r.Target)
	}
	return strings.Join(lines, "\n")
}

func formatBuild(b index.Build, counts map[record.Family]int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Build %s at %s: %d record(s)", b.ID, b.BuiltAt, b.RecordCount)
	for _, f := range record.Families {
		fmt.Fprintf(&sb, "\n  %-13s %d", f, counts[f])
	}
	return sb.String()
}

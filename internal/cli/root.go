package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/metrics"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
)

// RootOptions are the persistent flags shared by every subcommand.
type RootOptions struct {
	Root        string
	ConfigPath  string
	Verbose     bool
	MetricsFile string
	Format      string
}

var outputFormats = []string{"text", "json"}

// NewRootCommand assembles the reqtrack command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reqtrack",
		Short: "reqtrack - requirements traceability store",
		Long: `Maintain releases, artifacts, requirements, features, epics and stories
as JSON record files, with versioned epics and stories and a validator
that checks the whole store for consistency.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if slices.Contains(outputFormats, opts.Format) {
				return nil
			}
			return NewExitError(ExitCommandError,
				fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, outputFormats))
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.Root, "root", ".", "directory holding "+config.FileName+" and the data files")
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default <root>/"+config.FileName+")")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and extra detail")
	pf.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		NewMutateCommand(opts),
		NewValidateCommand(opts),
		NewIndexCommand(opts),
		NewOpsCommand(opts),
		NewTestCommand(opts),
	)
	return cmd
}

// env is what a command needs to touch the store.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	metrics *metrics.Collector // nil unless --metrics-file is set
	opts    *RootOptions
}

// openEnv loads configuration and builds the logger and store.
// Logs always go to stderr: stdout carries command output.
func (o *RootOptions) openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.Root, o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	e := &env{
		cfg:    cfg,
		logger: logger,
		store:  store.New(cfg, logger),
		opts:   o,
	}
	if o.MetricsFile != "" {
		e.metrics = metrics.NewCollector()
	}
	return e, nil
}

// flushMetrics records store sizes and writes the textfile. Failures are
// logged; metrics never change a command's outcome.
func (e *env) flushMetrics() {
	if e.metrics == nil {
		return
	}
	if snap, err := e.store.LoadAll(); err == nil {
		for _, f := range record.Families {
			e.metrics.SetRecordCount(f, snap.Count(f))
		}
	} else {
		e.logger.Warn("metrics: load store", "error", err)
	}
	if err := e.metrics.WriteTextfile(e.opts.MetricsFile); err != nil {
		e.logger.Warn("metrics: write textfile", "path", e.opts.MetricsFile, "error", err)
	}
}

// exactArgs is cobra.ExactArgs with a command-error exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/validate"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Warnings bool
	JSON     bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the whole record store for consistency",
		Long: `Load every record family and report every problem found.

Errors cover ID formats, uniqueness, required fields, references, status
values and version lineage. Warnings cover missing artifact documents and
current versions pointing at deprecated upstream records; they are only
shown with --warnings and never affect the exit code.

Exit codes:
  0 - No errors
  1 - One or more errors
  2 - Command error (unreadable config, unreadable data files)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Warnings, "warnings", "w", false, "include advisory warnings")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "structured JSON output (same as --format json)")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.flushMetrics()

	v, err := validate.New(e.store, e.logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	report, err := v.Run(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "validation aborted", err)
	}
	if e.metrics != nil {
		e.metrics.ObserveValidation(len(report.Errors), len(report.Warnings))
	}

	w := cmd.OutOrStdout()
	if opts.JSON || opts.Format == "json" {
		err = report.WriteJSON(w, opts.Warnings)
	} else {
		err = report.WriteText(w, opts.Warnings)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	if !report.Valid() {
		return NewExitError(ExitFailure, "")
	}
	return nil
}

package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/mutate"
)

// MutateOptions holds flags for the mutate command.
type MutateOptions struct {
	*RootOptions
	Payload     string
	PayloadFile string
}

// NewMutateCommand creates the mutate command.
func NewMutateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mutate <operation>",
		Short: "Run one mutation operation",
		Long: `Run one mutation operation against the record store.

The payload is a JSON object given inline or read from a file. The result
is always a single JSON object on stdout:

  {"status": "success"|"error", "message": ..., "data"|"details": ...}

Exit codes:
  0 - Operation succeeded
  1 - Operation failed, including an unreadable config (the JSON result says why)

Examples:
  reqtrack mutate create_release --payload '{"id":"REL-2025-01-01","release_date":"2025-01-01","description":"Q1"}'
  reqtrack mutate create_epic --payload-file epic.json
  reqtrack ops   # list operation names`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "operation payload as a JSON object")
	cmd.Flags().StringVar(&opts.PayloadFile, "payload-file", "", "file containing the JSON payload")

	return cmd
}

func runMutate(opts *MutateOptions, op string, cmd *cobra.Command) error {
	e, err := opts.openEnv(cmd)
	if err != nil {
		// Even a broken configuration is answered with a JSON result.
		cause := err
		var ee *ExitError
		if errors.As(err, &ee) && ee.Err != nil {
			cause = ee.Err
		}
		return writeResult(cmd, mutate.ErrorResult(
			fault.New(fault.ParseError, "Cannot load configuration: %v", cause)))
	}
	defer e.flushMetrics()

	var res mutate.Result
	payload, perr := opts.readPayload()
	if perr != nil {
		res = mutate.ErrorResult(perr)
	} else {
		svcOpts := []mutate.Option{mutate.WithLogger(e.logger)}
		if e.metrics != nil {
			svcOpts = append(svcOpts, mutate.WithObserver(e.metrics))
		}
		res = mutate.New(e.store, svcOpts...).Execute(cmd.Context(), op, payload)
	}

	return writeResult(cmd, res)
}

// writeResult prints res and maps it to the exit status: 1 for an error
// result, which is already reported on stdout.
func writeResult(cmd *cobra.Command, res mutate.Result) error {
	if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
		return WrapExitError(ExitCommandError, "failed to write result", err)
	}
	if !res.OK() {
		return NewExitError(ExitFailure, "")
	}
	return nil
}

// readPayload returns the raw payload from exactly one of --payload and
// --payload-file.
func (o *MutateOptions) readPayload() ([]byte, error) {
	switch {
	case o.Payload != "" && o.PayloadFile != "":
		return nil, fault.New(fault.InvalidFormat, "Use either --payload or --payload-file, not both")
	case o.Payload != "":
		return []byte(o.Payload), nil
	case o.PayloadFile != "":
		data, err := os.ReadFile(o.PayloadFile)
		if err != nil {
			return nil, fault.New(fault.ParseError, "Cannot read payload file: %v", err).With("path", o.PayloadFile)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fault.New(fault.ParseError, "Payload file %s is empty", o.PayloadFile)
		}
		return data, nil
	}
	return nil, fault.New(fault.MissingField, "Either --payload or --payload-file is required")
}

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/harness"
)

type TestOptions struct {
	*RootOptions
	Update    bool
	Filter    string // glob on the scenario file name, extension stripped
	GoldenDir string
}

// ScenarioResult is one line of the test report.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult is the whole report, also the JSON payload.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	r.Total++
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run operation scenarios",
		Long: `Run every YAML scenario under a directory. Each scenario gets its own
temporary store; it passes when all flow expectations and assertions hold
and its step trace equals the golden file, when one exists.

Exits 1 if any scenario fails and 2 if the directory cannot be read.

Examples:
  reqtrack test ./scenarios
  reqtrack test ./scenarios --filter "epic_*"
  reqtrack test ./scenarios --update
  reqtrack test ./scenarios --format json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.Update, "update", false, "rewrite golden files from the current traces")
	flags.StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	flags.StringVar(&opts.GoldenDir, "golden-dir", "", "where golden traces live (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, "scenarios directory not found: "+dir)
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(dir, "golden")
	}

	files, err := scenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	f := formatterFor(opts.RootOptions, cmd)
	report := TestResult{Scenarios: []ScenarioResult{}}
	if len(files) == 0 && !f.isJSON() {
		return f.Success("No scenarios found.")
	}

	w := cmd.OutOrStdout()
	for _, file := range files {
		sr := runScenario(file, goldenDir, opts.Update)
		report.add(sr)
		if !f.isJSON() {
			printScenario(w, sr)
		}
	}

	if f.isJSON() {
		if report.Failed == 0 {
			return f.Success(report)
		}
		resp := CLIResponse{
			Status: "error",
			Data:   report,
			Error:  &CLIError{Code: "SCENARIO_FAILED", Message: fmt.Sprintf("%d scenario(s) failed", report.Failed)},
		}
		if err := writeJSON(w, resp); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "")
	}

	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	fmt.Fprintln(w, "All scenarios passed")
	return nil
}

// scenarioFiles lists the .yaml and .yml files below dir in lexical order.
func scenarioFiles(dir, filter string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func runScenario(file, goldenDir string, update bool) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(file), Errors: []string{"failed to load scenario: " + err.Error()}}
	}
	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: scenario.Name, Errors: []string{"execution failed: " + err.Error()}}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass}
	if len(result.Errors) > 0 {
		sr.Errors = result.Errors
	}
	if problem := compareGolden(scenario.Name, result, goldenDir, update); problem != "" {
		sr.Pass = false
		sr.Errors = append(sr.Errors, problem)
	}
	return sr
}

// compareGolden checks (or, with update, rewrites) the golden trace for a
// scenario and describes what went wrong. A missing golden file is not a
// failure.
func compareGolden(name string, result *harness.Result, goldenDir string, update bool) string {
	snapshot, err := harness.Snapshot(name, result)
	if err != nil {
		return "failed to marshal trace: " + err.Error()
	}
	path := filepath.Join(goldenDir, name+".golden")

	if update {
		if err := os.MkdirAll(goldenDir, 0o755); err != nil {
			return "failed to create golden directory: " + err.Error()
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return "failed to write golden file: " + err.Error()
		}
		return ""
	}

	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ""
	case err != nil:
		return "failed to read golden file: " + err.Error()
	case !bytes.Equal(want, snapshot):
		return "trace does not match golden file (run with --update to regenerate)"
	}
	return ""
}

func printScenario(w io.Writer, sr ScenarioResult) {
	verdict := "PASS"
	if !sr.Pass {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "%s %s\n", verdict, sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

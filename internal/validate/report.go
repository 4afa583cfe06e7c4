package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/reqtrack/internal/record"
)

// Report is the outcome of one validation run. Messages keep the order in
// which the checks found them.
type Report struct {
	Errors   []string
	Warnings []string
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Valid reports whether no errors were found. Warnings never fail a run.
func (r *Report) Valid() bool { return len(r.Errors) == 0 }

// Summary is the JSON form of a report.
type Summary struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	ErrorCount   int      `json:"error_count"`
	WarningCount int      `json:"warning_count"`
	Digest       string   `json:"digest"`
}

// visibleWarnings returns the warnings when they were asked for, otherwise
// an empty list.
func (r *Report) visibleWarnings(includeWarnings bool) []string {
	if !includeWarnings {
		return []string{}
	}
	return nonNil(r.Warnings)
}

// Digest hashes the sorted findings, so two runs over the same files
// produce the same digest regardless of check order.
func (r *Report) Digest(includeWarnings bool) (string, error) {
	errs := sortedCopy(r.Errors)
	warns := sortedCopy(r.visibleWarnings(includeWarnings))
	return record.Digest(map[string]any{"errors": errs, "warnings": warns})
}

// Summarize builds the JSON summary.
func (r *Report) Summarize(includeWarnings bool) (Summary, error) {
	digest, err := r.Digest(includeWarnings)
	if err != nil {
		return Summary{}, err
	}
	warns := r.visibleWarnings(includeWarnings)
	return Summary{
		Valid:        r.Valid(),
		Errors:       nonNil(r.Errors),
		Warnings:     warns,
		ErrorCount:   len(r.Errors),
		WarningCount: len(warns),
		Digest:       digest,
	}, nil
}

// WriteJSON writes the summary as indented JSON.
func (r *Report) WriteJSON(w io.Writer, includeWarnings bool) error {
	sum, err := r.Summarize(includeWarnings)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(sum)
}

// WriteText writes the human-readable report.
func (r *Report) WriteText(w io.Writer, includeWarnings bool) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	if len(r.Errors) > 0 {
		printf("ERRORS:\n")
		for _, e := range r.Errors {
			printf("  %s\n", e)
		}
		printf("\n")
	}

	warns := r.visibleWarnings(includeWarnings)
	if len(warns) > 0 {
		printf("WARNINGS:\n")
		for _, w := range warns {
			printf("  %s\n", w)
		}
		printf("\n")
	}

	if r.Valid() {
		printf("Validation PASSED\n")
		if len(warns) > 0 {
			printf("  (%d warning(s))\n", len(warns))
		}
	} else {
		printf("Validation FAILED (%d error(s))\n", len(r.Errors))
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedCopy(s []string) []string {
	out := append([]string{}, s...)
	sort.Strings(out)
	return out
}

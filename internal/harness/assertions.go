package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
	"github.com/roach88/reqtrack/internal/validate"
)

// AssertionContext carries what assertions need beyond the captured state.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks all assertions against the final state and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecord:
			err = assertRecord(result.State, a)
		case AssertRecordCount:
			err = assertRecordCount(result.State, a)
		case AssertValid:
			err = assertValid(actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

// assertRecord checks that a record exists and that the expected fields
// match (subset semantics).
func assertRecord(state map[record.Family][]interface{}, a Assertion) error {
	f, err := record.ParseFamily(a.Family)
	if err != nil {
		return err
	}
	for _, item := range state[f] {
		obj, ok := item.(map[string]interface{})
		if !ok || obj["id"] != a.ID {
			continue
		}
		want := normalizeMap(a.Expect)
		if !matchSubset(obj, want) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s %s with %v", f.Singular(), a.ID, want),
				Actual:   describeMismatch(obj, want),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertRecord,
		Expected: fmt.Sprintf("%s %s to exist", f.Singular(), a.ID),
		Actual:   "not found",
	}
}

func assertRecordCount(state map[record.Family][]interface{}, a Assertion) error {
	f, err := record.ParseFamily(a.Family)
	if err != nil {
		return err
	}
	if got := len(state[f]); got != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s", a.Count, f),
			Actual:   fmt.Sprintf("%d %s", got, f),
		}
	}
	return nil
}

// assertValid runs the repository validator over the final store.
func assertValid(actx *AssertionContext) error {
	v, err := validate.New(actx.Store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	report, err := v.Run(actx.Ctx)
	if err != nil {
		return err
	}
	if !report.Valid() {
		return &AssertionError{
			Type:     AssertValid,
			Expected: "no validation errors",
			Actual:   strings.Join(report.Errors, "; "),
		}
	}
	return nil
}

// describeMismatch lists the expected keys whose actual values differ.
func describeMismatch(got, want map[string]interface{}) string {
	var parts []string
	for k, wv := range want {
		gv, ok := got[k]
		if !ok {
			parts = append(parts, fmt.Sprintf("%s missing", k))
			continue
		}
		if !matchSubset(map[string]interface{}{k: gv}, map[string]interface{}{k: wv}) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, gv))
		}
	}
	return strings.Join(parts, ", ")
}

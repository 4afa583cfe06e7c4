package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reqtrack/internal/record"
)

// GoldenDir holds one <scenario>.golden trace per scenario, relative to the
// package under test.
const GoldenDir = "testdata/golden"

// TraceSnapshot is the golden-file form of a run: the flow trace only, so
// setup changes and assertion wording never churn the fixtures.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Steps        []StepResult `json:"steps"`
}

// Snapshot renders result's trace as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	return record.MarshalCanonical(TraceSnapshot{ScenarioName: name, Steps: result.Trace})
}

// RunWithGolden runs s and compares its trace with GoldenDir/<name>.golden.
// `go test -update` rewrites the fixture.
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}
	snap, err := Snapshot(s.Name, result)
	if err != nil {
		return nil, err
	}
	goldie.New(t, goldie.WithFixtureDir(GoldenDir), goldie.WithNameSuffix(".golden")).
		Assert(t, s.Name, snap)
	return result, nil
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestTestCommandRunsScenarios(t *testing.T) {
	out, _, err := execute(t, "test", harnessScenarios, "--golden-dir", "../harness/testdata/golden")
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS release_lifecycle\n")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", harnessScenarios, "--filter", "story_*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "test", harnessScenarios, "--filter", "release_*")
	require.NoError(t, err)
	data := decodeJSON(t, out)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["passed"])
}

func TestTestCommandMissingDir(t *testing.T) {
	_, _, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: one_release
description: Creates one release.
flow:
  - op: create_release
    payload:
      id: REL-2025-01-01
      release_date: "2025-01-01"
      description: Q1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(scenario), 0o644))

	_, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	golden := filepath.Join(dir, "golden", "one_release.golden")
	_, err = os.Stat(golden)
	require.NoError(t, err)

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"one_release","steps":[]}`), 0o644))
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong
description: Expects the wrong outcome.
flow:
  - op: set_release_status
    payload:
      id: REL-2025-01-01
      status: released
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL wrong\n")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

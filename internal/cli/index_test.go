package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBuildAndQuery(t *testing.T) {
	root := seedRoot(t)

	out, _, err := execute(t, "--root", root, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 5 record(s) and 5 reference(s)")

	_, err = os.Stat(filepath.Join(root, "reports", IndexFileName))
	require.NoError(t, err)

	out, _, err = execute(t, "--root", root, "index", "refs", "REQ-001")
	require.NoError(t, err)
	assert.Equal(t, "EPIC-001 v1 requirement_refs -> REQ-001\nFEAT-001 requirement_refs -> REQ-001\n", out)

	out, _, err = execute(t, "--root", root, "index", "show", "EPIC-001")
	require.NoError(t, err)
	assert.Contains(t, out, "EPIC-001 (Epic)\n  title:   Checkout\n  status:  active\n  version: 1\n")

	out, _, err = execute(t, "--root", root, "index", "dangling")
	require.NoError(t, err)
	assert.Equal(t, "No dangling references\n", out)
}

func TestIndexJSON(t *testing.T) {
	root := seedRoot(t)

	out, _, err := execute(t, "--root", root, "--format", "json", "index")
	require.NoError(t, err)
	res := decodeJSON(t, out)
	assert.Equal(t, "ok", res["status"])
	data := res["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["record_count"])
	assert.NotEmpty(t, data["id"])

	out, _, err = execute(t, "--root", root, "--format", "json", "index", "show", "FEAT-001")
	require.NoError(t, err)
	entry := decodeJSON(t, out)["data"].(map[string]interface{})
	assert.Equal(t, "features", entry["family"])
	assert.NotContains(t, entry, "current_version")

	out, _, err = execute(t, "--root", root, "--format", "json", "index", "status")
	require.NoError(t, err)
	status := decodeJSON(t, out)["data"].(map[string]interface{})
	counts := status["counts"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["epics"])
}

func TestIndexShowUnknownID(t *testing.T) {
	root := seedRoot(t)
	_, _, err := execute(t, "--root", root, "index")
	require.NoError(t, err)

	out, _, err := execute(t, "--root", root, "index", "show", "EPIC-404")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [NOT_FOUND]: Record 'EPIC-404' not found in index\n", out)
}

func TestIndexQueryWithoutBuild(t *testing.T) {
	_, _, err := execute(t, "--root", t.TempDir(), "index", "refs", "REQ-001")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run 'reqtrack index' first")
}

func TestIndexRebuildReplacesContents(t *testing.T) {
	root := seedRoot(t)
	_, _, err := execute(t, "--root", root, "index")
	require.NoError(t, err)

	mutateOK(t, root, "create_feature", `{"title":"Invoices","purpose":"Bill","business_value":"Cash"}`)
	out, _, err := execute(t, "--root", root, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 6 record(s)")

	out, _, err = execute(t, "--root", root, "index", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "  features      2")
}

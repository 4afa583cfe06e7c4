package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/store"
	"github.com/roach88/reqtrack/internal/testutil"
)

// setup copies a fixture directory into a fresh repository root and
// returns a validator over it.
func setup(t *testing.T, fixtures string) (*Validator, config.Config) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	if fixtures != "" {
		testutil.CopyFixtures(t, filepath.Join("testdata", fixtures), cfg.DataPath())
	}
	v, err := New(store.New(cfg, nil), nil)
	require.NoError(t, err)
	return v, cfg
}

func writeDoc(t *testing.T, cfg config.Config, rel string) {
	t.Helper()
	path := cfg.RootPath(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# doc\n"), 0o644))
}

func TestValidRepository(t *testing.T) {
	v, cfg := setup(t, "valid")
	writeDoc(t, cfg, "docs/refunds.md")

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Valid())
	assert.Empty(t, rep.Errors)
	assert.Empty(t, rep.Warnings)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf, true))
	assert.Equal(t, "Validation PASSED\n", buf.String())
}

func TestEmptyRepository(t *testing.T) {
	v, _ := setup(t, "")

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Valid())
	assert.Empty(t, rep.Warnings)
}

func TestMissingDocPathIsWarning(t *testing.T) {
	v, _ := setup(t, "valid")

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Valid())
	assert.Equal(t, []string{"[artifacts] ART-001: doc_path 'docs/refunds.md' does not exist"}, rep.Warnings)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf, true))
	assert.Equal(t, "WARNINGS:\n"+
		"  [artifacts] ART-001: doc_path 'docs/refunds.md' does not exist\n\n"+
		"Validation PASSED\n"+
		"  (1 warning(s))\n", buf.String())

	buf.Reset()
	require.NoError(t, rep.WriteText(&buf, false))
	assert.Equal(t, "Validation PASSED\n", buf.String())
}

func TestBrokenRepositoryReport(t *testing.T) {
	v, _ := setup(t, "broken")

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Valid())
	assert.Len(t, rep.Errors, 20)
	assert.Len(t, rep.Warnings, 8)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf, true))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "broken_report", buf.Bytes())
}

func TestJSONSummary(t *testing.T) {
	v, _ := setup(t, "broken")
	rep, err := v.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf, false))

	var sum Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sum))
	assert.False(t, sum.Valid)
	assert.Equal(t, 20, sum.ErrorCount)
	assert.Equal(t, 0, sum.WarningCount)
	assert.Equal(t, []string{}, sum.Warnings)
	assert.Len(t, sum.Digest, 64)
	assert.Contains(t, buf.String(), `"warnings": []`)
}

func TestDigestIsStable(t *testing.T) {
	v, cfg := setup(t, "broken")

	first, err := v.Run(context.Background())
	require.NoError(t, err)
	second, err := v.Run(context.Background())
	require.NoError(t, err)

	d1, err := first.Digest(true)
	require.NoError(t, err)
	d2, err := second.Digest(true)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	reordered := &Report{Errors: append([]string(nil), first.Errors...), Warnings: first.Warnings}
	reordered.Errors[0], reordered.Errors[1] = reordered.Errors[1], reordered.Errors[0]
	d3, err := reordered.Digest(true)
	require.NoError(t, err)
	assert.Equal(t, d1, d3)

	writeDoc(t, cfg, "docs/missing.md")
	third, err := v.Run(context.Background())
	require.NoError(t, err)
	d4, err := third.Digest(true)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d4)
}

func TestParseErrorIsReported(t *testing.T) {
	v, cfg := setup(t, "valid")
	writeDoc(t, cfg, "docs/refunds.md")
	testutil.WriteFamily(t, cfg.DataPath(), "features", `[{"id": "FEAT-001",`)

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	require.False(t, rep.Valid())
	assert.Contains(t, rep.Errors[0], "[features] JSON parse error:")
	// The epic's feature_ref no longer resolves once features.json is unreadable.
	assert.Contains(t, rep.Errors, "[epics] EPIC-001: Invalid feature_ref 'FEAT-001'")
}

func TestSchemaViolations(t *testing.T) {
	v, cfg := setup(t, "")
	testutil.WriteFamily(t, cfg.DataPath(), "releases", `[
		{"id": "REL-2025-01-01", "status": "planned", "release_date": "2025-01-01", "description": "d", "tags": "oops"},
		42
	]`)
	testutil.WriteFamily(t, cfg.DataPath(), "epics", `[
		{"id": "EPIC-001", "title": "t", "status": "active", "feature_ref": "FEAT-001",
		 "versions": [{"version": 0, "status": "backlog"}]}
	]`)

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	require.False(t, rep.Valid())

	var tags, notObject, version bool
	for _, e := range rep.Errors {
		switch {
		case strings.HasPrefix(e, "[releases] REL-2025-01-01: Schema violation: tags"):
			tags = true
		case e == "[releases] Record 1 is not an object":
			notObject = true
		case strings.HasPrefix(e, "[epics] EPIC-001: Schema violation: versions.0.version"):
			version = true
		}
	}
	assert.True(t, tags, "tags type error missing from %v", rep.Errors)
	assert.True(t, notObject, "non-object record missing from %v", rep.Errors)
	assert.True(t, version, "version bound error missing from %v", rep.Errors)
}

func TestSchemaViolationKeepsSemanticChecks(t *testing.T) {
	v, cfg := setup(t, "valid")
	writeDoc(t, cfg, "docs/refunds.md")
	testutil.WriteFamily(t, cfg.DataPath(), "epics", `[
		{"id": "EPIC-001", "title": "t", "status": "active", "feature_ref": "FEAT-999", "tags": "oops",
		 "versions": [{"version": 1, "status": "backlog"}, {"version": 3, "status": "backlog", "approved": "no"}]}
	]`)

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	require.False(t, rep.Valid())

	var schema []string
	for _, e := range rep.Errors {
		if strings.HasPrefix(e, "[epics] EPIC-001: Schema violation: ") {
			schema = append(schema, e)
		}
	}
	assert.NotEmpty(t, schema, "no schema errors in %v", rep.Errors)
	assert.Contains(t, rep.Errors, "[epics] EPIC-001: Invalid feature_ref 'FEAT-999'")
	assert.Contains(t, rep.Errors, "[epics] EPIC-001: Version numbers not monotonic (expected 2, found 3)")
	assert.Contains(t, rep.Errors, "[epics] EPIC-001: Multiple backlog versions (v1, v3)")
	assert.Len(t, rep.Errors, len(schema)+3)
}

func TestSingleDanglingRequirementRef(t *testing.T) {
	v, cfg := setup(t, "valid")
	writeDoc(t, cfg, "docs/refunds.md")
	testutil.WriteFamily(t, cfg.DataPath(), "features", `[
		{"id": "FEAT-001", "title": "Refunds", "status": "active", "purpose": "p", "business_value": "b",
		 "requirement_refs": ["REQ-002"]},
		{"id": "FEAT-003", "title": "Exports", "status": "active", "purpose": "p", "business_value": "b",
		 "requirement_refs": ["REQ-999"]}
	]`)

	rep, err := v.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[features] FEAT-003: Invalid requirement_refs 'REQ-999' (not found in requirements)",
	}, rep.Errors)
	assert.Empty(t, rep.Warnings)
}

func TestCanceledContext(t *testing.T) {
	v, _ := setup(t, "valid")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

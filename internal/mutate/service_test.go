package mutate

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
	"github.com/roach88/reqtrack/internal/testutil"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st := store.New(config.Default(t.TempDir()), nil)
	opts = append([]Option{
		WithClock(testutil.NewDeterministicClock()),
		WithOperationIDs(testutil.NewFixedIDGenerator("")),
	}, opts...)
	return New(st, opts...), st
}

func run(t *testing.T, svc *Service, op string, payload map[string]any) Result {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return svc.Execute(context.Background(), op, data)
}

func mustRun(t *testing.T, svc *Service, op string, payload map[string]any) Result {
	t.Helper()
	res := run(t, svc, op, payload)
	require.True(t, res.OK(), "%s failed: %s", op, res.Message)
	return res
}

// seed creates a planned release, an artifact, a requirement, a feature,
// an epic and a story.
func seed(t *testing.T, svc *Service) {
	t.Helper()
	mustRun(t, svc, "create_release", map[string]any{
		"id": "REL-2025-01-01", "release_date": "2025-01-01", "description": "Q1 launch"})
	mustRun(t, svc, "create_release", map[string]any{
		"id": "REL-2025-02-01", "release_date": "2025-02-01", "description": "Q1 follow-up"})
	mustRun(t, svc, "create_artifact", map[string]any{
		"title": "Refund policy", "type": "policy", "source": "Legal", "doc_path": "docs/refunds.md"})
	mustRun(t, svc, "create_requirement", map[string]any{
		"title": "Refunds", "type": "functional", "statement": "Users can request refunds",
		"rationale": "Law", "artifact_refs": []string{"ART-001"}})
	mustRun(t, svc, "create_feature", map[string]any{
		"title": "Payments", "purpose": "Take money", "business_value": "Revenue",
		"requirement_refs": []string{"REQ-001"}})
	mustRun(t, svc, "create_epic", map[string]any{
		"title": "Checkout", "feature_ref": "FEAT-001", "release_ref": "REL-2025-01-01",
		"summary": "v1 scope", "assumptions": []string{"cards only"}, "requirement_refs": []string{"REQ-001"}})
	mustRun(t, svc, "create_story", map[string]any{
		"title": "Pay by card", "epic_ref": "EPIC-001", "release_ref": "REL-2025-01-01",
		"description": "card flow"})
}

func load(t *testing.T, st *store.Store) *store.Snapshot {
	t.Helper()
	snap, err := st.LoadAll()
	require.NoError(t, err)
	return snap
}

func TestCreateRelease(t *testing.T) {
	svc, st := newTestService(t)

	res := mustRun(t, svc, "create_release", map[string]any{
		"id": "REL-2025-01-01", "release_date": "2025-01-01", "description": "Q1 launch"})
	assert.Equal(t, map[string]any{"id": "REL-2025-01-01"}, res.Data)

	snap := load(t, st)
	require.Len(t, snap.Releases, 1)
	rel := snap.Releases[0]
	assert.Equal(t, record.ReleasePlanned, rel.Status)
	assert.Equal(t, "REL-2025-01-01", rel.Title)
	assert.Nil(t, rel.GitTag)
	assert.Equal(t, []string{}, rel.Tags)
	assert.Equal(t, "2025-01-01T00:00:01Z", rel.CreatedAt)
}

func TestCreateReleaseErrors(t *testing.T) {
	svc, _ := newTestService(t)
	mustRun(t, svc, "create_release", map[string]any{
		"id": "REL-2025-01-01", "release_date": "2025-01-01", "description": "Q1"})

	tests := []struct {
		name    string
		payload map[string]any
		code    fault.Code
		message string
	}{
		{"missing field", map[string]any{"id": "REL-2025-03-01", "release_date": "2025-03-01"},
			fault.MissingField, "Missing required field: description"},
		{"bad format", map[string]any{"id": "REL-25-03-01", "release_date": "x", "description": "d"},
			fault.InvalidFormat, "Invalid release ID format: 'REL-25-03-01'"},
		{"duplicate", map[string]any{"id": "REL-2025-01-01", "release_date": "x", "description": "d"},
			fault.DuplicateID, "Release ID 'REL-2025-01-01' already exists"},
		{"wrong type", map[string]any{"id": "REL-2025-03-01", "release_date": 20250301, "description": "d"},
			fault.InvalidFormat, "Field 'release_date' must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, svc, "create_release", tt.payload)
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tt.code, res.Code())
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestReleaseNoLongerOpen(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	mustRun(t, svc, "set_release_status", map[string]any{"id": "REL-2025-01-01", "status": "released"})

	res := run(t, svc, "create_epic_version", map[string]any{
		"epic_id": "EPIC-001", "release_ref": "REL-2025-01-01", "summary": "v2"})
	assert.Equal(t, fault.InvariantViolation, res.Code())
	assert.Contains(t, res.Message, "release 'REL-2025-01-01' is not open")

	res = run(t, svc, "set_release_status", map[string]any{"id": "REL-2025-01-01", "status": "released"})
	assert.Equal(t, fault.InvalidTransition, res.Code())

	res = run(t, svc, "set_release_status", map[string]any{"id": "REL-2025-02-01", "status": "shipped"})
	assert.Equal(t, fault.InvalidFormat, res.Code())
}

func TestCreateEpicVersionCopiesForward(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	res := mustRun(t, svc, "create_epic_version", map[string]any{
		"epic_id": "EPIC-001", "release_ref": "REL-2025-02-01", "summary": "v2 scope"})
	assert.Equal(t, 2, res.Data["version"])
	assert.Equal(t, 1, res.Data["superseded_version"])
	assert.Equal(t, "discarded", res.Data["superseded_status"])

	epic := load(t, st).Epics[0]
	require.Len(t, epic.Versions, 2)
	v1, v2 := epic.Versions[0], epic.Versions[1]
	assert.Equal(t, record.VersionDiscarded, v1.Status)
	assert.Equal(t, record.VersionBacklog, v2.Status)
	require.NotNil(t, v2.Supersedes)
	assert.Equal(t, 1, *v2.Supersedes)
	assert.Equal(t, "v2 scope", v2.Summary)
	assert.Equal(t, []string{"cards only"}, v2.Assumptions)
	assert.Equal(t, []string{"REQ-001"}, v2.RequirementRefs)
	assert.Equal(t, "REL-2025-02-01", record.Deref(v2.ReleaseRef))
}

func TestApprovedVersionIsReleasedOnAdvance(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	mustRun(t, svc, "set_epic_approved", map[string]any{"epic_id": "EPIC-001", "approved": true})
	mustRun(t, svc, "create_epic_version", map[string]any{
		"epic_id": "EPIC-001", "release_ref": "REL-2025-02-01", "summary": "v2", "assumptions": []string{}})

	epic := load(t, st).Epics[0]
	assert.Equal(t, record.VersionReleased, epic.Versions[0].Status)
	assert.Equal(t, []string{}, epic.Versions[1].Assumptions)

	res := run(t, svc, "set_epic_approved", map[string]any{"epic_id": "EPIC-001", "approved": true, "version": 1})
	assert.Equal(t, fault.InvalidTransition, res.Code())
	assert.Equal(t, "Cannot modify approved on released version 1", res.Message)

	res = run(t, svc, "set_epic_approved", map[string]any{"epic_id": "EPIC-001", "approved": "yes"})
	assert.Equal(t, fault.InvalidFormat, res.Code())
}

func TestStoryApprovalGate(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	res := run(t, svc, "set_story_approved", map[string]any{"story_id": "STORY-001", "approved": true})
	assert.Equal(t, fault.InvariantViolation, res.Code())
	assert.Contains(t, res.Message, "missing acceptance_criteria")

	mustRun(t, svc, "create_story_version", map[string]any{
		"story_id": "STORY-001", "release_ref": "REL-2025-01-01", "description": "card flow v2",
		"acceptance_criteria": []string{"charges the card"}})
	res = run(t, svc, "set_story_approved", map[string]any{"story_id": "STORY-001", "approved": true})
	assert.Equal(t, fault.InvariantViolation, res.Code())
	assert.Contains(t, res.Message, "missing test_intent")

	mustRun(t, svc, "create_story_version", map[string]any{
		"story_id": "STORY-001", "release_ref": "REL-2025-01-01", "description": "card flow v3",
		"test_intent": map[string]any{"guarantees": []string{"no double charge"}}})
	res = mustRun(t, svc, "set_story_approved", map[string]any{"story_id": "STORY-001", "approved": true})
	assert.Equal(t, true, res.Data["approved"])

	story := load(t, st).Stories[0]
	require.Len(t, story.Versions, 3)
	v3 := story.Versions[2]
	assert.Equal(t, []string{"charges the card"}, v3.AcceptanceCriteria, "criteria copied forward")
	assert.Equal(t, []string{"no double charge"}, v3.TestIntent.Guarantees)
	assert.Equal(t, []string{}, v3.TestIntent.FailureModes)
	assert.True(t, v3.Approved)
}

func TestSetVersionStatus(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	res := mustRun(t, svc, "set_story_status", map[string]any{"story_id": "STORY-001", "status": "discarded"})
	assert.Equal(t, 1, res.Data["version"])

	res = run(t, svc, "set_story_version_status", map[string]any{"story_id": "STORY-001", "status": "backlog"})
	assert.Equal(t, fault.InvalidTransition, res.Code())
	assert.Equal(t, "Cannot modify discarded version 1", res.Message)

	res = run(t, svc, "create_story_version", map[string]any{
		"story_id": "STORY-001", "release_ref": "REL-2025-01-01", "description": "again"})
	assert.Equal(t, fault.InvariantViolation, res.Code())
	assert.Equal(t, "Story STORY-001 has no backlog version to supersede", res.Message)

	assert.Len(t, load(t, st).Stories[0].Versions, 1)
}

func TestSupersedeRequirement(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)
	for i := 2; i <= 10; i++ {
		mustRun(t, svc, "create_requirement", map[string]any{
			"title": "filler", "type": "non-functional", "statement": "s", "rationale": "r"})
	}

	res := mustRun(t, svc, "supersede_requirement", map[string]any{
		"old_id": "REQ-010",
		"new_requirement": map[string]any{
			"title": "Refunds v2", "type": "functional", "statement": "s2", "rationale": "r2"},
	})
	assert.Equal(t, map[string]any{"old_id": "REQ-010", "new_id": "REQ-011"}, res.Data)

	reqs := load(t, st).Requirements
	require.Len(t, reqs, 11)
	assert.Equal(t, record.StatusDeprecated, reqs[9].Status)
	assert.Equal(t, "REQ-011", record.Deref(reqs[9].SupersededBy))
	assert.Equal(t, record.StatusActive, reqs[10].Status)
	assert.Nil(t, reqs[10].SupersededBy)

	res = run(t, svc, "supersede_requirement", map[string]any{
		"old_id": "REQ-010",
		"new_requirement": map[string]any{"title": "t", "type": "functional", "statement": "s", "rationale": "r"},
	})
	assert.Equal(t, fault.InvalidTransition, res.Code())

	res = run(t, svc, "supersede_requirement", map[string]any{
		"old_id": "REQ-001", "new_requirement": map[string]any{"title": "t"}})
	assert.Equal(t, fault.MissingField, res.Code())
	assert.Equal(t, "Missing required field: new_requirement.type", res.Message)
}

func TestArtifactLifecycle(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	art := load(t, st).Artifacts[0]
	assert.Equal(t, record.ArtifactTypes{record.TypePolicy}, art.Type)
	assert.Equal(t, record.ArtifactDraft, art.Status)

	res := run(t, svc, "create_artifact", map[string]any{
		"title": "x", "type": []string{"policy", "memo"}, "source": "s", "doc_path": "d"})
	assert.Equal(t, fault.InvalidFormat, res.Code())
	assert.Contains(t, res.Message, "Invalid type 'memo'")

	mustRun(t, svc, "activate_domain_entry", map[string]any{"id": "ART-001"})
	res = run(t, svc, "activate_artifact", map[string]any{"id": "ART-001"})
	assert.Equal(t, fault.InvalidTransition, res.Code())

	mustRun(t, svc, "update_artifact", map[string]any{"id": "ART-001", "type": []string{"rule", "catalog"}})
	assert.Equal(t, record.ArtifactTypes{record.TypeRule, record.TypeCatalog}, load(t, st).Artifacts[0].Type)

	mustRun(t, svc, "deprecate_artifact", map[string]any{"id": "ART-001"})
	res = run(t, svc, "update_artifact", map[string]any{"id": "ART-001", "title": "new"})
	assert.Equal(t, fault.InvalidTransition, res.Code())
	assert.Equal(t, "Cannot update deprecated artifact ART-001", res.Message)

	res = run(t, svc, "deprecate_artifact", map[string]any{"id": "ART-001"})
	assert.Equal(t, fault.InvalidTransition, res.Code())
}

func TestReferenceChecksFailFast(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	res := run(t, svc, "create_feature", map[string]any{
		"title": "t", "purpose": "p", "business_value": "b",
		"requirement_refs": []string{"REQ-001", "REQ-998", "REQ-999"}})
	assert.Equal(t, fault.NotFound, res.Code())
	assert.Equal(t, "Requirement reference 'REQ-998' not found", res.Message)

	res = run(t, svc, "create_epic", map[string]any{
		"title": "t", "feature_ref": "FEAT-404", "release_ref": "REL-2025-01-01", "summary": "s"})
	assert.Equal(t, "Feature 'FEAT-404' not found", res.Message)

	res = run(t, svc, "update_feature", map[string]any{"id": "FEAT-001", "artifact_refs": []string{"ART-404"}})
	assert.Equal(t, "Artifact reference 'ART-404' not found", res.Message)
}

func TestDeprecateEpicDiscardsBacklog(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	res := mustRun(t, svc, "deprecate_epic", map[string]any{"epic_id": "EPIC-001"})
	assert.Equal(t, 1, res.Data["discarded_versions"])

	epic := load(t, st).Epics[0]
	assert.Equal(t, record.StatusDeprecated, epic.Status)
	assert.Equal(t, record.VersionDiscarded, epic.Versions[0].Status)

	res = run(t, svc, "deprecate_epic", map[string]any{"epic_id": "EPIC-001"})
	assert.Equal(t, fault.InvalidTransition, res.Code())
	assert.Equal(t, "Epic EPIC-001 is already deprecated", res.Message)
}

func TestFailedOperationWritesNothing(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	path := st.Config().FamilyPath(record.FamilyEpics)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	res := run(t, svc, "create_epic_version", map[string]any{
		"epic_id": "EPIC-001", "release_ref": "REL-2025-02-01", "summary": "v2",
		"artifact_refs": []string{"ART-404"}})
	require.False(t, res.OK())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// editFamily rewrites a family file through a generic decode so tests can
// plant fields the record types do not model.
func editFamily(t *testing.T, st *store.Store, f record.Family, edit func([]map[string]any)) {
	t.Helper()
	path := st.Config().FamilyPath(f)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	edit(items)
	data, err = json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestUnknownFieldsSurviveRewrite(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)

	editFamily(t, st, record.FamilyFeatures, func(items []map[string]any) {
		items[0]["priority"] = "high"
	})
	editFamily(t, st, record.FamilyEpics, func(items []map[string]any) {
		items[0]["team"] = "payments"
		v1 := items[0]["versions"].([]any)[0].(map[string]any)
		v1["estimate"] = map[string]any{"points": 5}
	})

	mustRun(t, svc, "create_feature", map[string]any{
		"title": "Invoicing", "purpose": "Bill", "business_value": "Revenue"})
	mustRun(t, svc, "create_epic_version", map[string]any{
		"epic_id": "EPIC-001", "release_ref": "REL-2025-02-01", "summary": "v2"})

	snap := load(t, st)
	require.Len(t, snap.Features, 2)
	assert.Equal(t, record.Extra{"priority": json.RawMessage(`"high"`)}, snap.Features[0].Extra)
	assert.Nil(t, snap.Features[1].Extra)

	epic := snap.Epics[0]
	require.Len(t, epic.Versions, 2)
	assert.Equal(t, record.Extra{"team": json.RawMessage(`"payments"`)}, epic.Extra)
	assert.JSONEq(t, `{"points":5}`, string(epic.Versions[0].Extra["estimate"]))

	raw, err := os.ReadFile(st.Config().FamilyPath(record.FamilyFeatures))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"priority": "high"`)
}

func TestUniqueIDsAcrossCreates(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, svc)
	for i := 0; i < 5; i++ {
		mustRun(t, svc, "create_feature", map[string]any{"title": "f", "purpose": "p", "business_value": "b"})
	}
	res := run(t, svc, "create_feature", map[string]any{
		"id": "FEAT-003", "title": "f", "purpose": "p", "business_value": "b"})
	assert.Equal(t, fault.DuplicateID, res.Code())

	seen := map[string]bool{}
	for _, f := range load(t, st).Features {
		assert.False(t, seen[f.ID], "duplicate %s", f.ID)
		seen[f.ID] = true
	}
	assert.Len(t, seen, 6)
}

func TestExecuteBoundary(t *testing.T) {
	svc, _ := newTestService(t)

	res := svc.Execute(context.Background(), "create_release", []byte(`{"id":`))
	assert.Equal(t, fault.ParseError, res.Code())

	res = svc.Execute(context.Background(), "create_release", []byte(`[1,2]`))
	assert.Equal(t, fault.ParseError, res.Code())

	res = svc.Execute(context.Background(), "drop_tables", []byte(`{}`))
	assert.Equal(t, fault.NotFound, res.Code())
	assert.Equal(t, "Unknown operation: drop_tables", res.Message)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = svc.Execute(ctx, "create_release", []byte(`{}`))
	assert.Equal(t, fault.Internal, res.Code())
	assert.Equal(t, "Operation failed: context canceled", res.Message)
}

// panicClock panics on its second call, which lands inside the operation.
type panicClock struct{ calls int }

func (c *panicClock) Now() time.Time {
	c.calls++
	if c.calls == 2 {
		panic("clock exploded")
	}
	return testutil.Epoch
}

func TestExecuteRecoversPanics(t *testing.T) {
	svc, _ := newTestService(t, WithClock(&panicClock{}))
	res := run(t, svc, "create_release", map[string]any{
		"id": "REL-2025-01-01", "release_date": "2025-01-01", "description": "d"})
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Operation failed: clock exploded", res.Message)
	assert.Equal(t, fault.Internal, res.Code())
}

type recordingObserver struct {
	ops   []string
	codes []fault.Code
}

func (o *recordingObserver) ObserveMutation(op, _ string, code fault.Code, _ time.Duration) {
	o.ops = append(o.ops, op)
	o.codes = append(o.codes, code)
}

func TestObserverSeesEveryOperation(t *testing.T) {
	obs := &recordingObserver{}
	svc, _ := newTestService(t, WithObserver(obs))

	run(t, svc, "create_release", map[string]any{"id": "REL-2025-01-01", "release_date": "d", "description": "d"})
	run(t, svc, "create_release", map[string]any{"id": "REL-2025-01-01", "release_date": "d", "description": "d"})

	assert.Equal(t, []string{"create_release", "create_release"}, obs.ops)
	assert.Equal(t, []fault.Code{"", fault.DuplicateID}, obs.codes)
}

func TestRegistry(t *testing.T) {
	op, ok := Lookup("add_domain_entry")
	require.True(t, ok)
	assert.Equal(t, "create_artifact", op.Name)

	names := Names()
	assert.Contains(t, names, "set_story_version_status")
	assert.Contains(t, names, "set_story_status")
	assert.Len(t, Operations(), 23)
}

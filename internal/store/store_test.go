package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reqtrack/internal/config"
	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(config.Default(t.TempDir()), nil)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	reqs, err := Load[record.Requirement](s, record.FamilyRequirements)
	require.NoError(t, err)
	assert.NotNil(t, reqs)
	assert.Empty(t, reqs)
}

func TestLoadBlankFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Config().DataPath(), 0o755))
	require.NoError(t, os.WriteFile(s.Config().FamilyPath(record.FamilyFeatures), []byte("  \n"), 0o644))

	feats, err := Load[record.Feature](s, record.FamilyFeatures)
	require.NoError(t, err)
	assert.Empty(t, feats)
}

func TestLoadMalformed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Config().DataPath(), 0o755))
	require.NoError(t, os.WriteFile(s.Config().FamilyPath(record.FamilyEpics), []byte("[{"), 0o644))

	_, err := Load[record.Epic](s, record.FamilyEpics)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.ParseError))
	assert.Contains(t, err.Error(), "epics.json")
}

func TestSaveFormat(t *testing.T) {
	s := newTestStore(t)
	rels := []record.Release{{
		ID:          "REL-2025-01-01",
		Title:       "Q1 <launch> & more",
		Status:      record.ReleasePlanned,
		ReleaseDate: "2025-01-01",
		Description: "Q1 launch",
		Tags:        []string{},
	}}
	require.NoError(t, Save(s, record.FamilyReleases, rels))

	data, err := os.ReadFile(s.Config().FamilyPath(record.FamilyReleases))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, len(text) > 0 && text[len(text)-1] == '\n', "trailing newline")
	assert.Contains(t, text, "[\n  {\n    \"id\": \"REL-2025-01-01\",")
	assert.Contains(t, text, "Q1 <launch> & more")
	assert.Contains(t, text, `"git_tag": null`)

	info, err := os.Stat(s.Config().FamilyPath(record.FamilyReleases))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Save[record.Story](s, record.FamilyStories, nil))
	data, err := os.ReadFile(s.Config().FamilyPath(record.FamilyStories))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	v := record.StoryVersion{
		Description:        "first",
		AcceptanceCriteria: []string{"works"},
		TestIntent:         record.TestIntent{FailureModes: []string{}, Guarantees: []string{"g"}, Exclusions: []string{}},
	}
	v.Version = 1
	v.Status = record.VersionBacklog
	v.ReleaseRef = record.StringPtr("REL-2025-01-01")
	v.RequirementRefs = []string{"REQ-001"}
	v.ArtifactRefs = []string{}

	in := []record.Story{{
		ID:       "STORY-001",
		Title:    "Checkout",
		Status:   record.StatusActive,
		EpicRef:  "EPIC-001",
		Tags:     []string{"pay"},
		Versions: []record.StoryVersion{v},
	}}
	require.NoError(t, Save(s, record.FamilyStories, in))

	out, err := Load[record.Story](s, record.FamilyStories)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadAllAndCommit(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.LoadAll()
	require.NoError(t, err)
	for _, f := range record.Families {
		assert.Equal(t, 0, snap.Count(f))
	}

	snap.Features = append(snap.Features, record.Feature{ID: "FEAT-001", Status: record.StatusActive})
	snap.Epics = append(snap.Epics, record.Epic{ID: "EPIC-001"})
	require.NoError(t, s.Commit(snap, record.FamilyFeatures))

	_, err = os.Stat(s.Config().FamilyPath(record.FamilyFeatures))
	require.NoError(t, err)
	_, err = os.Stat(s.Config().FamilyPath(record.FamilyEpics))
	assert.True(t, os.IsNotExist(err), "uncommitted family must not be written")

	again, err := s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, again.Count(record.FamilyFeatures))
}

func TestLock(t *testing.T) {
	s := newTestStore(t)
	unlock, err := s.Lock()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.Config().DataPath(), config.LockFileName))
	assert.NoError(t, err)
	assert.NoError(t, unlock())

	cfg := config.Default(t.TempDir())
	cfg.Lock = false
	unlock, err = New(cfg, nil).Lock()
	require.NoError(t, err)
	assert.NoError(t, unlock())
	_, err = os.Stat(cfg.LockPath())
	assert.True(t, os.IsNotExist(err))
}

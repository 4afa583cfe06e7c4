package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

func TestValidFormat(t *testing.T) {
	tests := []struct {
		family record.Family
		id     string
		valid  bool
	}{
		{record.FamilyReleases, "REL-2025-01-01", true},
		{record.FamilyReleases, "REL-2025-01-01-b", true},
		{record.FamilyReleases, "REL-2025-1-01", false},
		{record.FamilyReleases, "REL-2025-01-01-B", false},
		{record.FamilyArtifacts, "ART-001", true},
		{record.FamilyArtifacts, "DOM-014", true},
		{record.FamilyArtifacts, "ART-01", false},
		{record.FamilyRequirements, "REQ-1234", true},
		{record.FamilyRequirements, "REQ-12", false},
		{record.FamilyFeatures, "FEAT-001", true},
		{record.FamilyEpics, "EPIC-001", true},
		{record.FamilyEpics, "epic-001", false},
		{record.FamilyStories, "STORY-007", true},
		{record.FamilyStories, "STORY-007x", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.family)+"/"+tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidFormat(tt.family, tt.id))
		})
	}
}

func TestNext(t *testing.T) {
	reqs := []record.Requirement{{ID: "REQ-001"}, {ID: "REQ-010"}, {ID: "REQ-003"}, {ID: "bogus"}}
	id, err := Next(record.FamilyRequirements, reqs)
	require.NoError(t, err)
	assert.Equal(t, "REQ-011", id)

	id, err = Next(record.FamilyFeatures, []record.Feature{})
	require.NoError(t, err)
	assert.Equal(t, "FEAT-001", id)

	id, err = Next(record.FamilyStories, []record.Story{{ID: "STORY-999"}})
	require.NoError(t, err)
	assert.Equal(t, "STORY-1000", id)
}

func TestNextIgnoresLegacyArtifactPrefix(t *testing.T) {
	arts := []record.Artifact{{ID: "DOM-050"}, {ID: "ART-002"}}
	id, err := Next(record.FamilyArtifacts, arts)
	require.NoError(t, err)
	assert.Equal(t, "ART-003", id)
}

func TestNextRejectsReleases(t *testing.T) {
	_, err := Next(record.FamilyReleases, []record.Release{})
	require.Error(t, err)
	assert.Equal(t, fault.InvalidFormat, fault.CodeOf(err))
}

func TestCheckNew(t *testing.T) {
	rels := []record.Release{{ID: "REL-2025-01-01"}}

	err := CheckNew(record.FamilyReleases, "REL-2025-01-01", rels)
	assert.True(t, fault.Is(err, fault.DuplicateID))
	assert.Contains(t, err.Error(), "Release ID 'REL-2025-01-01' already exists")

	err = CheckNew(record.FamilyReleases, "2025-01-02", rels)
	assert.True(t, fault.Is(err, fault.InvalidFormat))
	assert.Contains(t, err.Error(), "Invalid release ID format: '2025-01-02'")

	assert.NoError(t, CheckNew(record.FamilyReleases, "REL-2025-01-02", rels))
}

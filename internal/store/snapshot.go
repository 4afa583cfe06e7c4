package store

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/record"
)

// Snapshot is every family loaded from disk at one point in time.
type Snapshot struct {
	Releases     []record.Release
	Artifacts    []record.Artifact
	Requirements []record.Requirement
	Features     []record.Feature
	Epics        []record.Epic
	Stories      []record.Story
}

// LoadAll reads all six family files.
func (s *Store) LoadAll() (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Releases, err = Load[record.Release](s, record.FamilyReleases); err != nil {
		return nil, err
	}
	if snap.Artifacts, err = Load[record.Artifact](s, record.FamilyArtifacts); err != nil {
		return nil, err
	}
	if snap.Requirements, err = Load[record.Requirement](s, record.FamilyRequirements); err != nil {
		return nil, err
	}
	if snap.Features, err = Load[record.Feature](s, record.FamilyFeatures); err != nil {
		return nil, err
	}
	if snap.Epics, err = Load[record.Epic](s, record.FamilyEpics); err != nil {
		return nil, err
	}
	if snap.Stories, err = Load[record.Story](s, record.FamilyStories); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Commit writes the named families from snap. Each file is replaced
// atomically; families not named are left untouched.
func (s *Store) Commit(snap *Snapshot, families ...record.Family) error {
	for _, f := range families {
		var err error
		switch f {
		case record.FamilyReleases:
			err = Save(s, f, snap.Releases)
		case record.FamilyArtifacts:
			err = Save(s, f, snap.Artifacts)
		case record.FamilyRequirements:
			err = Save(s, f, snap.Requirements)
		case record.FamilyFeatures:
			err = Save(s, f, snap.Features)
		case record.FamilyEpics:
			err = Save(s, f, snap.Epics)
		case record.FamilyStories:
			err = Save(s, f, snap.Stories)
		default:
			err = fmt.Errorf("unknown family %q", f)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records in a family.
func (snap *Snapshot) Count(f record.Family) int {
	switch f {
	case record.FamilyReleases:
		return len(snap.Releases)
	case record.FamilyArtifacts:
		return len(snap.Artifacts)
	case record.FamilyRequirements:
		return len(snap.Requirements)
	case record.FamilyFeatures:
		return len(snap.Features)
	case record.FamilyEpics:
		return len(snap.Epics)
	case record.FamilyStories:
		return len(snap.Stories)
	}
	return 0
}

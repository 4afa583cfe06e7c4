package mutate

import (
	"github.com/roach88/reqtrack/internal/refs"
)

// versionTargets holds the references a new epic/story version points at.
type versionTargets struct {
	releaseRef      string
	requirementRefs []string
	artifactRefs    []string
}

func readTargets(r *reader) versionTargets {
	return versionTargets{
		releaseRef:      r.String("release_ref", ""),
		requirementRefs: r.Strings("requirement_refs"),
		artifactRefs:    r.Strings("artifact_refs"),
	}
}

// check resolves the release, which must be open, and every upstream ref.
func (vt versionTargets) check(t *tx) error {
	if err := refs.ReleaseOpen(vt.releaseRef, t.snap.Releases); err != nil {
		return err
	}
	if err := refs.Check(vt.requirementRefs, t.snap.Requirements, labelRequirementRef); err != nil {
		return err
	}
	return refs.Check(vt.artifactRefs, t.snap.Artifacts, labelArtifactRef)
}

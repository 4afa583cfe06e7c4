package record

// ReleaseStatus is the lifecycle state of a release.
// planned -> released (one-way).
type ReleaseStatus string

const (
	ReleasePlanned  ReleaseStatus = "planned"
	ReleaseReleased ReleaseStatus = "released"
)

// Valid reports whether s is a known release status.
func (s ReleaseStatus) Valid() bool {
	return s == ReleasePlanned || s == ReleaseReleased
}

// Open reports whether new epic/story versions may target a release in this state.
func (s ReleaseStatus) Open() bool {
	return s == ReleasePlanned
}

// ArtifactStatus is the lifecycle state of an artifact.
// draft -> active -> deprecated (terminal).
type ArtifactStatus string

const (
	ArtifactDraft      ArtifactStatus = "draft"
	ArtifactActive     ArtifactStatus = "active"
	ArtifactDeprecated ArtifactStatus = "deprecated"
)

// Valid reports whether s is a known artifact status.
func (s ArtifactStatus) Valid() bool {
	switch s {
	case ArtifactDraft, ArtifactActive, ArtifactDeprecated:
		return true
	}
	return false
}

// Status is the outer lifecycle of requirements, features, epics and stories.
// active -> deprecated (terminal).
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// Valid reports whether s is a known record status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeprecated
}

// VersionStatus is the state of one entry in an epic/story versions array.
// backlog -> released | discarded; both targets are terminal.
type VersionStatus string

const (
	VersionBacklog   VersionStatus = "backlog"
	VersionReleased  VersionStatus = "released"
	VersionDiscarded VersionStatus = "discarded"
)

// Valid reports whether s is a known version status.
func (s VersionStatus) Valid() bool {
	switch s {
	case VersionBacklog, VersionReleased, VersionDiscarded:
		return true
	}
	return false
}

// Terminal reports whether no further edits are allowed in this state.
func (s VersionStatus) Terminal() bool {
	return s == VersionReleased || s == VersionDiscarded
}

// RequirementType classifies a requirement.
type RequirementType string

const (
	RequirementFunctional    RequirementType = "functional"
	RequirementNonFunctional RequirementType = "non-functional"
)

// Valid reports whether t is a known requirement type.
func (t RequirementType) Valid() bool {
	return t == RequirementFunctional || t == RequirementNonFunctional
}

// ReleaseStatuses, ArtifactStatuses etc. list the enum members for messages.
var (
	ReleaseStatuses  = []string{string(ReleasePlanned), string(ReleaseReleased)}
	ArtifactStatuses = []string{string(ArtifactDraft), string(ArtifactActive), string(ArtifactDeprecated)}
	RecordStatuses   = []string{string(StatusActive), string(StatusDeprecated)}
	VersionStatuses  = []string{string(VersionBacklog), string(VersionReleased), string(VersionDiscarded)}
	RequirementTypes = []string{string(RequirementFunctional), string(RequirementNonFunctional)}
	ArtifactTypeList = []string{string(TypePolicy), string(TypeCatalog), string(TypeClassification), string(TypeRule)}
)

package record

// Identified is implemented by every top-level record.
type Identified interface {
	RecordID() string
}

// Release is a dated delivery target. IDs are caller-supplied (REL-YYYY-MM-DD[-a]).
type Release struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Status      ReleaseStatus `json:"status"`
	ReleaseDate string        `json:"release_date"`
	Description string        `json:"description"`
	GitTag      *string       `json:"git_tag"`
	Tags        []string      `json:"tags"`
	Owner       string        `json:"owner"`
	Notes       string        `json:"notes"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`

	Extra Extra `json:"-"`
}

// Artifact is a business/domain reference document.
type Artifact struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Status        ArtifactStatus `json:"status"`
	Type          ArtifactTypes  `json:"type"`
	Source        string         `json:"source"`
	EffectiveDate *string        `json:"effective_date"`
	DocPath       string         `json:"doc_path"`
	Description   string         `json:"description"`
	Anchors       []string       `json:"anchors"`
	Tags          []string       `json:"tags"`
	Owner         string         `json:"owner"`
	Notes         string         `json:"notes"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`

	Extra Extra `json:"-"`
}

// Requirement is a functional or non-functional statement.
// A superseded requirement is deprecated and points at its replacement.
type Requirement struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Status       Status          `json:"status"`
	Type         RequirementType `json:"type"`
	Invariant    bool            `json:"invariant"`
	Statement    string          `json:"statement"`
	Rationale    string          `json:"rationale"`
	ArtifactRefs []string        `json:"artifact_refs"`
	SupersededBy *string         `json:"superseded_by"`
	Tags         []string        `json:"tags"`
	Owner        string          `json:"owner"`
	Notes        string          `json:"notes"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`

	Extra Extra `json:"-"`
}

// Feature groups requirements into a unit of business value.
type Feature struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          Status   `json:"status"`
	Purpose         string   `json:"purpose"`
	BusinessValue   string   `json:"business_value"`
	InScope         []string `json:"in_scope"`
	OutOfScope      []string `json:"out_of_scope"`
	RequirementRefs []string `json:"requirement_refs"`
	ArtifactRefs    []string `json:"artifact_refs"`
	Tags            []string `json:"tags"`
	Owner           string   `json:"owner"`
	Notes           string   `json:"notes"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`

	Extra Extra `json:"-"`
}

// VersionHeader holds the lineage bookkeeping shared by epic and story versions.
type VersionHeader struct {
	Version    int           `json:"version"`
	Status     VersionStatus `json:"status"`
	Approved   bool          `json:"approved"`
	ReleaseRef *string       `json:"release_ref"`
}

// VersionRefs holds the upstream references and audit fields shared by
// epic and story versions. Kept separate from VersionHeader so the JSON
// field order matches the files written by earlier tooling.
type VersionRefs struct {
	RequirementRefs []string `json:"requirement_refs"`
	ArtifactRefs    []string `json:"artifact_refs"`
	Supersedes      *int     `json:"supersedes"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	Owner           string   `json:"owner"`
	Notes           string   `json:"notes"`
}

// Versioned is implemented by entries of a versions[] array.
type Versioned interface {
	Header() *VersionHeader
	Refs() *VersionRefs
}

// EpicVersion is one entry in Epic.Versions.
type EpicVersion struct {
	VersionHeader
	Summary     string   `json:"summary"`
	Assumptions []string `json:"assumptions"`
	Constraints []string `json:"constraints"`
	VersionRefs

	Extra Extra `json:"-"`
}

func (v *EpicVersion) Header() *VersionHeader { return &v.VersionHeader }
func (v *EpicVersion) Refs() *VersionRefs     { return &v.VersionRefs }

// TestIntent captures what a story's tests must prove.
type TestIntent struct {
	FailureModes []string `json:"failure_modes"`
	Guarantees   []string `json:"guarantees"`
	Exclusions   []string `json:"exclusions"`

	Extra Extra `json:"-"`
}

// Empty reports whether neither failure modes nor guarantees are present.
func (t TestIntent) Empty() bool {
	return len(t.FailureModes) == 0 && len(t.Guarantees) == 0
}

// StoryVersion is one entry in Story.Versions.
type StoryVersion struct {
	VersionHeader
	Description        string     `json:"description"`
	AcceptanceCriteria []string   `json:"acceptance_criteria"`
	TestIntent         TestIntent `json:"test_intent"`
	VersionRefs

	Extra Extra `json:"-"`
}

func (v *StoryVersion) Header() *VersionHeader { return &v.VersionHeader }
func (v *StoryVersion) Refs() *VersionRefs     { return &v.VersionRefs }

// Epic is a versioned body of work under a feature.
type Epic struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Status     Status        `json:"status"`
	FeatureRef string        `json:"feature_ref"`
	Tags       []string      `json:"tags"`
	Owner      string        `json:"owner"`
	CreatedAt  string        `json:"created_at"`
	Versions   []EpicVersion `json:"versions"`

	Extra Extra `json:"-"`
}

// Story is a versioned unit of work under an epic.
type Story struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`
	EpicRef   string         `json:"epic_ref"`
	Tags      []string       `json:"tags"`
	Owner     string         `json:"owner"`
	CreatedAt string         `json:"created_at"`
	Versions  []StoryVersion `json:"versions"`

	Extra Extra `json:"-"`
}

func (r Release) RecordID() string     { return r.ID }
func (r Artifact) RecordID() string    { return r.ID }
func (r Requirement) RecordID() string { return r.ID }
func (r Feature) RecordID() string     { return r.ID }
func (r Epic) RecordID() string        { return r.ID }
func (r Story) RecordID() string       { return r.ID }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package record

import (
	"fmt"
	"strings"
)

// Family identifies one of the six record collections.
type Family string

const (
	FamilyReleases     Family = "releases"
	FamilyArtifacts    Family = "artifacts"
	FamilyRequirements Family = "requirements"
	FamilyFeatures     Family = "features"
	FamilyEpics        Family = "epics"
	FamilyStories      Family = "stories"
)

// Families lists every family in dependency order (leaf first).
var Families = []Family{
	FamilyReleases,
	FamilyArtifacts,
	FamilyRequirements,
	FamilyFeatures,
	FamilyEpics,
	FamilyStories,
}

// FileName returns the data file name for the family.
func (f Family) FileName() string {
	return string(f) + ".json"
}

// Singular returns the human label used in messages ("Release", "Story").
func (f Family) Singular() string {
	switch f {
	case FamilyReleases:
		return "Release"
	case FamilyArtifacts:
		return "Artifact"
	case FamilyRequirements:
		return "Requirement"
	case FamilyFeatures:
		return "Feature"
	case FamilyEpics:
		return "Epic"
	case FamilyStories:
		return "Story"
	default:
		return string(f)
	}
}

// Noun is the singular name as used mid-sentence: "epic".
func (f Family) Noun() string { return strings.ToLower(f.Singular()) }

// ParseFamily converts a family name to a Family.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown family %q", s)
}

// Package ids implements the identifier policy: per-family ID formats,
// sequential generation and uniqueness checks.
package ids

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

// Prefix returns the ID prefix used for new records in the family.
func Prefix(f record.Family) string {
	switch f {
	case record.FamilyReleases:
		return "REL"
	case record.FamilyArtifacts:
		return "ART"
	case record.FamilyRequirements:
		return "REQ"
	case record.FamilyFeatures:
		return "FEAT"
	case record.FamilyEpics:
		return "EPIC"
	case record.FamilyStories:
		return "STORY"
	}
	return ""
}

var (
	releasePattern = regexp.MustCompile(`^REL-\d{4}-\d{2}-\d{2}(-[a-z])?$`)

	// Artifacts accept the legacy DOM- prefix so older data files stay valid.
	formatPatterns = map[record.Family]*regexp.Regexp{
		record.FamilyReleases:     releasePattern,
		record.FamilyArtifacts:    regexp.MustCompile(`^(ART|DOM)-\d{3,}$`),
		record.FamilyRequirements: regexp.MustCompile(`^REQ-\d{3,}$`),
		record.FamilyFeatures:     regexp.MustCompile(`^FEAT-\d{3,}$`),
		record.FamilyEpics:        regexp.MustCompile(`^EPIC-\d{3,}$`),
		record.FamilyStories:      regexp.MustCompile(`^STORY-\d{3,}$`),
	}
)

// ValidFormat reports whether id matches the family's pattern.
func ValidFormat(f record.Family, id string) bool {
	p, ok := formatPatterns[f]
	return ok && p.MatchString(id)
}

// Pattern returns the textual pattern for messages.
func Pattern(f record.Family) string {
	if p, ok := formatPatterns[f]; ok {
		return p.String()
	}
	return ""
}

// Next returns the next sequential ID for the family: the highest
// numeric suffix among existing IDs with the family prefix, plus one,
// zero-padded to three digits. Release IDs encode a date and cannot be
// generated.
func Next[T record.Identified](f record.Family, existing []T) (string, error) {
	if f == record.FamilyReleases {
		return "", fault.New(fault.InvalidFormat, "Release IDs must be provided explicitly (REL-YYYY-MM-DD format)")
	}
	prefix := Prefix(f)
	if prefix == "" {
		return "", fmt.Errorf("ids: unknown family %q", f)
	}
	seq := regexp.MustCompile(`^` + prefix + `-(\d+)$`)

	maxNum := 0
	for _, rec := range existing {
		m := seq.FindStringSubmatch(rec.RecordID())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		maxNum = max(maxNum, n)
	}
	return fmt.Sprintf("%s-%03d", prefix, maxNum+1), nil
}

// Exists reports whether any record has the given id.
func Exists[T record.Identified](id string, existing []T) bool {
	for _, rec := range existing {
		if rec.RecordID() == id {
			return true
		}
	}
	return false
}

// CheckNew validates a caller-supplied ID: format first, then uniqueness.
func CheckNew[T record.Identified](f record.Family, id string, existing []T) error {
	if !ValidFormat(f, id) {
		return fault.New(fault.InvalidFormat, "Invalid %s ID format: '%s'", f.Noun(), id).
			With("pattern", Pattern(f))
	}
	if Exists(id, existing) {
		return fault.New(fault.DuplicateID, "%s ID '%s' already exists", f.Singular(), id)
	}
	return nil
}

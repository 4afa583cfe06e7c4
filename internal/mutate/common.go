package mutate

import (
	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/ids"
	"github.com/roach88/reqtrack/internal/record"
)

// assignID returns the caller-supplied id (validated) or the next
// generated one.
func assignID[T record.Identified](f record.Family, supplied *string, existing []T) (string, error) {
	if supplied != nil && *supplied != "" {
		if err := ids.CheckNew(f, *supplied, existing); err != nil {
			return "", err
		}
		return *supplied, nil
	}
	return ids.Next(f, existing)
}

func notFound(f record.Family, id string) error {
	return fault.New(fault.NotFound, "%s %s not found", f.Singular(), id).With("id", id)
}

func alreadyDeprecated(f record.Family, id string) error {
	return fault.New(fault.InvalidTransition, "%s %s is already deprecated", f.Singular(), id)
}

func cannotUpdateDeprecated(f record.Family, id string) error {
	return fault.New(fault.InvalidTransition, "Cannot update deprecated %s %s", f.Noun(), id)
}

func idData(id string) map[string]any {
	return map[string]any{"id": id}
}

// nonEmptyOr returns v when it has entries, otherwise a copy of fallback.
// Used for version copy-forward of reference lists, where an empty list in
// the payload means "inherit".
func nonEmptyOr(v, fallback []string) []string {
	if len(v) > 0 {
		return v
	}
	return cloneStrings(fallback)
}

func cloneStrings(v []string) []string {
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func normalizeIntent(ti record.TestIntent) record.TestIntent {
	if ti.FailureModes == nil {
		ti.FailureModes = []string{}
	}
	if ti.Guarantees == nil {
		ti.Guarantees = []string{}
	}
	if ti.Exclusions == nil {
		ti.Exclusions = []string{}
	}
	return ti
}

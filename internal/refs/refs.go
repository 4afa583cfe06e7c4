// Package refs resolves IDs within a family and checks reference lists.
//
// Checks here are fail-fast: the first unresolved reference is reported
// and the rest are not examined. The validator keeps its own accumulate-all
// traversal.
package refs

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

// FindByID returns the index of the record with id, or false.
func FindByID[T record.Identified](id string, items []T) (int, bool) {
	for i, it := range items {
		if it.RecordID() == id {
			return i, true
		}
	}
	return -1, false
}

// Lookup returns a pointer into items for the record with id.
// The pointer stays valid until items is reallocated.
func Lookup[T record.Identified](id string, items []T) (*T, bool) {
	i, ok := FindByID(id, items)
	if !ok {
		return nil, false
	}
	return &items[i], true
}

// Require returns the record with id or a NotFound fault naming label.
func Require[T record.Identified](label, id string, items []T) (*T, error) {
	rec, ok := Lookup(id, items)
	if !ok {
		return nil, fault.RefNotFound(label, id)
	}
	return rec, nil
}

// Check verifies every id resolves in target, stopping at the first miss.
func Check[T record.Identified](ids []string, target []T, label string) error {
	for _, id := range ids {
		if _, ok := FindByID(id, target); !ok {
			return fault.RefNotFound(label, id)
		}
	}
	return nil
}

// ReleaseOpen resolves ref and requires the release to accept new versions.
func ReleaseOpen(ref string, releases []record.Release) error {
	rel, ok := Lookup(ref, releases)
	if !ok {
		return fault.RefNotFound("Release", ref)
	}
	if !rel.Status.Open() {
		return &fault.Error{
			Code:    fault.InvariantViolation,
			Message: fmt.Sprintf("release '%s' is not open: cannot add versions to %s release", ref, rel.Status),
			Details: map[string]any{"release_ref": ref, "release_status": string(rel.Status)},
		}
	}
	return nil
}

// Package lineage manages the versions array carried by epics and stories.
//
// A versions array is an append-only history numbered 1..N. At most one
// entry is in backlog (the version open for edits); released and
// discarded entries are terminal. The functions here are generic over
// record.EpicVersion and record.StoryVersion and mutate the slice in place.
package lineage

import (
	"fmt"
	"strings"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

// Ptr constrains P to be *V and expose the shared version header.
type Ptr[V any] interface {
	*V
	record.Versioned
}

// ReasonNoBacklog is set in fault details when an operation needs a backlog
// version and there is none.
const ReasonNoBacklog = "NoBacklogVersion"

// Backlog returns the backlog version, if any.
func Backlog[V any, P Ptr[V]](vs []V) (P, bool) {
	for i := range vs {
		p := P(&vs[i])
		if p.Header().Status == record.VersionBacklog {
			return p, true
		}
	}
	return nil, false
}

// Highest returns the entry with the largest version number.
func Highest[V any, P Ptr[V]](vs []V) (P, bool) {
	var best P
	for i := range vs {
		p := P(&vs[i])
		if best == nil || p.Header().Version > best.Header().Version {
			best = p
		}
	}
	return best, best != nil
}

// Current is the version downstream readers treat as current:
// the backlog version if there is one, otherwise the highest.
func Current[V any, P Ptr[V]](vs []V) (P, bool) {
	if p, ok := Backlog[V, P](vs); ok {
		return p, true
	}
	return Highest[V, P](vs)
}

// Find returns the entry with version number n.
func Find[V any, P Ptr[V]](vs []V, n int) (P, bool) {
	for i := range vs {
		p := P(&vs[i])
		if p.Header().Version == n {
			return p, true
		}
	}
	return nil, false
}

// NextNumber returns max(version)+1, or 1 for an empty history.
func NextNumber[V any, P Ptr[V]](vs []V) int {
	if p, ok := Highest[V, P](vs); ok {
		return p.Header().Version + 1
	}
	return 1
}

// Target selects the version an edit applies to. An explicit num must
// exist. Without num the backlog version is chosen; if there is none and
// fallbackHighest is set the highest version is chosen, otherwise a
// NoBacklogVersion fault is returned.
func Target[V any, P Ptr[V]](owner string, vs []V, num *int, fallbackHighest bool) (P, error) {
	if num != nil {
		p, ok := Find[V, P](vs, *num)
		if !ok {
			return nil, fault.New(fault.NotFound, "%s version %d not found", owner, *num)
		}
		return p, nil
	}
	if p, ok := Backlog[V, P](vs); ok {
		return p, nil
	}
	if fallbackHighest {
		if p, ok := Highest[V, P](vs); ok {
			return p, nil
		}
	}
	return nil, noBacklog(owner)
}

func noBacklog(owner string) *fault.Error {
	return fault.New(fault.InvariantViolation, "%s has no backlog version", owner).
		With("reason", ReasonNoBacklog)
}

// Advanced describes the result of Advance.
type Advanced struct {
	Version           int
	SupersededVersion int
	SupersededStatus  record.VersionStatus
}

// Advance closes the backlog version and appends its successor.
//
// The outgoing version becomes released if it was approved, discarded
// otherwise. build receives the outgoing version so it can copy fields
// forward; the header of the value it returns is overwritten with the new
// number, backlog status, approved=false and supersedes=outgoing.
func Advance[V any, P Ptr[V]](owner string, vs *[]V, now string, build func(prev P) V) (Advanced, error) {
	prev, ok := Backlog[V, P](*vs)
	if !ok {
		return Advanced{}, fault.New(fault.InvariantViolation, "%s has no backlog version to supersede", owner).
			With("reason", ReasonNoBacklog)
	}

	next := build(prev)
	num := NextNumber[V, P](*vs)
	prevNum := prev.Header().Version

	if prev.Header().Approved {
		prev.Header().Status = record.VersionReleased
	} else {
		prev.Header().Status = record.VersionDiscarded
	}
	prev.Refs().UpdatedAt = now
	closed := prev.Header().Status

	np := P(&next)
	np.Header().Version = num
	np.Header().Status = record.VersionBacklog
	np.Header().Approved = false
	np.Refs().Supersedes = record.IntPtr(prevNum)
	np.Refs().CreatedAt = now
	np.Refs().UpdatedAt = now

	// prev may point into the old backing array; it is not used after append.
	*vs = append(*vs, next)

	return Advanced{Version: num, SupersededVersion: prevNum, SupersededStatus: closed}, nil
}

// SetStatus moves the target version to status. Terminal versions cannot
// change, and a second backlog version is rejected.
func SetStatus[V any, P Ptr[V]](owner string, vs []V, num *int, status record.VersionStatus, now string) (P, error) {
	if !status.Valid() {
		return nil, fault.New(fault.InvalidFormat, "Invalid status: %s. Must be one of %s",
			status, strings.Join(record.VersionStatuses, ", "))
	}
	p, err := Target[V, P](owner, vs, num, true)
	if err != nil {
		return nil, err
	}
	h := p.Header()
	if h.Status.Terminal() {
		return nil, fault.New(fault.InvalidTransition, "Cannot modify %s version %d", h.Status, h.Version)
	}
	if status == record.VersionBacklog {
		for i := range vs {
			other := P(&vs[i]).Header()
			if other.Status == record.VersionBacklog && other.Version != h.Version {
				return nil, fault.New(fault.InvariantViolation,
					"Cannot set to backlog: version %d is already in backlog", other.Version)
			}
		}
	}
	h.Status = status
	p.Refs().UpdatedAt = now
	return p, nil
}

// Gate is an approval precondition evaluated only when approving.
type Gate[V any, P Ptr[V]] func(P) error

// SetApproved sets the approved flag on the target version, which must be
// in backlog. gate may be nil.
func SetApproved[V any, P Ptr[V]](owner string, vs []V, num *int, approved bool, now string, gate Gate[V, P]) (P, error) {
	p, err := Target[V, P](owner, vs, num, false)
	if err != nil {
		return nil, err
	}
	h := p.Header()
	if h.Status != record.VersionBacklog {
		return nil, fault.New(fault.InvalidTransition, "Cannot modify approved on %s version %d", h.Status, h.Version)
	}
	if approved && gate != nil {
		if err := gate(p); err != nil {
			return nil, err
		}
	}
	h.Approved = approved
	p.Refs().UpdatedAt = now
	return p, nil
}

// DiscardBacklog force-discards any backlog version and returns how many
// were changed.
func DiscardBacklog[V any, P Ptr[V]](vs []V, now string) int {
	n := 0
	for i := range vs {
		p := P(&vs[i])
		if p.Header().Status == record.VersionBacklog {
			p.Header().Status = record.VersionDiscarded
			p.Refs().UpdatedAt = now
			n++
		}
	}
	return n
}

// StoryGate rejects approval of a story version lacking acceptance
// criteria or test intent.
func StoryGate(v *record.StoryVersion) error {
	if len(v.AcceptanceCriteria) == 0 {
		return fault.New(fault.InvariantViolation, "Cannot approve: missing acceptance_criteria").
			With("reason", "missing acceptance_criteria")
	}
	if v.TestIntent.Empty() {
		return fault.New(fault.InvariantViolation,
			"Cannot approve: missing test_intent (needs at least one failure_mode or guarantee)").
			With("reason", "missing test_intent")
	}
	return nil
}

// Label formats the owner string used in messages, e.g. "Epic EPIC-001".
func Label(f record.Family, id string) string {
	return fmt.Sprintf("%s %s", f.Singular(), id)
}

package mutate

import (
	"fmt"
	"strings"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/ids"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

func createRelease(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	rel := record.Release{
		ID:          id,
		Title:       r.String("title", id),
		Status:      record.ReleasePlanned,
		ReleaseDate: r.String("release_date", ""),
		Description: r.String("description", ""),
		GitTag:      r.OptString("git_tag"),
		Tags:        r.Strings("tags"),
		Owner:       r.String("owner", ""),
		Notes:       r.String("notes", ""),
		CreatedAt:   t.now,
		UpdatedAt:   t.now,
	}
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	if err := ids.CheckNew(record.FamilyReleases, id, t.snap.Releases); err != nil {
		return Outcome{}, err
	}

	t.snap.Releases = append(t.snap.Releases, rel)
	t.touch(record.FamilyReleases)
	return Outcome{Message: fmt.Sprintf("Release %s created", id), Data: idData(id)}, nil
}

func setReleaseStatus(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	status := record.ReleaseStatus(r.String("status", ""))
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	if !status.Valid() {
		return Outcome{}, fault.New(fault.InvalidFormat, "Invalid status: %s. Must be one of %s",
			status, strings.Join(record.ReleaseStatuses, ", "))
	}

	rel, ok := refs.Lookup(id, t.snap.Releases)
	if !ok {
		return Outcome{}, notFound(record.FamilyReleases, id)
	}
	if rel.Status != record.ReleasePlanned || status != record.ReleaseReleased {
		return Outcome{}, fault.New(fault.InvalidTransition,
			"Cannot transition release %s from '%s' to '%s'. Only planned releases can be released.",
			id, rel.Status, status)
	}

	rel.Status = status
	rel.UpdatedAt = t.now
	t.touch(record.FamilyReleases)
	return Outcome{
		Message: fmt.Sprintf("Release %s status set to %s", id, status),
		Data:    map[string]any{"id": id, "status": string(status)},
	}, nil
}

package mutate

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/lineage"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

func createEpic(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	title := r.String("title", "")
	featureRef := r.String("feature_ref", "")
	targets := readTargets(r)
	owner := r.String("owner", "")

	v := record.EpicVersion{
		Summary:     r.String("summary", ""),
		Assumptions: r.Strings("assumptions"),
		Constraints: r.Strings("constraints"),
	}
	v.Version = 1
	v.Status = record.VersionBacklog
	v.ReleaseRef = record.StringPtr(targets.releaseRef)
	v.RequirementRefs = targets.requirementRefs
	v.ArtifactRefs = targets.artifactRefs
	v.CreatedAt = t.now
	v.UpdatedAt = t.now
	v.Owner = owner
	v.Notes = r.String("notes", "")

	epic := record.Epic{
		Title:      title,
		Status:     record.StatusActive,
		FeatureRef: featureRef,
		Tags:       r.Strings("tags"),
		Owner:      owner,
		CreatedAt:  t.now,
	}
	supplied := r.OptString("id")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	id, err := assignID(record.FamilyEpics, supplied, t.snap.Epics)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := refs.Require("Feature", featureRef, t.snap.Features); err != nil {
		return Outcome{}, err
	}
	if err := targets.check(t); err != nil {
		return Outcome{}, err
	}

	epic.ID = id
	epic.Versions = []record.EpicVersion{v}
	t.snap.Epics = append(t.snap.Epics, epic)
	t.touch(record.FamilyEpics)
	return Outcome{
		Message: fmt.Sprintf("Epic %s created with version 1", id),
		Data:    map[string]any{"id": id, "version": 1},
	}, nil
}

func lookupEpic(t *tx, r *reader) (*record.Epic, error) {
	id := r.String("epic_id", "")
	if err := r.Err(); err != nil {
		return nil, err
	}
	epic, ok := refs.Lookup(id, t.snap.Epics)
	if !ok {
		return nil, notFound(record.FamilyEpics, id)
	}
	return epic, nil
}

func createEpicVersion(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	epic, err := lookupEpic(t, r)
	if err != nil {
		return Outcome{}, err
	}
	targets := readTargets(r)
	summary := r.String("summary", "")
	assumptions, hasAssumptions := r.Strings("assumptions"), p.Has("assumptions")
	constraints, hasConstraints := r.Strings("constraints"), p.Has("constraints")
	owner := r.String("owner", "")
	notes := r.String("notes", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	if err := targets.check(t); err != nil {
		return Outcome{}, err
	}

	adv, err := lineage.Advance(lineage.Label(record.FamilyEpics, epic.ID), &epic.Versions, t.now,
		func(prev *record.EpicVersion) record.EpicVersion {
			next := record.EpicVersion{Summary: summary, Assumptions: assumptions, Constraints: constraints}
			if !hasAssumptions {
				next.Assumptions = cloneStrings(prev.Assumptions)
			}
			if !hasConstraints {
				next.Constraints = cloneStrings(prev.Constraints)
			}
			next.ReleaseRef = record.StringPtr(targets.releaseRef)
			next.RequirementRefs = nonEmptyOr(targets.requirementRefs, prev.RequirementRefs)
			next.ArtifactRefs = nonEmptyOr(targets.artifactRefs, prev.ArtifactRefs)
			next.Owner = owner
			next.Notes = notes
			return next
		})
	if err != nil {
		return Outcome{}, err
	}

	t.touch(record.FamilyEpics)
	return Outcome{
		Message: fmt.Sprintf("Epic %s version %d created", epic.ID, adv.Version),
		Data: map[string]any{
			"id":                 epic.ID,
			"version":            adv.Version,
			"superseded_version": adv.SupersededVersion,
			"superseded_status":  string(adv.SupersededStatus),
		},
	}, nil
}

func setEpicVersionStatus(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	epic, err := lookupEpic(t, r)
	if err != nil {
		return Outcome{}, err
	}
	status := record.VersionStatus(r.String("status", ""))
	num := r.OptInt("version")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	v, err := lineage.SetStatus(lineage.Label(record.FamilyEpics, epic.ID), epic.Versions, num, status, t.now)
	if err != nil {
		return Outcome{}, err
	}

	t.touch(record.FamilyEpics)
	return Outcome{
		Message: fmt.Sprintf("Epic %s version %d status set to %s", epic.ID, v.Version, status),
		Data:    map[string]any{"id": epic.ID, "version": v.Version, "status": string(status)},
	}, nil
}

func setEpicApproved(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	epic, err := lookupEpic(t, r)
	if err != nil {
		return Outcome{}, err
	}
	approved := r.Bool("approved", false)
	num := r.OptInt("version")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	v, err := lineage.SetApproved[record.EpicVersion](lineage.Label(record.FamilyEpics, epic.ID), epic.Versions, num, approved, t.now, nil)
	if err != nil {
		return Outcome{}, err
	}

	t.touch(record.FamilyEpics)
	return Outcome{
		Message: fmt.Sprintf("Epic %s version %d approved set to %t", epic.ID, v.Version, approved),
		Data:    map[string]any{"id": epic.ID, "version": v.Version, "approved": approved},
	}, nil
}

func deprecateEpic(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	epic, err := lookupEpic(t, r)
	if err != nil {
		return Outcome{}, err
	}
	if epic.Status == record.StatusDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyEpics, epic.ID)
	}

	discarded := lineage.DiscardBacklog(epic.Versions, t.now)
	epic.Status = record.StatusDeprecated
	t.touch(record.FamilyEpics)
	return Outcome{
		Message: fmt.Sprintf("Epic %s deprecated", epic.ID),
		Data:    map[string]any{"id": epic.ID, "discarded_versions": discarded},
	}, nil
}

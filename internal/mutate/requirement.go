package mutate

import (
	"fmt"
	"strings"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

const (
	labelArtifactRef    = "Artifact reference"
	labelRequirementRef = "Requirement reference"
)

func readRequirementType(r *reader) record.RequirementType {
	typ := record.RequirementType(r.String("type", ""))
	if r.Err() == nil && !typ.Valid() {
		r.err = fault.New(fault.InvalidFormat, "Invalid type: %s. Must be one of %s",
			typ, strings.Join(record.RequirementTypes, ", "))
	}
	return typ
}

// buildRequirement validates a new-requirement payload and returns the
// record with its assigned id.
func buildRequirement(t *tx, p Payload) (record.Requirement, error) {
	r := p.reader()
	req := record.Requirement{
		Title:        r.String("title", ""),
		Status:       record.StatusActive,
		Type:         readRequirementType(r),
		Invariant:    r.Bool("invariant", false),
		Statement:    r.String("statement", ""),
		Rationale:    r.String("rationale", ""),
		ArtifactRefs: r.Strings("artifact_refs"),
		Tags:         r.Strings("tags"),
		Owner:        r.String("owner", ""),
		Notes:        r.String("notes", ""),
		CreatedAt:    t.now,
		UpdatedAt:    t.now,
	}
	supplied := r.OptString("id")
	if err := r.Err(); err != nil {
		return record.Requirement{}, err
	}

	id, err := assignID(record.FamilyRequirements, supplied, t.snap.Requirements)
	if err != nil {
		return record.Requirement{}, err
	}
	req.ID = id

	if err := refs.Check(req.ArtifactRefs, t.snap.Artifacts, labelArtifactRef); err != nil {
		return record.Requirement{}, err
	}
	return req, nil
}

func createRequirement(t *tx, p Payload) (Outcome, error) {
	req, err := buildRequirement(t, p)
	if err != nil {
		return Outcome{}, err
	}
	t.snap.Requirements = append(t.snap.Requirements, req)
	t.touch(record.FamilyRequirements)
	return Outcome{Message: fmt.Sprintf("Requirement %s created", req.ID), Data: idData(req.ID)}, nil
}

func updateRequirement(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	req, ok := refs.Lookup(id, t.snap.Requirements)
	if !ok {
		return Outcome{}, notFound(record.FamilyRequirements, id)
	}
	if req.Status == record.StatusDeprecated {
		return Outcome{}, cannotUpdateDeprecated(record.FamilyRequirements, id)
	}

	next := *req
	if p.Has("title") {
		next.Title = r.String("title", next.Title)
	}
	if p.Has("invariant") {
		next.Invariant = r.Bool("invariant", next.Invariant)
	}
	if p.Has("statement") {
		next.Statement = r.String("statement", next.Statement)
	}
	if p.Has("rationale") {
		next.Rationale = r.String("rationale", next.Rationale)
	}
	if p.Has("artifact_refs") {
		next.ArtifactRefs = r.Strings("artifact_refs")
	}
	if p.Has("tags") {
		next.Tags = r.Strings("tags")
	}
	if p.Has("owner") {
		next.Owner = r.String("owner", next.Owner)
	}
	if p.Has("notes") {
		next.Notes = r.String("notes", next.Notes)
	}
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	if p.Has("artifact_refs") {
		if err := refs.Check(next.ArtifactRefs, t.snap.Artifacts, labelArtifactRef); err != nil {
			return Outcome{}, err
		}
	}

	next.UpdatedAt = t.now
	*req = next
	t.touch(record.FamilyRequirements)
	return Outcome{Message: fmt.Sprintf("Requirement %s updated", id), Data: idData(id)}, nil
}

func deprecateRequirement(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	req, ok := refs.Lookup(id, t.snap.Requirements)
	if !ok {
		return Outcome{}, notFound(record.FamilyRequirements, id)
	}
	if req.Status == record.StatusDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyRequirements, id)
	}

	req.Status = record.StatusDeprecated
	req.UpdatedAt = t.now
	t.touch(record.FamilyRequirements)
	return Outcome{Message: fmt.Sprintf("Requirement %s deprecated", id), Data: idData(id)}, nil
}

// supersedeRequirement creates the replacement and deprecates the old
// record in the same file write.
func supersedeRequirement(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	oldID := r.String("old_id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	newPayload, err := p.Object("new_requirement")
	if err != nil {
		return Outcome{}, err
	}
	if err := newPayload.Require("title", "type", "statement", "rationale"); err != nil {
		return Outcome{}, err
	}

	oldIdx, ok := refs.FindByID(oldID, t.snap.Requirements)
	if !ok {
		return Outcome{}, notFound(record.FamilyRequirements, oldID)
	}
	if t.snap.Requirements[oldIdx].Status == record.StatusDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyRequirements, oldID)
	}

	req, err := buildRequirement(t, newPayload)
	if err != nil {
		return Outcome{}, err
	}

	t.snap.Requirements = append(t.snap.Requirements, req)
	old := &t.snap.Requirements[oldIdx]
	old.Status = record.StatusDeprecated
	old.SupersededBy = record.StringPtr(req.ID)
	old.UpdatedAt = t.now
	t.touch(record.FamilyRequirements)

	return Outcome{
		Message: fmt.Sprintf("Requirement %s superseded by %s", oldID, req.ID),
		Data:    map[string]any{"old_id": oldID, "new_id": req.ID},
	}, nil
}

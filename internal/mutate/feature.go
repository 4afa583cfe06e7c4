package mutate

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

func createFeature(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	feat := record.Feature{
		Title:           r.String("title", ""),
		Status:          record.StatusActive,
		Purpose:         r.String("purpose", ""),
		BusinessValue:   r.String("business_value", ""),
		InScope:         r.Strings("in_scope"),
		OutOfScope:      r.Strings("out_of_scope"),
		RequirementRefs: r.Strings("requirement_refs"),
		ArtifactRefs:    r.Strings("artifact_refs"),
		Tags:            r.Strings("tags"),
		Owner:           r.String("owner", ""),
		Notes:           r.String("notes", ""),
		CreatedAt:       t.now,
		UpdatedAt:       t.now,
	}
	supplied := r.OptString("id")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	id, err := assignID(record.FamilyFeatures, supplied, t.snap.Features)
	if err != nil {
		return Outcome{}, err
	}
	feat.ID = id

	if err := refs.Check(feat.RequirementRefs, t.snap.Requirements, labelRequirementRef); err != nil {
		return Outcome{}, err
	}
	if err := refs.Check(feat.ArtifactRefs, t.snap.Artifacts, labelArtifactRef); err != nil {
		return Outcome{}, err
	}

	t.snap.Features = append(t.snap.Features, feat)
	t.touch(record.FamilyFeatures)
	return Outcome{Message: fmt.Sprintf("Feature %s created", id), Data: idData(id)}, nil
}

func updateFeature(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	feat, ok := refs.Lookup(id, t.snap.Features)
	if !ok {
		return Outcome{}, notFound(record.FamilyFeatures, id)
	}
	if feat.Status == record.StatusDeprecated {
		return Outcome{}, cannotUpdateDeprecated(record.FamilyFeatures, id)
	}

	next := *feat
	if p.Has("title") {
		next.Title = r.String("title", next.Title)
	}
	if p.Has("purpose") {
		next.Purpose = r.String("purpose", next.Purpose)
	}
	if p.Has("business_value") {
		next.BusinessValue = r.String("business_value", next.BusinessValue)
	}
	if p.Has("in_scope") {
		next.InScope = r.Strings("in_scope")
	}
	if p.Has("out_of_scope") {
		next.OutOfScope = r.Strings("out_of_scope")
	}
	if p.Has("requirement_refs") {
		next.RequirementRefs = r.Strings("requirement_refs")
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
	if p.Has("requirement_refs") {
		if err := refs.Check(next.RequirementRefs, t.snap.Requirements, labelRequirementRef); err != nil {
			return Outcome{}, err
		}
	}
	if p.Has("artifact_refs") {
		if err := refs.Check(next.ArtifactRefs, t.snap.Artifacts, labelArtifactRef); err != nil {
			return Outcome{}, err
		}
	}

	next.UpdatedAt = t.now
	*feat = next
	t.touch(record.FamilyFeatures)
	return Outcome{Message: fmt.Sprintf("Feature %s updated", id), Data: idData(id)}, nil
}

func deprecateFeature(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	feat, ok := refs.Lookup(id, t.snap.Features)
	if !ok {
		return Outcome{}, notFound(record.FamilyFeatures, id)
	}
	if feat.Status == record.StatusDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyFeatures, id)
	}

	feat.Status = record.StatusDeprecated
	feat.UpdatedAt = t.now
	t.touch(record.FamilyFeatures)
	return Outcome{Message: fmt.Sprintf("Feature %s deprecated", id), Data: idData(id)}, nil
}

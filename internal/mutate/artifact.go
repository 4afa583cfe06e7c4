package mutate

import (
	"fmt"
	"strings"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

// readTypes decodes the artifact type field, accepting a bare string or a
// list, and checks every member.
func readTypes(r *reader) record.ArtifactTypes {
	var types record.ArtifactTypes
	if !r.Into("type", "a string or an array of strings", &types) {
		return nil
	}
	if len(types) == 0 {
		r.err = fault.New(fault.InvalidFormat, "Invalid type: at least one of %s is required",
			strings.Join(record.ArtifactTypeList, ", "))
		return nil
	}
	if bad, found := types.Invalid(); found {
		r.err = fault.New(fault.InvalidFormat, "Invalid type '%s'. Must be one of %s",
			bad, strings.Join(record.ArtifactTypeList, ", "))
		return nil
	}
	return types
}

func createArtifact(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	art := record.Artifact{
		Title:         r.String("title", ""),
		Status:        record.ArtifactDraft,
		Type:          readTypes(r),
		Source:        r.String("source", ""),
		EffectiveDate: r.OptString("effective_date"),
		DocPath:       r.String("doc_path", ""),
		Description:   r.String("description", ""),
		Anchors:       r.Strings("anchors"),
		Tags:          r.Strings("tags"),
		Owner:         r.String("owner", ""),
		Notes:         r.String("notes", ""),
		CreatedAt:     t.now,
		UpdatedAt:     t.now,
	}
	supplied := r.OptString("id")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	id, err := assignID(record.FamilyArtifacts, supplied, t.snap.Artifacts)
	if err != nil {
		return Outcome{}, err
	}
	art.ID = id

	t.snap.Artifacts = append(t.snap.Artifacts, art)
	t.touch(record.FamilyArtifacts)
	return Outcome{Message: fmt.Sprintf("Artifact %s created", id), Data: idData(id)}, nil
}

func updateArtifact(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	art, ok := refs.Lookup(id, t.snap.Artifacts)
	if !ok {
		return Outcome{}, notFound(record.FamilyArtifacts, id)
	}
	if art.Status == record.ArtifactDeprecated {
		return Outcome{}, cannotUpdateDeprecated(record.FamilyArtifacts, id)
	}

	next := *art
	if p.Has("title") {
		next.Title = r.String("title", next.Title)
	}
	if p.Has("type") {
		next.Type = readTypes(r)
	}
	if p.Has("source") {
		next.Source = r.String("source", next.Source)
	}
	if p.Has("effective_date") {
		next.EffectiveDate = r.OptString("effective_date")
	}
	if p.Has("doc_path") {
		next.DocPath = r.String("doc_path", next.DocPath)
	}
	if p.Has("description") {
		next.Description = r.String("description", next.Description)
	}
	if p.Has("anchors") {
		next.Anchors = r.Strings("anchors")
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

	next.UpdatedAt = t.now
	*art = next
	t.touch(record.FamilyArtifacts)
	return Outcome{Message: fmt.Sprintf("Artifact %s updated", id), Data: idData(id)}, nil
}

func activateArtifact(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	art, ok := refs.Lookup(id, t.snap.Artifacts)
	if !ok {
		return Outcome{}, notFound(record.FamilyArtifacts, id)
	}
	if art.Status != record.ArtifactDraft {
		return Outcome{}, fault.New(fault.InvalidTransition,
			"Artifact %s is not in draft status (current: %s)", id, art.Status)
	}

	art.Status = record.ArtifactActive
	art.UpdatedAt = t.now
	t.touch(record.FamilyArtifacts)
	return Outcome{Message: fmt.Sprintf("Artifact %s activated", id), Data: idData(id)}, nil
}

func deprecateArtifact(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	id := r.String("id", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	art, ok := refs.Lookup(id, t.snap.Artifacts)
	if !ok {
		return Outcome{}, notFound(record.FamilyArtifacts, id)
	}
	if art.Status == record.ArtifactDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyArtifacts, id)
	}

	art.Status = record.ArtifactDeprecated
	art.UpdatedAt = t.now
	t.touch(record.FamilyArtifacts)
	return Outcome{Message: fmt.Sprintf("Artifact %s deprecated", id), Data: idData(id)}, nil
}

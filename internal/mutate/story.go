package mutate

import (
	"fmt"

	"github.com/roach88/reqtrack/internal/lineage"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/refs"
)

func readIntent(r *reader) (record.TestIntent, bool) {
	var ti record.TestIntent
	ok := r.Into("test_intent", "an object with failure_modes, guarantees and exclusions", &ti)
	return normalizeIntent(ti), ok
}

func createStory(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	title := r.String("title", "")
	epicRef := r.String("epic_ref", "")
	targets := readTargets(r)
	owner := r.String("owner", "")
	intent, _ := readIntent(r)

	v := record.StoryVersion{
		Description:        r.String("description", ""),
		AcceptanceCriteria: r.Strings("acceptance_criteria"),
		TestIntent:         intent,
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

	story := record.Story{
		Title:     title,
		Status:    record.StatusActive,
		EpicRef:   epicRef,
		Tags:      r.Strings("tags"),
		Owner:     owner,
		CreatedAt: t.now,
	}
	supplied := r.OptString("id")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	id, err := assignID(record.FamilyStories, supplied, t.snap.Stories)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := refs.Require("Epic", epicRef, t.snap.Epics); err != nil {
		return Outcome{}, err
	}
	if err := targets.check(t); err != nil {
		return Outcome{}, err
	}

	story.ID = id
	story.Versions = []record.StoryVersion{v}
	t.snap.Stories = append(t.snap.Stories, story)
	t.touch(record.FamilyStories)
	return Outcome{
		Message: fmt.Sprintf("Story %s created with version 1", id),
		Data:    map[string]any{"id": id, "version": 1},
	}, nil
}

func lookupStory(t *tx, r *reader) (*record.Story, error) {
	id := r.String("story_id", "")
	if err := r.Err(); err != nil {
		return nil, err
	}
	story, ok := refs.Lookup(id, t.snap.Stories)
	if !ok {
		return nil, notFound(record.FamilyStories, id)
	}
	return story, nil
}

func createStoryVersion(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	story, err := lookupStory(t, r)
	if err != nil {
		return Outcome{}, err
	}
	targets := readTargets(r)
	description := r.String("description", "")
	criteria, hasCriteria := r.Strings("acceptance_criteria"), p.Has("acceptance_criteria")
	intent, hasIntent := readIntent(r)
	owner := r.String("owner", "")
	notes := r.String("notes", "")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}
	if err := targets.check(t); err != nil {
		return Outcome{}, err
	}

	adv, err := lineage.Advance(lineage.Label(record.FamilyStories, story.ID), &story.Versions, t.now,
		func(prev *record.StoryVersion) record.StoryVersion {
			next := record.StoryVersion{Description: description, AcceptanceCriteria: criteria, TestIntent: intent}
			if !hasCriteria {
				next.AcceptanceCriteria = cloneStrings(prev.AcceptanceCriteria)
			}
			if !hasIntent {
				next.TestIntent = normalizeIntent(record.TestIntent{
					FailureModes: cloneStrings(prev.TestIntent.FailureModes),
					Guarantees:   cloneStrings(prev.TestIntent.Guarantees),
					Exclusions:   cloneStrings(prev.TestIntent.Exclusions),
				})
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

	t.touch(record.FamilyStories)
	return Outcome{
		Message: fmt.Sprintf("Story %s version %d created", story.ID, adv.Version),
		Data: map[string]any{
			"id":                 story.ID,
			"version":            adv.Version,
			"superseded_version": adv.SupersededVersion,
			"superseded_status":  string(adv.SupersededStatus),
		},
	}, nil
}

func setStoryVersionStatus(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	story, err := lookupStory(t, r)
	if err != nil {
		return Outcome{}, err
	}
	status := record.VersionStatus(r.String("status", ""))
	num := r.OptInt("version")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	v, err := lineage.SetStatus(lineage.Label(record.FamilyStories, story.ID), story.Versions, num, status, t.now)
	if err != nil {
		return Outcome{}, err
	}

	t.touch(record.FamilyStories)
	return Outcome{
		Message: fmt.Sprintf("Story %s version %d status set to %s", story.ID, v.Version, status),
		Data:    map[string]any{"id": story.ID, "version": v.Version, "status": string(status)},
	}, nil
}

func setStoryApproved(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	story, err := lookupStory(t, r)
	if err != nil {
		return Outcome{}, err
	}
	approved := r.Bool("approved", false)
	num := r.OptInt("version")
	if err := r.Err(); err != nil {
		return Outcome{}, err
	}

	v, err := lineage.SetApproved(lineage.Label(record.FamilyStories, story.ID), story.Versions, num, approved, t.now, lineage.StoryGate)
	if err != nil {
		return Outcome{}, err
	}

	t.touch(record.FamilyStories)
	return Outcome{
		Message: fmt.Sprintf("Story %s version %d approved set to %t", story.ID, v.Version, approved),
		Data:    map[string]any{"id": story.ID, "version": v.Version, "approved": approved},
	}, nil
}

func deprecateStory(t *tx, p Payload) (Outcome, error) {
	r := p.reader()
	story, err := lookupStory(t, r)
	if err != nil {
		return Outcome{}, err
	}
	if story.Status == record.StatusDeprecated {
		return Outcome{}, alreadyDeprecated(record.FamilyStories, story.ID)
	}

	discarded := lineage.DiscardBacklog(story.Versions, t.now)
	story.Status = record.StatusDeprecated
	t.touch(record.FamilyStories)
	return Outcome{
		Message: fmt.Sprintf("Story %s deprecated", story.ID),
		Data:    map[string]any{"id": story.ID, "discarded_versions": discarded},
	}, nil
}

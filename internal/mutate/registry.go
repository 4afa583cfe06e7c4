package mutate

import (
	"slices"
	"sort"

	"github.com/roach88/reqtrack/internal/record"
)

// Operation is one entry of the write API.
type Operation struct {
	Name string
	// Aliases are older names still accepted by the CLI.
	Aliases []string
	Family  record.Family
	Summary string
	// Required lists the payload keys the operation cannot run without.
	Required []string

	run func(*tx, Payload) (Outcome, error)
}

var operations = []Operation{
	{Name: "create_release", Family: record.FamilyReleases, run: createRelease,
		Required: []string{"id", "release_date", "description"},
		Summary:  "create a planned release with a caller-supplied REL-YYYY-MM-DD id"},
	{Name: "set_release_status", Family: record.FamilyReleases, run: setReleaseStatus,
		Required: []string{"id", "status"},
		Summary:  "move a release from planned to released"},

	{Name: "create_artifact", Aliases: []string{"add_domain_entry"}, Family: record.FamilyArtifacts, run: createArtifact,
		Required: []string{"title", "type", "source", "doc_path"},
		Summary:  "register a business artifact in draft status"},
	{Name: "update_artifact", Aliases: []string{"update_domain_entry"}, Family: record.FamilyArtifacts, run: updateArtifact,
		Required: []string{"id"},
		Summary:  "edit fields of a non-deprecated artifact"},
	{Name: "activate_artifact", Aliases: []string{"activate_domain_entry"}, Family: record.FamilyArtifacts, run: activateArtifact,
		Required: []string{"id"},
		Summary:  "move an artifact from draft to active"},
	{Name: "deprecate_artifact", Aliases: []string{"deprecate_domain_entry"}, Family: record.FamilyArtifacts, run: deprecateArtifact,
		Required: []string{"id"},
		Summary:  "deprecate an artifact"},

	{Name: "create_requirement", Aliases: []string{"add_requirement"}, Family: record.FamilyRequirements, run: createRequirement,
		Required: []string{"title", "type", "statement", "rationale"},
		Summary:  "add an active requirement"},
	{Name: "update_requirement", Family: record.FamilyRequirements, run: updateRequirement,
		Required: []string{"id"},
		Summary:  "edit fields of a non-deprecated requirement"},
	{Name: "deprecate_requirement", Family: record.FamilyRequirements, run: deprecateRequirement,
		Required: []string{"id"},
		Summary:  "deprecate a requirement"},
	{Name: "supersede_requirement", Family: record.FamilyRequirements, run: supersedeRequirement,
		Required: []string{"old_id", "new_requirement"},
		Summary:  "replace a requirement with a new one and deprecate the old"},

	{Name: "create_feature", Aliases: []string{"add_feature"}, Family: record.FamilyFeatures, run: createFeature,
		Required: []string{"title", "purpose", "business_value"},
		Summary:  "add an active feature"},
	{Name: "update_feature", Family: record.FamilyFeatures, run: updateFeature,
		Required: []string{"id"},
		Summary:  "edit fields of a non-deprecated feature"},
	{Name: "deprecate_feature", Family: record.FamilyFeatures, run: deprecateFeature,
		Required: []string{"id"},
		Summary:  "deprecate a feature"},

	{Name: "create_epic", Aliases: []string{"add_epic"}, Family: record.FamilyEpics, run: createEpic,
		Required: []string{"title", "feature_ref", "release_ref", "summary"},
		Summary:  "add an epic with version 1 in backlog"},
	{Name: "create_epic_version", Family: record.FamilyEpics, run: createEpicVersion,
		Required: []string{"epic_id", "release_ref", "summary"},
		Summary:  "close the backlog version and open the next one"},
	{Name: "set_epic_version_status", Family: record.FamilyEpics, run: setEpicVersionStatus,
		Required: []string{"epic_id", "status"},
		Summary:  "change the status of an epic version"},
	{Name: "set_epic_approved", Family: record.FamilyEpics, run: setEpicApproved,
		Required: []string{"epic_id", "approved"},
		Summary:  "set the approved flag on the backlog epic version"},
	{Name: "deprecate_epic", Family: record.FamilyEpics, run: deprecateEpic,
		Required: []string{"epic_id"},
		Summary:  "deprecate an epic and discard its backlog version"},

	{Name: "create_story", Aliases: []string{"add_story"}, Family: record.FamilyStories, run: createStory,
		Required: []string{"title", "epic_ref", "release_ref", "description"},
		Summary:  "add a story with version 1 in backlog"},
	{Name: "create_story_version", Family: record.FamilyStories, run: createStoryVersion,
		Required: []string{"story_id", "release_ref", "description"},
		Summary:  "close the backlog version and open the next one"},
	{Name: "set_story_version_status", Aliases: []string{"set_story_status"}, Family: record.FamilyStories, run: setStoryVersionStatus,
		Required: []string{"story_id", "status"},
		Summary:  "change the status of a story version"},
	{Name: "set_story_approved", Family: record.FamilyStories, run: setStoryApproved,
		Required: []string{"story_id", "approved"},
		Summary:  "approve the backlog story version (needs acceptance criteria and test intent)"},
	{Name: "deprecate_story", Family: record.FamilyStories, run: deprecateStory,
		Required: []string{"story_id"},
		Summary:  "deprecate a story and discard its backlog version"},
}

// Operations returns all operations in registry order.
func Operations() []Operation {
	return slices.Clone(operations)
}

// Lookup finds an operation by name or alias.
func Lookup(name string) (Operation, bool) {
	for _, op := range operations {
		if op.Name == name || slices.Contains(op.Aliases, name) {
			return op, true
		}
	}
	return Operation{}, false
}

// Names returns every accepted name, aliases included, sorted.
func Names() []string {
	var names []string
	for _, op := range operations {
		names = append(names, op.Name)
		names = append(names, op.Aliases...)
	}
	sort.Strings(names)
	return names
}

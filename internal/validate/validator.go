package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/reqtrack/internal/ids"
	"github.com/roach88/reqtrack/internal/lineage"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
)

// Validator runs the full set of checks over a store.
type Validator struct {
	store  *store.Store
	schema *Schema
	logger *slog.Logger
}

// New creates a Validator. The embedded schema is compiled once here.
func New(st *store.Store, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	schema, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	return &Validator{store: st, schema: schema, logger: logger}, nil
}

// entry is one raw record as read from a family file.
type entry struct {
	id     string
	fields map[string]json.RawMessage
	raw    json.RawMessage
	// conforms is set when the record passed the schema check.
	conforms bool
}

func (e entry) label() string {
	if e.id == "" {
		return "unknown"
	}
	return e.id
}

func (e entry) has(key string) bool {
	_, ok := e.fields[key]
	return ok
}

// str returns the string value at key, if present and a string.
func (e entry) str(key string) (string, bool) {
	raw, ok := e.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// rules are the per-family presence and status checks.
type rules struct {
	required []string
	statuses []string
}

var familyRules = map[record.Family]rules{
	record.FamilyReleases: {
		required: []string{"id", "status", "release_date", "description"},
		statuses: record.ReleaseStatuses,
	},
	record.FamilyArtifacts: {
		required: []string{"id", "title", "status", "type", "source", "doc_path"},
		statuses: record.ArtifactStatuses,
	},
	record.FamilyRequirements: {
		required: []string{"id", "title", "status", "type", "statement", "rationale"},
		statuses: record.RecordStatuses,
	},
	record.FamilyFeatures: {
		required: []string{"id", "title", "status", "purpose", "business_value"},
		statuses: record.RecordStatuses,
	},
	record.FamilyEpics: {
		required: []string{"id", "title", "status", "feature_ref", "versions"},
		statuses: record.RecordStatuses,
	},
	record.FamilyStories: {
		required: []string{"id", "title", "status", "epic_ref", "versions"},
		statuses: record.RecordStatuses,
	},
}

// run holds the state of one validation pass.
type run struct {
	report  *Report
	entries map[record.Family][]entry
	idsOf   map[record.Family]map[string]bool

	releases     []record.Release
	artifacts    []record.Artifact
	requirements []record.Requirement
	features     []record.Feature
	epics        []record.Epic
	stories      []record.Story
}

// Run loads every family and returns the accumulated report. The error
// return is reserved for I/O failures; data problems end up in the report.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	r := &run{
		report:  &Report{},
		entries: make(map[record.Family][]entry, len(record.Families)),
		idsOf:   make(map[record.Family]map[string]bool, len(record.Families)),
	}

	for _, f := range record.Families {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := v.load(f, r.report)
		if err != nil {
			return nil, err
		}
		r.entries[f] = entries
		r.idsOf[f] = idSet(entries)
		checkEntries(r.report, f, entries)
		v.logger.Debug("checked family shape", "family", string(f), "records", len(entries))
	}

	r.releases = decode[record.Release](r.report, record.FamilyReleases, r.entries[record.FamilyReleases])
	r.artifacts = decode[record.Artifact](r.report, record.FamilyArtifacts, r.entries[record.FamilyArtifacts])
	r.requirements = decode[record.Requirement](r.report, record.FamilyRequirements, r.entries[record.FamilyRequirements])
	r.features = decode[record.Feature](r.report, record.FamilyFeatures, r.entries[record.FamilyFeatures])
	r.epics = decode[record.Epic](r.report, record.FamilyEpics, r.entries[record.FamilyEpics])
	r.stories = decode[record.Story](r.report, record.FamilyStories, r.entries[record.FamilyStories])

	r.checkArtifacts()
	r.checkRequirements()
	r.checkFeatures()
	r.checkEpics()
	r.checkStories()

	r.warnDocPaths(v.store.Config().RootPath)
	r.warnStaleLinks()

	v.logger.Info("validation finished",
		"errors", len(r.report.Errors),
		"warnings", len(r.report.Warnings))
	return r.report, nil
}

// load reads one family file into raw entries and runs the schema check on
// each record.
func (v *Validator) load(f record.Family, rep *Report) ([]entry, error) {
	data, err := v.store.ReadRaw(f)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		rep.errorf("[%s] JSON parse error: %v", f, err)
		return nil, nil
	}

	entries := make([]entry, 0, len(raws))
	for i, raw := range raws {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			rep.errorf("[%s] Record %d is not an object", f, i)
			continue
		}
		e := entry{fields: fields, raw: raw}
		e.id, _ = e.str("id")

		if problems := v.schema.Check(f, raw); len(problems) > 0 {
			for _, p := range problems {
				rep.errorf("[%s] %s: Schema violation: %s", f, e.label(), p)
			}
		} else {
			e.conforms = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func idSet(entries []entry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.id != "" {
			set[e.id] = true
		}
	}
	return set
}

// checkEntries covers ID format, uniqueness, required fields and status
// membership, all of which work on the raw record.
func checkEntries(rep *Report, f record.Family, entries []entry) {
	rule := familyRules[f]
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		switch {
		case e.id == "":
			rep.errorf("[%s] Record missing 'id' field", f)
		case !ids.ValidFormat(f, e.id):
			rep.errorf("[%s] Invalid ID format: %s", f, e.id)
		}
		if e.id != "" {
			if seen[e.id] {
				rep.errorf("[%s] Duplicate ID: %s", f, e.id)
			}
			seen[e.id] = true
		}

		for _, field := range rule.required {
			if field != "id" && !e.has(field) {
				rep.errorf("[%s] %s: Missing required field '%s'", f, e.label(), field)
			}
		}

		if status, ok := e.str("status"); ok && !slices.Contains(rule.statuses, status) {
			rep.errorf("[%s] %s: Invalid status '%s'. Must be one of %s",
				f, e.label(), status, strings.Join(rule.statuses, ", "))
		}
	}
}

// decode turns entries into typed records. A record that failed the schema
// check is still decoded, minus the values that do not fit its type, so its
// references and versions are checked like any other.
func decode[T any](rep *Report, f record.Family, entries []entry) []T {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if !e.conforms {
			out = append(out, salvage[T](e.fields))
			continue
		}
		var rec T
		if err := json.Unmarshal(e.raw, &rec); err != nil {
			rep.errorf("[%s] %s: %v", f, e.label(), err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// salvage decodes the fields of a record into T one at a time, dropping the
// ones T cannot hold. Arrays of objects (versions) are filtered per element
// key so one bad value does not lose the whole lineage.
func salvage[T any](fields map[string]json.RawMessage) T {
	kept := make(map[string]json.RawMessage, len(fields))
	for key, value := range fields {
		if fits[T](key, value) {
			kept[key] = value
			continue
		}
		var items []map[string]json.RawMessage
		if json.Unmarshal(value, &items) != nil {
			continue
		}
		for _, item := range items {
			for k, v := range item {
				one, err := json.Marshal([]map[string]json.RawMessage{{k: v}})
				if err != nil || !fits[T](key, one) {
					delete(item, k)
				}
			}
		}
		if filtered, err := json.Marshal(items); err == nil && fits[T](key, filtered) {
			kept[key] = filtered
		}
	}

	var rec T
	if data, err := json.Marshal(kept); err == nil {
		_ = json.Unmarshal(data, &rec)
	}
	return rec
}

// fits reports whether a record holding only key: value decodes into T.
func fits[T any](key string, value json.RawMessage) bool {
	data, err := json.Marshal(map[string]json.RawMessage{key: value})
	if err != nil {
		return false
	}
	var probe T
	return json.Unmarshal(data, &probe) == nil
}

func (r *run) checkRefs(source, field string, refs []string, target record.Family) {
	for _, ref := range refs {
		if !r.idsOf[target][ref] {
			r.report.errorf("%s: Invalid %s '%s' (not found in %s)", source, field, ref, target)
		}
	}
}

func (r *run) checkArtifacts() {
	for _, a := range r.artifacts {
		if a.Type == nil {
			continue
		}
		if len(a.Type) == 0 {
			r.report.errorf("[%s] %s: Type must list at least one of %s",
				record.FamilyArtifacts, a.ID, strings.Join(record.ArtifactTypeList, ", "))
			continue
		}
		if bad, ok := a.Type.Invalid(); ok {
			r.report.errorf("[%s] %s: Invalid type '%s'", record.FamilyArtifacts, a.ID, bad)
		}
	}
}

func (r *run) checkRequirements() {
	f := record.FamilyRequirements
	for _, req := range r.requirements {
		source := fmt.Sprintf("[%s] %s", f, req.ID)
		if req.Type != "" && !req.Type.Valid() {
			r.report.errorf("%s: Invalid type '%s'", source, req.Type)
		}
		r.checkRefs(source, "artifact_refs", req.ArtifactRefs, record.FamilyArtifacts)

		if req.SupersededBy == nil {
			continue
		}
		next := *req.SupersededBy
		switch {
		case next == req.ID:
			r.report.errorf("%s: superseded_by references itself", source)
		case !r.idsOf[f][next]:
			r.report.errorf("%s: Invalid superseded_by '%s'", source, next)
		}
		if req.Status != record.StatusDeprecated {
			r.report.errorf("%s: Superseded requirement must be deprecated (status '%s')", source, req.Status)
		}
	}
}

func (r *run) checkFeatures() {
	for _, feat := range r.features {
		source := fmt.Sprintf("[%s] %s", record.FamilyFeatures, feat.ID)
		r.checkRefs(source, "requirement_refs", feat.RequirementRefs, record.FamilyRequirements)
		r.checkRefs(source, "artifact_refs", feat.ArtifactRefs, record.FamilyArtifacts)
	}
}

func (r *run) checkEpics() {
	f := record.FamilyEpics
	for _, epic := range r.epics {
		if epic.FeatureRef != "" && !r.idsOf[record.FamilyFeatures][epic.FeatureRef] {
			r.report.errorf("[%s] %s: Invalid feature_ref '%s'", f, epic.ID, epic.FeatureRef)
		}
		checkVersions(r, f, epic.ID, epic.Status, epic.Versions)
	}
}

func (r *run) checkStories() {
	f := record.FamilyStories
	for _, story := range r.stories {
		if story.EpicRef != "" && !r.idsOf[record.FamilyEpics][story.EpicRef] {
			r.report.errorf("[%s] %s: Invalid epic_ref '%s'", f, story.ID, story.EpicRef)
		}
		checkVersions(r, f, story.ID, story.Status, story.Versions)

		for i := range story.Versions {
			v := &story.Versions[i]
			if !v.Approved {
				continue
			}
			if len(v.AcceptanceCriteria) == 0 {
				r.report.errorf("[%s] %s v%d: Approved version requires acceptance_criteria", f, story.ID, v.Version)
			}
			if v.TestIntent.Empty() {
				r.report.errorf("[%s] %s v%d: Approved version requires test_intent with failure_modes or guarantees",
					f, story.ID, v.Version)
			}
		}
	}
}

// checkVersions covers the lineage rules shared by epics and stories:
// dense numbering, valid statuses, a single backlog version, resolvable
// references and backward-only supersedes links.
func checkVersions[V any, P lineage.Ptr[V]](r *run, f record.Family, owner string, ownerStatus record.Status, vs []V) {
	if len(vs) == 0 {
		r.report.errorf("[%s] %s: Must have at least one version", f, owner)
		return
	}

	present := make(map[int]bool, len(vs))
	for i := range vs {
		if n := P(&vs[i]).Header().Version; n > 0 {
			present[n] = true
		}
	}

	var nums, backlog []int
	for i := range vs {
		h, refs := P(&vs[i]).Header(), P(&vs[i]).Refs()
		source := fmt.Sprintf("[%s] %s v%d", f, owner, h.Version)

		if h.Version == 0 {
			r.report.errorf("[%s] %s: Version missing 'version' field", f, owner)
		} else {
			nums = append(nums, h.Version)
		}

		switch {
		case h.Status == "":
			r.report.errorf("%s: Missing required field 'status'", source)
		case !h.Status.Valid():
			r.report.errorf("%s: Invalid status '%s'. Must be one of %s",
				source, h.Status, strings.Join(record.VersionStatuses, ", "))
		case h.Status == record.VersionBacklog:
			backlog = append(backlog, h.Version)
		}

		if h.ReleaseRef != nil && !r.idsOf[record.FamilyReleases][*h.ReleaseRef] {
			r.report.errorf("%s: Invalid release_ref '%s'", source, *h.ReleaseRef)
		}
		r.checkRefs(source, "requirement_refs", refs.RequirementRefs, record.FamilyRequirements)
		r.checkRefs(source, "artifact_refs", refs.ArtifactRefs, record.FamilyArtifacts)

		if s := refs.Supersedes; s != nil && (*s >= h.Version || !present[*s]) {
			r.report.errorf("%s: Invalid supersedes '%d'", source, *s)
		}
	}

	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)
	for i, n := range sorted {
		if n != i+1 {
			r.report.errorf("[%s] %s: Version numbers not monotonic (expected %d, found %d)", f, owner, i+1, n)
			break
		}
	}

	if len(backlog) > 1 {
		r.report.errorf("[%s] %s: Multiple backlog versions (%s)", f, owner, versionList(backlog))
	}
	if ownerStatus == record.StatusDeprecated && len(backlog) > 0 {
		r.report.errorf("[%s] %s: Deprecated %s has a backlog version (%s)",
			f, owner, f.Noun(), versionList(backlog))
	}
}

// warnDocPaths flags non-deprecated artifacts whose doc_path is missing.
func (r *run) warnDocPaths(resolve func(string) string) {
	for _, a := range r.artifacts {
		if a.Status == record.ArtifactDeprecated || a.DocPath == "" {
			continue
		}
		if _, err := os.Stat(resolve(a.DocPath)); errors.Is(err, fs.ErrNotExist) {
			r.report.warnf("[%s] %s: doc_path '%s' does not exist", record.FamilyArtifacts, a.ID, a.DocPath)
		}
	}
}

// warnStaleLinks flags current work that points at deprecated upstream
// records or at a release that has already shipped.
func (r *run) warnStaleLinks() {
	deprecatedReqs := make(map[string]bool)
	for _, req := range r.requirements {
		if req.Status == record.StatusDeprecated {
			deprecatedReqs[req.ID] = true
		}
	}
	deprecatedArts := make(map[string]bool)
	for _, a := range r.artifacts {
		if a.Status == record.ArtifactDeprecated {
			deprecatedArts[a.ID] = true
		}
	}
	deprecatedFeatures := make(map[string]bool)
	for _, feat := range r.features {
		if feat.Status == record.StatusDeprecated {
			deprecatedFeatures[feat.ID] = true
		}
	}
	deprecatedEpics := make(map[string]bool)
	for _, epic := range r.epics {
		if epic.Status == record.StatusDeprecated {
			deprecatedEpics[epic.ID] = true
		}
	}
	released := make(map[string]bool)
	for _, rel := range r.releases {
		if rel.Status == record.ReleaseReleased {
			released[rel.ID] = true
		}
	}

	current := func(source string, h *record.VersionHeader, refs *record.VersionRefs) {
		for _, ref := range refs.RequirementRefs {
			if deprecatedReqs[ref] {
				r.report.warnf("%s: References deprecated requirement '%s'", source, ref)
			}
		}
		for _, ref := range refs.ArtifactRefs {
			if deprecatedArts[ref] {
				r.report.warnf("%s: References deprecated artifact '%s'", source, ref)
			}
		}
		if h.ReleaseRef != nil && released[*h.ReleaseRef] {
			r.report.warnf("%s: Backlog version targets released release '%s'", source, *h.ReleaseRef)
		}
	}

	for _, epic := range r.epics {
		if deprecatedFeatures[epic.FeatureRef] {
			r.report.warnf("[%s] %s: References deprecated feature '%s'", record.FamilyEpics, epic.ID, epic.FeatureRef)
		}
		if v, ok := lineage.Backlog[record.EpicVersion](epic.Versions); ok {
			current(fmt.Sprintf("[%s] %s v%d", record.FamilyEpics, epic.ID, v.Version), &v.VersionHeader, &v.VersionRefs)
		}
	}
	for _, story := range r.stories {
		if deprecatedEpics[story.EpicRef] {
			r.report.warnf("[%s] %s: References deprecated epic '%s'", record.FamilyStories, story.ID, story.EpicRef)
		}
		if v, ok := lineage.Backlog[record.StoryVersion](story.Versions); ok {
			current(fmt.Sprintf("[%s] %s v%d", record.FamilyStories, story.ID, v.Version), &v.VersionHeader, &v.VersionRefs)
		}
	}
}

// versionList formats version numbers as "v2, v3".
func versionList(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = "v" + strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

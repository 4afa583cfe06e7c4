package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/reqtrack/internal/lineage"
	"github.com/roach88/reqtrack/internal/record"
	"github.com/roach88/reqtrack/internal/store"
)

// Build describes one index rebuild.
type Build struct {
	ID          string `json:"id"`
	BuiltAt     string `json:"built_at"`
	RecordCount int    `json:"record_count"`
	RefCount    int    `json:"ref_count"`
	// Skipped counts records whose ID was already indexed in this build.
	Skipped int `json:"skipped,omitempty"`
}

// row is one records-table entry plus the references it holds.
type row struct {
	id      string
	family  record.Family
	title   string
	status  string
	current *int
	rec     any
	refs    []ref
}

type ref struct {
	version *int
	field   string
	target  string
}

// Rebuild replaces the index contents with the records in snap.
// Everything happens in one transaction: readers see either the previous
// build or the new one.
func (d *DB) Rebuild(ctx context.Context, snap *store.Snapshot, buildID string, builtAt time.Time) (Build, error) {
	b := Build{ID: buildID, BuiltAt: builtAt.UTC().Format(time.RFC3339)}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, fmt.Errorf("rebuild: begin: %w", err)
	}
	defer tx.Rollback()

	// refs cascade from records.
	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return Build{}, fmt.Errorf("rebuild: clear: %w", err)
	}

	for _, r := range rows(snap) {
		inserted, err := insertRow(ctx, tx, r)
		if err != nil {
			return Build{}, fmt.Errorf("rebuild: %s %s: %w", r.family, r.id, err)
		}
		if !inserted {
			b.Skipped++
			continue
		}
		b.RecordCount++
		b.RefCount += len(r.refs)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds (id, built_at, record_count)
		VALUES (?, ?, ?)
	`, b.ID, b.BuiltAt, b.RecordCount)
	if err != nil {
		return Build{}, fmt.Errorf("rebuild: record build: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("rebuild: commit: %w", err)
	}
	return b, nil
}

// insertRow writes a record and its references. ON CONFLICT(id) DO NOTHING
// keeps the first occurrence of a duplicated ID; the validator reports the
// duplicate itself.
func insertRow(ctx context.Context, tx *sql.Tx, r row) (bool, error) {
	hash, err := record.Fingerprint(r.rec)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO records (id, family, title, status, current_version, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.id, string(r.family), r.title, r.status, nullableInt(r.current), hash)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	for _, rf := range r.refs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO refs (source, source_version, field, target)
			VALUES (?, ?, ?, ?)
		`, r.id, nullableInt(rf.version), rf.field, rf.target)
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func nullableInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// rows flattens a snapshot into index rows, family by family.
func rows(snap *store.Snapshot) []row {
	var out []row
	for _, r := range snap.Releases {
		out = append(out, row{id: r.ID, family: record.FamilyReleases, title: r.Title, status: string(r.Status), rec: r})
	}
	for _, a := range snap.Artifacts {
		out = append(out, row{id: a.ID, family: record.FamilyArtifacts, title: a.Title, status: string(a.Status), rec: a})
	}
	for _, q := range snap.Requirements {
		r := row{id: q.ID, family: record.FamilyRequirements, title: q.Title, status: string(q.Status), rec: q}
		r.refs = listRefs(nil, "artifact_refs", q.ArtifactRefs)
		if q.SupersededBy != nil {
			r.refs = append(r.refs, ref{field: "superseded_by", target: *q.SupersededBy})
		}
		out = append(out, r)
	}
	for _, f := range snap.Features {
		r := row{id: f.ID, family: record.FamilyFeatures, title: f.Title, status: string(f.Status), rec: f}
		r.refs = append(listRefs(nil, "requirement_refs", f.RequirementRefs), listRefs(nil, "artifact_refs", f.ArtifactRefs)...)
		out = append(out, r)
	}
	for _, e := range snap.Epics {
		r := row{id: e.ID, family: record.FamilyEpics, title: e.Title, status: string(e.Status), rec: e}
		if v, ok := lineage.Current[record.EpicVersion](e.Versions); ok {
			r.current = record.IntPtr(v.Version)
		}
		if e.FeatureRef != "" {
			r.refs = append(r.refs, ref{field: "feature_ref", target: e.FeatureRef})
		}
		for i := range e.Versions {
			r.refs = append(r.refs, versionRefs(&e.Versions[i])...)
		}
		out = append(out, r)
	}
	for _, s := range snap.Stories {
		r := row{id: s.ID, family: record.FamilyStories, title: s.Title, status: string(s.Status), rec: s}
		if v, ok := lineage.Current[record.StoryVersion](s.Versions); ok {
			r.current = record.IntPtr(v.Version)
		}
		if s.EpicRef != "" {
			r.refs = append(r.refs, ref{field: "epic_ref", target: s.EpicRef})
		}
		for i := range s.Versions {
			r.refs = append(r.refs, versionRefs(&s.Versions[i])...)
		}
		out = append(out, r)
	}
	return out
}

func listRefs(version *int, field string, targets []string) []ref {
	out := make([]ref, 0, len(targets))
	for _, t := range targets {
		out = append(out, ref{version: version, field: field, target: t})
	}
	return out
}

func versionRefs(v record.Versioned) []ref {
	h, refs := v.Header(), v.Refs()
	n := record.IntPtr(h.Version)
	var out []ref
	if h.ReleaseRef != nil {
		out = append(out, ref{version: n, field: "release_ref", target: *h.ReleaseRef})
	}
	out = append(out, listRefs(n, "requirement_refs", refs.RequirementRefs)...)
	return append(out, listRefs(n, "artifact_refs", refs.ArtifactRefs)...)
}

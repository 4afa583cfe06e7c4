package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reqtrack/internal/fault"
	"github.com/roach88/reqtrack/internal/record"
)

// Entry is one indexed record.
type Entry struct {
	ID             string        `json:"id"`
	Family         record.Family `json:"family"`
	Title          string        `json:"title"`
	Status         string        `json:"status"`
	CurrentVersion *int          `json:"current_version,omitempty"`
	ContentHash    string        `json:"content_hash"`
}

// Ref is one indexed reference.
type Ref struct {
	Source        string `json:"source"`
	SourceVersion *int   `json:"source_version,omitempty"`
	Field         string `json:"field"`
	Target        string `json:"target"`
}

// Record returns the indexed entry for id.
func (d *DB) Record(ctx context.Context, id string) (Entry, error) {
	var (
		e       Entry
		family  string
		current sql.NullInt64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, family, title, status, current_version, content_hash
		FROM records
		WHERE id = ?
	`, id).Scan(&e.ID, &family, &e.Title, &e.Status, &current, &e.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fault.New(fault.NotFound, "Record '%s' not found in index", id).With("id", id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query record: %w", err)
	}
	e.Family = record.Family(family)
	e.CurrentVersion = intPtr(current)
	return e, nil
}

// Referrers returns every reference whose target is id, ordered by
// source, version and field.
func (d *DB) Referrers(ctx context.Context, id string) ([]Ref, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT source, source_version, field, target
		FROM refs
		WHERE target = ?
		ORDER BY source ASC, COALESCE(source_version, 0) ASC, field ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query referrers: %w", err)
	}
	defer rows.Close()

	out := []Ref{}
	for rows.Next() {
		var (
			r       Ref
			version sql.NullInt64
		)
		if err := rows.Scan(&r.Source, &version, &r.Field, &r.Target); err != nil {
			return nil, fmt.Errorf("scan referrer: %w", err)
		}
		r.SourceVersion = intPtr(version)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referrers: %w", err)
	}
	return out, nil
}

// Dangling returns references whose target is not an indexed record.
func (d *DB) Dangling(ctx context.Context) ([]Ref, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.source, r.source_version, r.field, r.target
		FROM refs r
		LEFT JOIN records t ON t.id = r.target
		WHERE t.id IS NULL
		ORDER BY r.source ASC, COALESCE(r.source_version, 0) ASC, r.field ASC, r.target ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dangling refs: %w", err)
	}
	defer rows.Close()

	out := []Ref{}
	for rows.Next() {
		var (
			r       Ref
			version sql.NullInt64
		)
		if err := rows.Scan(&r.Source, &version, &r.Field, &r.Target); err != nil {
			return nil, fmt.Errorf("scan dangling ref: %w", err)
		}
		r.SourceVersion = intPtr(version)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of indexed records per family.
func (d *DB) Counts(ctx context.Context) (map[record.Family]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT family, COUNT(*) FROM records GROUP BY family`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	out := make(map[record.Family]int)
	for rows.Next() {
		var (
			family string
			n      int
		)
		if err := rows.Scan(&family, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[record.Family(family)] = n
	}
	return out, rows.Err()
}

// LatestBuild returns the most recent build, if any.
func (d *DB) LatestBuild(ctx context.Context) (Build, bool, error) {
	var b Build
	err := d.db.QueryRowContext(ctx, `
		SELECT id, built_at, record_count
		FROM builds
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&b.ID, &b.BuiltAt, &b.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, false, nil
	}
	if err != nil {
		return Build{}, false, fmt.Errorf("query latest build: %w", err)
	}
	return b, true, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

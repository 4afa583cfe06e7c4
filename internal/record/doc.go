// Package record defines the canonical record families of the requirements
// ledger and their on-disk JSON shape.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import record; record imports nothing internal.
//
// Key design constraints:
//   - One JSON array file per family; the struct tags here are the file schema
//   - All JSON tags use snake_case
//   - Nullable references are pointers and serialize as null, never omitted
//   - Timestamps are stored as RFC 3339 UTC strings ("2025-01-01T00:00:00Z")
package record

// Package index maintains a SQLite lookup index built from the record
// store: one row per record with its content hash, one row per reference,
// and a log of builds.
//
// The index is derived data. It is rebuilt from the family files in a
// single transaction and is never used as a source of truth.
package index

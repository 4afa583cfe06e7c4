// Package store provides the flat-file record store.
//
// Each record family lives in one JSON file under the data directory: a
// top-level array of record objects in insertion order, indented with two
// spaces and terminated by a newline. Files are always read and written
// whole.
//
// # Write model
//
// The store assumes a single writer. Writes go through natefinch/atomic, so
// a crash never leaves a half-written file, but two processes doing
// load-modify-save concurrently can still lose one update. When locking is
// enabled in the config, mutations hold an advisory flock on
// <data_dir>/.reqtrack.lock for their whole read-modify-write cycle, which
// serializes cooperating reqtrack processes. Editors and other tools do not
// take the lock.
//
// # Missing files
//
// A missing or empty family file reads as an empty collection.
package store

// Package validate checks the whole record store against the data model's
// invariants and reports every violation it finds.
//
// It is an independent second implementation of the rules the mutate
// package enforces. It reads the family files as they are on disk, so it
// catches hand edits and mutation bugs alike. Each record is first checked
// for shape against an embedded CUE schema, then decoded and checked for
// required fields, ID formats, enum membership, reference resolution and
// version lineage.
//
// Findings are split into errors, which fail validation, and warnings,
// which flag stale links a human should look at.
package validate

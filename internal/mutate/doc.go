// Package mutate implements the write API over the record store.
//
// Every operation follows the same order: required fields, then the
// format and uniqueness of any new ID, then reference resolution, then
// family rules (release open, single backlog, approval completeness).
// Only when all checks pass is the in-memory snapshot changed and the
// touched family file rewritten. Checks are fail-fast: the first problem
// is reported.
//
// Service.Execute is the boundary used by the CLI. It never returns a Go
// error or panics; every outcome is a Result.
package mutate

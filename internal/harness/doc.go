// Package harness runs YAML mutation scenarios against a fresh record
// store and checks the outcome of every step.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - op: create_release
//	    payload: { id: REL-2025-01-01, release_date: "2025-01-01", description: Q1 }
//	flow:
//	  - op: create_epic_version
//	    payload: { epic_id: EPIC-001, release_ref: REL-2025-01-01, summary: v2 }
//	    expect:
//	      status: error
//	      code: INVARIANT_VIOLATION
//	      message_contains: "is not open"
//	assertions:
//	  - type: record
//	    family: epics
//	    id: EPIC-001
//	    expect: { status: active }
//	  - type: record_count
//	    family: epics
//	    count: 1
//	  - type: valid
//
// Setup steps must succeed; a failing setup step aborts the run. Flow
// steps are compared against their expect clause, which defaults to
// status: success.
//
// # Assertion Types
//
//   - record: the record with the given ID matches expect (subset match)
//   - record_count: the family holds exactly count records
//   - valid: the validator finds no errors in the final store
//
// # Deterministic Testing
//
// Every run uses a fresh temporary data directory, a
// testutil.DeterministicClock and a fixed operation id, so the step trace
// and the final files are identical across runs and can be compared with
// golden files.
package harness

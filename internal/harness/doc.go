// Package harness runs YAML bookmark scenarios against the service façade
// and records a deterministic trace for golden comparison.
//
// # Scenario Format
//
//	name: match_lookup
//	description: "Persisted bookmark is found at its position"
//	clock_step: 1m        # optional, default 1m; "0s" freezes time
//	id_prefix: bm         # optional, ids are bm-0001, bm-0002, ...
//	steps:
//	  - op: create
//	    args: { book_id: kapalam, page: 5, x: 10, y: 20, name: "chapter mark" }
//	  - op: get_by_position
//	    args: { book_id: kapalam, page: 5, x: 10, y: 20 }
//	    expect: { found: true, name: "chapter mark" }
//	assertions:
//	  - type: final_count
//	    count: 1
//
// # Operations
//
//   - create: NewBookmark followed by Persist
//   - persist: re-persist a stored bookmark, optionally renamed
//   - remove, remove_by_id: best-effort deletes
//   - get_by_id, get_by_position: lookups
//   - list_for_book (optional page), list_all
//   - dedupe: RemoveDuplicatePositions
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, a stepping clock starting at
// testutil.DefaultEpoch and sequential ids, so the same scenario always
// yields byte-identical traces.
package harness

// Package store provides SQLite-backed durable storage for bookmarks.
//
// The store owns one database file for the lifetime of the process and
// exposes upsert, delete and predicate-based reads.
//
// # Patterns
//
// Transactions:
//   - Every mutation runs as BEGIN → apply → COMMIT
//   - Any failure rolls back; no partial state is ever visible
//
// Identity:
//   - bookmark_id is the PRIMARY KEY, so duplicate ids cannot be stored
//   - Writing an existing id upserts and keeps the row's original seq
//   - The position tuple is indexed but NOT unique
//
// Deterministic results:
//   - Every query ends with ORDER BY ... seq ASC (see querysql)
//   - No matches is an empty slice, never an error
//
// Concurrency:
//   - Writes hold the store's write lock from BEGIN to COMMIT/ROLLBACK
//   - Reads hold the read lock, so a read issued during a write blocks
//     until that write commits
//
// Errors:
//   - Failures surface as *StorageError and match ErrStorageUnavailable,
//     ErrTransactionFailed or ErrQueryFailed via errors.Is
//   - The store never logs; reporting is the caller's decision
//
// # Database Configuration
//
//   - WAL mode: readers do not block on the single writer at file level
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store

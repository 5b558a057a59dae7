// Package checkpoint persists the monitor cursor: the sequence number of the
// last feed event whose action the ledger confirmed.
//
// A [Store] holds a single unsigned value. Load never fails: a missing or
// unreadable checkpoint is reported as a warning and treated as 0, so a
// damaged file costs at most a replay of already-handled events, which the
// registry rejects as duplicates. Save is durable when it returns nil.
//
// Two backends are provided:
//
//   - [JSONFileStore] writes {"last_processed_sequence_number": N} with an
//     atomic temp-file rename, and holds an exclusive flock(2) on a sibling
//     lock file for as long as the store is open, so two agents cannot share
//     one checkpoint.
//   - [SQLiteStore] keeps the cursor in a one-row table of an embedded
//     SQLite database.
package checkpoint

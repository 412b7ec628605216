// Package ledger persists the two dedup keyspaces in SQLite.
//
// The URL keyspace records which source links have already been handled; keys
// are trimmed and lower-cased before storage. The content keyspace maps a
// SHA-256 digest to the first path that claimed it. Claims are single-statement
// insert-if-absent operations, so concurrent registrations for one digest
// resolve to exactly one winner even across processes sharing the file.
//
// Store methods return errors. FailOpen wraps a Store with the pipeline's
// tolerance rules: lookups that fail read as "unseen", write failures are
// logged and dropped, and a failed content claim keeps the caller's file.
//
// The schema version lives in SQLite's user_version field; databases at another
// version, or files holding unrelated tables, are rejected with ErrSchemaMismatch.
package ledger

// Package repositories implements SQLite persistence for the pipeline run ledger.
//
// [RunRepository] records one row per ingestion or transformation run with its status, counts and error,
// plus the object keys each run read, wrote and archived. Soft deletes via deleted_at exclude records from
// queries by default.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and
// timestamps. The [NextSequence] function atomically increments per-table sequence counters in dedicated
// sequence tables.
package repositories

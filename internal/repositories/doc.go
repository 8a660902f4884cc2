// Package repositories implements SQLite persistence for options, album snapshots and sync run history.
//
// All state lives in two tables created by the embedded migrations in [shared.RunMigrations]:
// a key-value options table and an append-only sync_runs table.
//
// Key Implementations:
//   - [OptionRepository] : [KeyValueStore] backed by the options table
//   - [SnapshotRepository] : album list and last run record, replaced together in one transaction
//   - [SyncRunRepository] : sync pass history, newest first
//
// Snapshot writes never touch a partially written state: [SnapshotRepository.Save] upserts the album list,
// the last_sync record and the history row inside a single transaction, so a reader sees either the old snapshot or the new one.
package repositories

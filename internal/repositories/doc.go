// Package repositories implements SQLite persistence for stash's records.
//
// Key Implementations:
//   - [TransferRepository] : copy run history with status and counts, listed newest first
//
// Missing rows are reported as [shared.ErrRecordNotFound]. The schema is created by shared.RunMigrations.
package repositories

// Package models defines the persisted records of stash.
//
//   - [Transfer] : one run of copying saved tracks into a playlist, with its counts and outcome
//
// Persistent entities implement the [Model] interface providing IDs, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models

// Package tasks copies a user's saved tracks into one of their playlists with progress reporting.
//
// # Core Operation
//
// [CopyEngine.Run] follows one fixed sequence:
//
//  1. Fetch every saved track (paginated)
//  2. Fetch every playlist (paginated)
//  3. Pick the target: by ID, or through a [Selector] such as the terminal prompt
//  4. [Derive] the tracks to write (since date, local files, duplicates, cap)
//  5. Write the track URIs in chunks, unless it is a dry run
//
// Any failure ends the run with that error. A failed write leaves the chunks already sent in place.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// The optional [Recorder] (repositories.TransferRepository) stores each run and its outcome.
// Recording failures are logged and do not stop the copy.
package tasks

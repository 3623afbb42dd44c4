// Package services reads and writes a user's music library through the Spotify Web API.
//
// # Client
//
// [Client] attaches the bearer token to every request, optionally paces requests with a rate limiter
// and optionally retries GETs that fail with a transport error or a 5xx status. Writes are never retried.
//
// # Pagination
//
// [FetchAll] walks an offset/limit collection endpoint into one ordered slice of [Page] items.
// The first response decides the total and the step: a server that clamps limit is followed at
// the clamped value. Any failed or malformed page aborts the whole fetch.
//
// # Batch Writes
//
// [Client.WriteAll] posts identifiers as JSON arrays of at most [MaxChunkSize], strictly in order.
// A failed chunk stops the write; chunks already sent stay applied.
//
// # Spotify Implementation
//
// [SpotifyService] implements [Library]. It decodes github.com/zmb3/spotify/v2 response types
// and maps them to [Track] and [Playlist], with the ISRC taken from external_ids.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrTransport] : the request got no response
//   - [shared.HTTPStatusError] : non-2xx status, matching [shared.ErrHTTPStatus]
//   - [shared.ErrMalformedPageResponse] : a page did not decode or broke offset + items <= total
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
package services

// Package services defines the [Library] interface for reading and writing a user's music library.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/stash/internal/shared"
)

// Library is the part of a music service the copy flow needs.
type Library interface {
	// SavedTracks returns every track in the user's library, most recently saved first.
	SavedTracks(ctx context.Context) ([]Track, error)

	// Playlists returns every playlist the user owns or follows.
	Playlists(ctx context.Context) ([]Playlist, error)

	// AddTracks appends the tracks identified by uris to a playlist.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Playlist represents a playlist from any service
type Playlist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Public      bool
}

// Track represents a saved track from any service
type Track struct {
	ID       string
	URI      string
	Title    string
	Artist   string
	Album    string
	Duration int    // Duration in seconds
	ISRC     string // International Standard Recording Code for matching
	AddedAt  time.Time
	IsLocal  bool
}

// URIs returns the URI of each track, in order.
func URIs(tracks []Track) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	return uris
}

// FindPlaylist returns the playlist with id, matching [shared.ErrPlaylistNotFound] when there is none.
func FindPlaylist(playlists []Playlist, id string) (*Playlist, error) {
	for i := range playlists {
		if playlists[i].ID == id {
			return &playlists[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

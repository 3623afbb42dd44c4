// Spotify Web API implementation of [Library]
//
// Response shapes come from github.com/zmb3/spotify/v2, see https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const (
	spotifySavedTracksPath = "me/tracks"
	spotifyPlaylistsPath   = "me/playlists"

	// SpotifyPlaylistTracksPath is the write endpoint; "{id}" is the playlist id.
	SpotifyPlaylistTracksPath = "playlists/{id}/tracks"

	// MaxPageSize is the largest limit the collection endpoints honor.
	MaxPageSize = 50
)

// savedTrack is a saved-track item. The ISRC and local flag are read directly from the payload.
type savedTrack struct {
	spotify.SavedTrack
	isrc    string
	isLocal bool
}

func (s *savedTrack) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.SavedTrack); err != nil {
		return err
	}

	var extra struct {
		Track struct {
			IsLocal     bool `json:"is_local"`
			ExternalIDs struct {
				ISRC string `json:"isrc"`
			} `json:"external_ids"`
		} `json:"track"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	s.isrc = extra.Track.ExternalIDs.ISRC
	s.isLocal = extra.Track.IsLocal
	return nil
}

// SpotifyService implements [Library] on top of a bearer-authenticated [Client].
type SpotifyService struct {
	client    *Client
	pageSize  int
	chunkSize int
	logger    *log.Logger
}

// NewSpotifyService creates a service. Page and chunk sizes are clamped to what the API accepts.
func NewSpotifyService(client *Client, pageSize, chunkSize int, logger *log.Logger) *SpotifyService {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		chunkSize = MaxChunkSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SpotifyService{client: client, pageSize: pageSize, chunkSize: chunkSize, logger: logger}
}

func (s *SpotifyService) Name() string { return "Spotify" }

// SavedTracks pages through /me/tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context) ([]Track, error) {
	items, err := FetchAll[savedTrack](ctx, s.client, spotifySavedTracksPath, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("saved tracks: %w", err)
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, convertSavedTrack(item, s.logger))
	}
	s.logger.Info("fetched saved tracks", "count", len(tracks))
	return tracks, nil
}

// Playlists pages through /me/playlists.
func (s *SpotifyService) Playlists(ctx context.Context) ([]Playlist, error) {
	items, err := FetchAll[spotify.SimplePlaylist](ctx, s.client, spotifyPlaylistsPath, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("playlists: %w", err)
	}

	playlists := make([]Playlist, 0, len(items))
	for _, item := range items {
		playlists = append(playlists, convertPlaylist(item))
	}
	s.logger.Info("fetched playlists", "count", len(playlists))
	return playlists, nil
}

// AddTracks writes uris to the playlist in chunks.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%s: %w: playlist id", shared.StageWrite, shared.ErrMissingArgument)
	}
	endpoint := ExpandEndpoint(SpotifyPlaylistTracksPath, playlistID)
	return s.client.WriteAll(ctx, endpoint, uris, s.chunkSize)
}

// ChunkSize reports the write chunk size in use.
func (s *SpotifyService) ChunkSize() int { return s.chunkSize }

func convertSavedTrack(item savedTrack, logger *log.Logger) Track {
	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		artists = append(artists, a.Name)
	}

	track := Track{
		ID:       string(item.ID),
		URI:      string(item.URI),
		Title:    item.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    item.Album.Name,
		Duration: int(item.Duration) / 1000,
		ISRC:     item.isrc,
		IsLocal:  item.isLocal,
	}

	if item.AddedAt != "" {
		addedAt, err := time.Parse(time.RFC3339, item.AddedAt)
		if err != nil {
			logger.Warn("unparsable added_at", "uri", track.URI, "added_at", item.AddedAt)
		} else {
			track.AddedAt = addedAt
		}
	}
	return track
}

func convertPlaylist(item spotify.SimplePlaylist) Playlist {
	owner := item.Owner.DisplayName
	if owner == "" {
		owner = item.Owner.ID
	}
	return Playlist{
		ID:          string(item.ID),
		Name:        item.Name,
		Description: item.Description,
		Owner:       owner,
		TrackCount:  int(item.Tracks.Total),
		Public:      item.IsPublic,
	}
}

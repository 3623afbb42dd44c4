package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/stash/internal/auth"
	"github.com/desertthunder/stash/internal/models"
	"github.com/desertthunder/stash/internal/services"
	"github.com/desertthunder/stash/internal/shared"
	testutil "github.com/desertthunder/stash/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLibrary struct {
	tracks      []services.Track
	playlists   []services.Playlist
	tracksErr   error
	playlistErr error
	writeErr    error
	written     map[string][]string
	calls       []string
}

func (m *mockLibrary) SavedTracks(context.Context) ([]services.Track, error) {
	m.calls = append(m.calls, "tracks")
	return m.tracks, m.tracksErr
}

func (m *mockLibrary) Playlists(context.Context) ([]services.Playlist, error) {
	m.calls = append(m.calls, "playlists")
	return m.playlists, m.playlistErr
}

func (m *mockLibrary) AddTracks(_ context.Context, id string, uris []string) error {
	m.calls = append(m.calls, "write")
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.written == nil {
		m.written = make(map[string][]string)
	}
	m.written[id] = append(m.written[id], uris...)
	return nil
}

func (m *mockLibrary) Name() string { return "mock" }

type mockSelector struct {
	choice int
	err    error
	asked  bool
}

func (s *mockSelector) SelectPlaylist(_ context.Context, playlists []services.Playlist) (*services.Playlist, error) {
	s.asked = true
	if s.err != nil {
		return nil, s.err
	}
	return &playlists[s.choice], nil
}

type mockRecorder struct {
	created  []*models.Transfer
	finished []models.TransferStatus
	failNext bool
}

func (r *mockRecorder) Create(t *models.Transfer) error {
	if r.failNext {
		return errors.New("disk full")
	}
	t.SetID(fmt.Sprintf("run-%d", len(r.created)+1))
	r.created = append(r.created, t)
	return nil
}

func (r *mockRecorder) Finish(t *models.Transfer, status models.TransferStatus, err error) error {
	t.Finish(status, err)
	r.finished = append(r.finished, t.Status())
	return nil
}

func makeTracks(n int) []services.Track {
	tracks := make([]services.Track, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range tracks {
		tracks[i] = services.Track{
			ID:      fmt.Sprintf("t%d", i),
			URI:     fmt.Sprintf("spotify:track:t%d", i),
			ISRC:    fmt.Sprintf("ISRC%d", i),
			AddedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return tracks
}

func TestCopyEngineRun(t *testing.T) {
	ctx := context.Background()
	playlists := []services.Playlist{{ID: "p1", Name: "Road Trip"}, {ID: "p2", Name: "Focus"}}

	t.Run("copies into the given playlist", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(3), playlists: playlists}
		rec := &mockRecorder{}
		progress := make(chan ProgressUpdate, 20)

		result, err := NewCopyEngine(lib, nil, rec, 100, nil).Run(ctx, progress, CopyOptions{PlaylistID: "p2"})
		require.NoError(t, err)
		assert.Equal(t, "p2", result.Playlist.ID)
		assert.Equal(t, 3, result.Saved)
		assert.Equal(t, 3, result.Planned)
		assert.Equal(t, 1, result.Chunks)
		assert.Equal(t, "run-1", result.TransferID)
		assert.Equal(t, []string{"tracks", "playlists", "write"}, lib.calls)
		assert.Equal(t, services.URIs(makeTracks(3)), lib.written["p2"])
		assert.Equal(t, []models.TransferStatus{models.TransferSucceeded}, rec.finished)

		close(progress)
		var last ProgressUpdate
		for u := range progress {
			last = u
		}
		assert.Equal(t, Completed, last.Phase)
	})

	t.Run("asks the selector without an id", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(1), playlists: playlists}
		sel := &mockSelector{choice: 0}

		result, err := NewCopyEngine(lib, sel, nil, 100, nil).Run(ctx, nil, CopyOptions{})
		require.NoError(t, err)
		assert.True(t, sel.asked)
		assert.Equal(t, "p1", result.Playlist.ID)
	})

	t.Run("no id and no selector", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(1), playlists: playlists}
		_, err := NewCopyEngine(lib, nil, nil, 100, nil).Run(ctx, nil, CopyOptions{})
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("selector error", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(1), playlists: playlists}
		_, err := NewCopyEngine(lib, &mockSelector{err: shared.ErrUserInput}, nil, 100, nil).Run(ctx, nil, CopyOptions{})
		assert.ErrorIs(t, err, shared.ErrUserInput)
		assert.NotContains(t, lib.calls, "write")
	})

	t.Run("unknown playlist", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(1), playlists: playlists}
		_, err := NewCopyEngine(lib, nil, nil, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "nope"})
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
	})

	t.Run("fetch failure stops before playlists", func(t *testing.T) {
		lib := &mockLibrary{tracksErr: shared.NewHTTPStatusError(shared.StageFetch, http.StatusUnauthorized, nil)}
		_, err := NewCopyEngine(lib, nil, nil, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "p1"})
		assert.ErrorIs(t, err, shared.ErrHTTPStatus)
		assert.Equal(t, []string{"tracks"}, lib.calls)
	})

	t.Run("write failure is recorded", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(2), playlists: playlists, writeErr: shared.NewHTTPStatusError(shared.StageWrite, 500, nil)}
		rec := &mockRecorder{}

		_, err := NewCopyEngine(lib, nil, rec, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "p1"})
		assert.ErrorIs(t, err, shared.ErrHTTPStatus)
		assert.Equal(t, []models.TransferStatus{models.TransferFailed}, rec.finished)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(250), playlists: playlists}
		rec := &mockRecorder{}

		result, err := NewCopyEngine(lib, nil, rec, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "p1", DryRun: true})
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.Equal(t, 3, result.Chunks)
		assert.NotContains(t, lib.calls, "write")
		assert.Equal(t, []models.TransferStatus{models.TransferDryRun}, rec.finished)
	})

	t.Run("recording failure does not stop the copy", func(t *testing.T) {
		lib := &mockLibrary{tracks: makeTracks(1), playlists: playlists}
		result, err := NewCopyEngine(lib, nil, &mockRecorder{failNext: true}, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "p1"})
		require.NoError(t, err)
		assert.Empty(t, result.TransferID)
		assert.Len(t, lib.written["p1"], 1)
	})

	t.Run("nil library", func(t *testing.T) {
		_, err := NewCopyEngine(nil, nil, nil, 100, nil).Run(ctx, nil, CopyOptions{})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}

func TestDerive(t *testing.T) {
	tracks := makeTracks(5)
	tracks[1].IsLocal = true
	tracks[3].ISRC = tracks[2].ISRC
	tracks[4].AddedAt = time.Time{}

	uris := func(ts []services.Track) []string { return services.URIs(ts) }

	tests := []struct {
		name string
		opts CopyOptions
		want []string
	}{
		{name: "everything", opts: CopyOptions{}, want: uris(tracks)},
		{name: "skip local", opts: CopyOptions{SkipLocal: true}, want: uris([]services.Track{tracks[0], tracks[2], tracks[3], tracks[4]})},
		{name: "dedupe by isrc", opts: CopyOptions{Dedupe: true}, want: uris([]services.Track{tracks[0], tracks[1], tracks[2], tracks[4]})},
		{name: "since", opts: CopyOptions{Since: tracks[2].AddedAt}, want: uris([]services.Track{tracks[2], tracks[3]})},
		{name: "max", opts: CopyOptions{Max: 2}, want: uris(tracks[:2])},
		{name: "max after filters", opts: CopyOptions{SkipLocal: true, Max: 2}, want: uris([]services.Track{tracks[0], tracks[2]})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uris(Derive(tracks, tt.opts)))
		})
	}
}

// TestCopyEndToEnd runs authorize, capture, exchange, fetch and write against one fake server.
func TestCopyEndToEnd(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeSpotify(t)
	for i, id := range []string{"a1", "b2", "c3"} {
		fake.AddSavedTrack(id, fmt.Sprintf("Song %d", i), "Artist", "2024-05-01T00:00:00Z")
	}
	fake.AddPlaylist("p1", "Road Trip", 0)

	step := auth.Listen("http://127.0.0.1:0/auth/callback/spotify", 5*time.Second, nil)
	redirectURI := "http://" + step.Addr() + "/auth/callback/spotify"
	req := auth.NewRequest("id", redirectURI, []string{"user-library-read"}, auth.Endpoint)
	req.Endpoint.AuthURL = fake.AuthURL()

	initiator := auth.NewInitiator(req, func(string) error {
		go func() {
			resp, err := http.Get(redirectURI + "?code=abc123")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}, nil, nil)
	_, err := initiator.Initiate()
	require.NoError(t, err)

	code, err := auth.NewCapturer(nil, step).Capture(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.Code("abc123"), code)

	exchanger := auth.NewExchanger(auth.ExchangerOpts{TokenURL: fake.TokenURL(), ClientID: "id", ClientSecret: "secret"})
	token, err := exchanger.Exchange(ctx, auth.InitialGrant{Code: code, RedirectURI: redirectURI})
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
	assert.Equal(t, "ref", token.RefreshToken)
	assert.Equal(t, 3600, token.ExpiresIn)
	assert.Equal(t, testutil.FakeScope, token.Scope)
	assert.Equal(t, "Bearer", token.TokenType)

	forms := fake.TokenForms()
	require.Len(t, forms, 1)
	assert.Equal(t, "abc123", forms[0].Get("code"))
	assert.Equal(t, redirectURI, forms[0].Get("redirect_uri"))

	client, err := services.NewClient(services.ClientOpts{BaseURL: fake.APIURL(), Token: token.OAuth2()})
	require.NoError(t, err)
	library := services.NewSpotifyService(client, 50, 100, nil)

	result, err := NewCopyEngine(library, nil, nil, 100, nil).Run(ctx, nil, CopyOptions{PlaylistID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Planned)

	assert.Len(t, fake.PageQueries("/v1/me/tracks"), 1)
	writes := fake.Writes("p1")
	require.Len(t, writes, 1)
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:b2", "spotify:track:c3"}, writes[0])
}

package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Token response fields served by [FakeSpotify] unless overridden.
const (
	FakeAccessToken  = "tok"
	FakeRefreshToken = "ref"
	FakeScope        = "user-library-read playlist-read-private playlist-modify-public playlist-modify-private"
)

// FakeSpotify stands in for the accounts service and the Web API.
//
// Routes:
//   - POST /api/token
//   - GET /v1/me/tracks and /v1/me/playlists (offset/limit paged)
//   - POST /v1/playlists/{id}/tracks (JSON array of URIs)
type FakeSpotify struct {
	Server *httptest.Server

	mu sync.Mutex

	// TokenStatus and TokenBody replace the default token response when set.
	TokenStatus int
	TokenBody   string

	// TokenScope replaces [FakeScope] in the default token response when set.
	TokenScope string

	// MaxLimit clamps the limit of page requests when above zero.
	MaxLimit int

	// FailWriteAt makes the nth write request (1-based) answer WriteStatus.
	FailWriteAt int
	WriteStatus int

	savedTracks []map[string]any
	playlists   []map[string]any
	tokenForms  []url.Values
	pageQueries map[string][]url.Values
	writes      map[string][][]string
	writeCount  int
}

// NewFakeSpotify starts a fake server that is closed with the test.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		pageQueries: make(map[string][]url.Values),
		writes:      make(map[string][][]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// TokenURL returns the fake token endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// AuthURL returns the fake authorize endpoint. Nothing is served there.
func (f *FakeSpotify) AuthURL() string { return f.Server.URL + "/authorize" }

// APIURL returns the fake Web API root.
func (f *FakeSpotify) APIURL() string { return f.Server.URL + "/v1" }

// AddSavedTrack appends a saved-track item to the library.
func (f *FakeSpotify) AddSavedTrack(id, name, artist, addedAt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedTracks = append(f.savedTracks, SavedTrackJSON(id, name, artist, addedAt))
}

// AddPlaylist appends a playlist to the user's playlists.
func (f *FakeSpotify) AddPlaylist(id, name string, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists = append(f.playlists, map[string]any{
		"id":          id,
		"name":        name,
		"description": "",
		"public":      false,
		"owner":       map[string]any{"id": "user", "display_name": "User"},
		"tracks":      map[string]any{"href": "", "total": total},
		"uri":         "spotify:playlist:" + id,
	})
}

// SavedTrackJSON builds a saved-track item as the Web API returns it.
func SavedTrackJSON(id, name, artist, addedAt string) map[string]any {
	return map[string]any{
		"added_at": addedAt,
		"track": map[string]any{
			"id":           id,
			"name":         name,
			"uri":          "spotify:track:" + id,
			"duration_ms":  215000,
			"artists":      []map[string]any{{"id": "a-" + id, "name": artist}},
			"album":        map[string]any{"id": "al-" + id, "name": name + " (Single)"},
			"external_ids": map[string]any{"isrc": "US" + strings.ToUpper(id)},
			"is_local":     false,
		},
	}
}

// TokenForms returns the form bodies posted to the token endpoint.
func (f *FakeSpotify) TokenForms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenForms...)
}

// PageQueries returns the query of each page request made to path, e.g. "/v1/me/tracks".
func (f *FakeSpotify) PageQueries(path string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.pageQueries[path]...)
}

// Writes returns the URI chunks written to a playlist, in order.
func (f *FakeSpotify) Writes(playlistID string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.writes[playlistID]...)
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/token" && r.Method == http.MethodPost:
		f.serveToken(w, r)
	case !f.authorized(r):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "Invalid access token"}})
	case r.URL.Path == "/v1/me/tracks" && r.Method == http.MethodGet:
		f.servePage(w, r, f.savedTracks)
	case r.URL.Path == "/v1/me/playlists" && r.Method == http.MethodGet:
		f.servePage(w, r, f.playlists)
	case strings.HasPrefix(r.URL.Path, "/v1/playlists/") && strings.HasSuffix(r.URL.Path, "/tracks") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/playlists/"), "/tracks")
		f.serveWrite(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeSpotify) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+FakeAccessToken
}

func (f *FakeSpotify) serveToken(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))

	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, form)
	status, custom, scope := f.TokenStatus, f.TokenBody, f.TokenScope
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if scope == "" {
		scope = FakeScope
	}
	if custom != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, custom)
		return
	}

	resp := map[string]any{
		"access_token": FakeAccessToken,
		"token_type":   "Bearer",
		"scope":        scope,
		"expires_in":   3600,
	}
	if form.Get("grant_type") == "authorization_code" {
		resp["refresh_token"] = FakeRefreshToken
	}
	writeJSON(w, status, resp)
}

func (f *FakeSpotify) servePage(w http.ResponseWriter, r *http.Request, all []map[string]any) {
	query := r.URL.Query()
	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, err := strconv.Atoi(query.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	f.mu.Lock()
	f.pageQueries[r.URL.Path] = append(f.pageQueries[r.URL.Path], query)
	if f.MaxLimit > 0 && limit > f.MaxLimit {
		limit = f.MaxLimit
	}
	total := len(all)
	start := min(offset, total)
	end := min(start+limit, total)
	items := append([]map[string]any{}, all[start:end]...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"href":     r.URL.String(),
		"items":    items,
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"next":     nil,
		"previous": nil,
	})
}

func (f *FakeSpotify) serveWrite(w http.ResponseWriter, r *http.Request, playlistID string) {
	var uris []string
	if err := json.NewDecoder(r.Body).Decode(&uris); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"status": 400, "message": err.Error()}})
		return
	}

	f.mu.Lock()
	f.writeCount++
	fail := f.FailWriteAt > 0 && f.writeCount == f.FailWriteAt
	status := f.WriteStatus
	if !fail {
		f.writes[playlistID] = append(f.writes[playlistID], uris)
	}
	f.mu.Unlock()

	if fail {
		if status == 0 {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "write rejected"}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": fmt.Sprintf("snap-%d", len(uris))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

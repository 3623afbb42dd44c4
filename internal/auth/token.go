package auth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Playlist write scopes; either one lets a token add tracks.
const (
	ScopeModifyPublic  = "playlist-modify-public"
	ScopeModifyPrivate = "playlist-modify-private"
)

// TokenSet is the token endpoint's response.
//
// A refresh_token in a newer TokenSet supersedes any earlier one.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`

	// Expiry is computed from ExpiresIn when the response arrives.
	Expiry time.Time `json:"-"`
}

// Scopes splits the space-separated granted scopes.
func (t *TokenSet) Scopes() []string {
	return strings.Fields(t.Scope)
}

// HasScope reports whether scope was granted.
func (t *TokenSet) HasScope(scope string) bool {
	for _, s := range t.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// CanModifyPlaylists reports whether the token may add tracks to a playlist.
// A response that reports no scope at all is not second-guessed.
func (t *TokenSet) CanModifyPlaylists() bool {
	if strings.TrimSpace(t.Scope) == "" {
		return true
	}
	return t.HasScope(ScopeModifyPublic) || t.HasScope(ScopeModifyPrivate)
}

// OAuth2 converts the set into an [oauth2.Token], used to attach the bearer header to API requests.
func (t *TokenSet) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

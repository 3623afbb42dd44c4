package auth

import (
	"fmt"
	"net/url"

	"github.com/desertthunder/stash/internal/shared"
)

// Grant type values sent as the grant_type form field.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

// Grant is what a token request trades for a [TokenSet]: either an [InitialGrant] or a [RefreshGrant].
type Grant interface {
	grant()
}

// InitialGrant trades an authorization code. RedirectURI must equal the one sent to the authorize endpoint.
type InitialGrant struct {
	Code        Code
	RedirectURI string
}

// RefreshGrant trades a refresh token from an earlier exchange.
type RefreshGrant struct {
	RefreshToken string
}

func (InitialGrant) grant() {}
func (RefreshGrant) grant() {}

// GrantType returns the grant_type for g, or "" for an unknown grant.
func GrantType(g Grant) string {
	switch g.(type) {
	case InitialGrant, *InitialGrant:
		return GrantAuthorizationCode
	case RefreshGrant, *RefreshGrant:
		return GrantRefreshToken
	default:
		return ""
	}
}

// Form serializes g and the client credentials into the token request body.
//
// The two variants share only client_id, client_secret and grant_type.
func Form(g Grant, clientID, clientSecret string) (url.Values, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	switch g := g.(type) {
	case InitialGrant:
		return initialForm(form, g)
	case *InitialGrant:
		return initialForm(form, *g)
	case RefreshGrant:
		return refreshForm(form, g)
	case *RefreshGrant:
		return refreshForm(form, *g)
	default:
		return nil, fmt.Errorf("%w: unsupported grant %T", shared.ErrInvalidArgument, g)
	}
}

func initialForm(form url.Values, g InitialGrant) (url.Values, error) {
	if g.Code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", shared.ErrInvalidArgument)
	}
	if g.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri is required with an authorization code", shared.ErrInvalidArgument)
	}
	form.Set("grant_type", GrantAuthorizationCode)
	form.Set("code", string(g.Code))
	form.Set("redirect_uri", g.RedirectURI)
	return form, nil
}

func refreshForm(form url.Values, g RefreshGrant) (url.Values, error) {
	if g.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}
	form.Set("grant_type", GrantRefreshToken)
	form.Set("refresh_token", g.RefreshToken)
	return form, nil
}

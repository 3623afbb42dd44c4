package auth

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/shared"
	"golang.org/x/oauth2"
)

// Spotify accounts service endpoints.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.spotify.com/authorize",
	TokenURL:  "https://accounts.spotify.com/api/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Request holds the parameters of the authorize URL. It is built once per run and never modified.
type Request struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	Endpoint    oauth2.Endpoint
}

// NewRequest builds a [Request] against the given endpoint.
func NewRequest(clientID, redirectURI string, scopes []string, endpoint oauth2.Endpoint) Request {
	return Request{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      append([]string(nil), scopes...),
		Endpoint:    endpoint,
	}
}

// Config returns the [oauth2.Config] equivalent of the request, without a client secret.
func (r Request) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    r.ClientID,
		RedirectURL: r.RedirectURI,
		Scopes:      r.Scopes,
		Endpoint:    r.Endpoint,
	}
}

// URL returns the authorize URL: response_type=code, client_id, redirect_uri and the space-separated scope.
func (r Request) URL() (string, error) {
	if r.ClientID == "" || r.RedirectURI == "" || r.Endpoint.AuthURL == "" {
		return "", fmt.Errorf("%w: client_id, redirect_uri and authorize endpoint are required", shared.ErrInvalidConfig)
	}
	return r.Config().AuthCodeURL(""), nil
}

// Opener hands a URL to the user's browser.
type Opener func(url string) error

// Initiator sends the user to the authorize URL.
type Initiator struct {
	request Request
	open    Opener
	out     io.Writer
	logger  *log.Logger
}

// NewInitiator creates an [Initiator]. A nil open skips the browser and always prints the URL.
func NewInitiator(req Request, open Opener, out io.Writer, logger *log.Logger) *Initiator {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Initiator{request: req, open: open, out: out, logger: logger}
}

// Initiate builds the authorize URL and tries to open it.
//
// Failing to open a browser is not an error: the URL is printed for the user to open by hand.
func (i *Initiator) Initiate() (string, error) {
	authURL, err := i.request.URL()
	if err != nil {
		return "", fmt.Errorf("%s: %w", shared.StageAuthorize, err)
	}

	if i.open == nil {
		fmt.Fprintf(i.out, "Open this URL in your browser to authorize:\n%s\n\n", authURL)
		return authURL, nil
	}

	if err := i.open(authURL); err != nil {
		i.logger.Warn("could not open browser", "error", err)
		fmt.Fprintf(i.out, "Couldn't open browser, please head to:\n%s\n\n", authURL)
		return authURL, nil
	}

	i.logger.Debug("opened authorize URL in browser")
	return authURL, nil
}

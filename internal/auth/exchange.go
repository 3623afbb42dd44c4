package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stash/internal/shared"
)

// ExchangerOpts configures an [Exchanger].
type ExchangerOpts struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Logger       *log.Logger
	Retry        shared.RetryPolicy

	// Now defaults to [time.Now].
	Now func() time.Time
}

// Exchanger trades a [Grant] for a [TokenSet] at the token endpoint.
type Exchanger struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       *log.Logger
	retry        shared.RetryPolicy
	now          func() time.Time
}

// NewExchanger creates an [Exchanger]. TokenURL falls back to [Endpoint].
func NewExchanger(opts ExchangerOpts) *Exchanger {
	e := &Exchanger{
		tokenURL:     opts.TokenURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		client:       opts.HTTPClient,
		logger:       opts.Logger,
		retry:        opts.Retry,
		now:          opts.Now,
	}
	if e.tokenURL == "" {
		e.tokenURL = Endpoint.TokenURL
	}
	if e.client == nil {
		e.client = &http.Client{Timeout: 30 * time.Second}
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Exchange posts the grant as a form and decodes the token response.
//
// Transport errors and 5xx answers are retried per the configured policy, except for an [InitialGrant].
// For a [RefreshGrant] whose response omits refresh_token the grant's token is carried over,
// since the provider only rotates it sometimes.
func (e *Exchanger) Exchange(ctx context.Context, g Grant) (*TokenSet, error) {
	form, err := Form(g, e.clientID, e.clientSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", shared.StageToken, err)
	}

	// An authorization code is single-use: once the provider has seen it a retry can only fail.
	policy := e.retry
	switch g.(type) {
	case InitialGrant, *InitialGrant:
		policy = shared.RetryPolicy{}
	}

	var token *TokenSet
	err = shared.Retry(ctx, policy, e.logger, func() error {
		t, err := e.post(ctx, form.Encode())
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		switch g := g.(type) {
		case RefreshGrant:
			token.RefreshToken = g.RefreshToken
		case *RefreshGrant:
			token.RefreshToken = g.RefreshToken
		}
	}

	e.logger.Info("token exchanged",
		"grant", GrantType(g),
		"scope", token.Scope,
		"expires_in", token.ExpiresIn,
		"access_token", shared.MaskSecret(token.AccessToken),
	)
	return token, nil
}

func (e *Exchanger) post(ctx context.Context, body string) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", shared.StageToken, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w: %v", shared.StageToken, shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response: %v", shared.StageToken, shared.ErrTransport, err)
	}

	if !shared.IsSuccess(resp.StatusCode) {
		return nil, shared.NewHTTPStatusError(shared.StageToken, resp.StatusCode, data)
	}

	var token TokenSet
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", shared.StageToken, shared.ErrMalformedTokenResponse, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: missing access_token", shared.StageToken, shared.ErrMalformedTokenResponse)
	}
	if token.ExpiresIn > 0 {
		token.Expiry = e.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return &token, nil
}

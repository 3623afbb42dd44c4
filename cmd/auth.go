package main

import (
	"context"

	"github.com/desertthunder/stash/internal/auth"
	"github.com/desertthunder/stash/internal/shared"
	"github.com/desertthunder/stash/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the authorization code flow and prints the resulting tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	tokens, err := r.login(ctx)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Authorization successful"))
	if err := r.printTokens(tokens, cmd.Bool("show")); err != nil {
		return err
	}
	if cmd.Bool("show") && tokens.RefreshToken != "" {
		return r.writePlainln("Set %s to refresh instead of logging in next time.", shared.EnvRefreshToken)
	}
	return nil
}

// AuthRefresh exchanges a refresh token for a new token set without the browser.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	refreshToken := cmd.String("refresh-token")
	if refreshToken == "" {
		refreshToken = r.config.Credentials.Spotify.RefreshToken
	}

	tokens, err := r.exchanger().Exchange(ctx, auth.RefreshGrant{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("✓ Access token refreshed"))
	if tokens.RefreshToken != refreshToken {
		r.writePlain("%s\n", ui.Styles.Warn("The refresh token was rotated; update your configuration with the new one."))
	}
	return r.printTokens(tokens, cmd.Bool("show"))
}

// authenticate returns tokens for API calls: a refresh when a refresh token is configured,
// the full authorization flow otherwise.
func (r *Runner) authenticate(ctx context.Context) (*auth.TokenSet, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	if rt := r.config.Credentials.Spotify.RefreshToken; rt != "" {
		r.logger.Debug("using configured refresh token")
		return r.exchanger().Exchange(ctx, auth.RefreshGrant{RefreshToken: rt})
	}
	return r.login(ctx)
}

// login binds the redirect listener, sends the user to the authorize URL, captures the code
// and exchanges it.
func (r *Runner) login(ctx context.Context) (*auth.TokenSet, error) {
	s := r.config.Credentials.Spotify
	request := auth.NewRequest(s.ClientID, s.RedirectURI, s.Scopes, oauth2.Endpoint{
		AuthURL:   s.AuthURL,
		TokenURL:  s.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	})

	listener := auth.Listen(s.RedirectURI, r.config.Auth.CaptureTimeout, r.logger)
	defer listener.Close()

	var open auth.Opener
	if r.config.Auth.OpenBrowser {
		open = r.opener
	}
	if _, err := auth.NewInitiator(request, open, r.prompts, r.logger).Initiate(); err != nil {
		return nil, err
	}

	steps := []auth.CaptureStep{listener}
	if r.config.Auth.ManualFallback {
		steps = append(steps, auth.NewManualStep(r.prompter))
	}

	code, err := auth.NewCapturer(r.logger, steps...).Capture(ctx)
	if err != nil {
		return nil, err
	}

	return r.exchanger().Exchange(ctx, auth.InitialGrant{Code: code, RedirectURI: s.RedirectURI})
}

func (r *Runner) exchanger() *auth.Exchanger {
	s := r.config.Credentials.Spotify
	return auth.NewExchanger(auth.ExchangerOpts{
		TokenURL:     s.TokenURL,
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		HTTPClient:   r.client(),
		Logger:       r.logger,
		Retry:        r.config.HTTP.Retry(),
	})
}

func (r *Runner) printTokens(tokens *auth.TokenSet, show bool) error {
	access, refresh := tokens.AccessToken, tokens.RefreshToken
	if !show {
		access, refresh = shared.MaskSecret(access), shared.MaskSecret(refresh)
	}

	r.writePlainHeader("Spotify tokens")
	r.writePlain("Access token:  %s\n", access)
	r.writePlain("Token type:    %s\n", tokens.TokenType)
	r.writePlain("Scopes:        %s\n", tokens.Scope)
	if !tokens.Expiry.IsZero() {
		r.writePlain("Expires:       %s (in %ds)\n", tokens.Expiry.Local().Format("2006-01-02 15:04:05"), tokens.ExpiresIn)
	}
	if refresh == "" {
		return r.writePlain("Refresh token: (none)\n")
	}
	return r.writePlain("Refresh token: %s\n", refresh)
}
